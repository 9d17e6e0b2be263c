package store

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rogersnm/todos/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealtimeURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8000/realtime", realtimeURL("http://localhost:8000"))
	assert.Equal(t, "wss://api.example.com/realtime", realtimeURL("https://api.example.com"))
}

func TestRealtimeMessage_ToChange(t *testing.T) {
	msg := RealtimeMessage{Type: ChangeAdded, Record: model.Task{ID: "a"}, OriginClient: "me"}
	assert.Equal(t, OriginLocal, msg.ToChange("me").Origin)
	assert.Equal(t, OriginServer, msg.ToChange("someone-else").Origin)

	msg.OriginClient = ""
	assert.Equal(t, OriginServer, msg.ToChange("").Origin)
}

func TestCloudStore_Watch(t *testing.T) {
	upgrader := websocket.Upgrader{}
	cs, srv := newTestCloudStore(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, RealtimePath, r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		clientID := r.Header.Get(ClientIDHeader)

		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		conn.WriteJSON(RealtimeMessage{Type: ChangeAdded, Record: model.Task{ID: "a", Title: "mine"}, OriginClient: clientID})
		conn.WriteJSON(RealtimeMessage{Type: ChangeAdded, Record: model.Task{ID: "b", Title: "theirs"}, OriginClient: "other"})
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteJSON(map[string]any{"type": "renamed", "record": map[string]any{"id": "z"}})
		conn.WriteJSON(RealtimeMessage{Type: ChangeRemoved, Record: model.Task{ID: "b"}, OriginClient: "other"})

		// Hold the socket open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := cs.Watch(ctx)
	require.NoError(t, err)

	c := recv(t, ch)
	assert.Equal(t, ChangeAdded, c.Kind)
	assert.Equal(t, OriginLocal, c.Origin)
	assert.Equal(t, "a", c.Task.ID)

	c = recv(t, ch)
	assert.Equal(t, OriginServer, c.Origin)
	assert.Equal(t, "theirs", c.Task.Title)

	c = recv(t, ch)
	assert.Equal(t, ChangeRemoved, c.Kind, "malformed messages are skipped")
	assert.Equal(t, "b", c.Task.ID)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}

func TestCloudStore_Watch_Unauthorized(t *testing.T) {
	cs, srv := newTestCloudStore(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer srv.Close()

	_, err := cs.Watch(context.Background())
	assert.True(t, IsAuthError(err))
}

func TestCloudStore_Watch_ClosedWhenServerDrops(t *testing.T) {
	upgrader := websocket.Upgrader{}
	cs, srv := newTestCloudStore(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		conn.Close()
	})
	defer srv.Close()

	ch, err := cs.Watch(context.Background())
	require.NoError(t, err)
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed after server drop")
	}
}

func shortHeartbeat(t *testing.T) {
	t.Helper()
	ping, read := pingInterval, readWait
	pingInterval, readWait = 20*time.Millisecond, 150*time.Millisecond
	t.Cleanup(func() { pingInterval, readWait = ping, read })
}

func TestCloudStore_Watch_ClosedWhenPeerGoesSilent(t *testing.T) {
	shortHeartbeat(t)
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	cs, srv := newTestCloudStore(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		// Never read, so pings are never answered.
		<-release
	})
	defer srv.Close()
	defer close(release)

	ch, err := cs.Watch(context.Background())
	require.NoError(t, err)
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed after peer went silent")
	}
}

func TestCloudStore_Watch_PongsKeepFeedOpen(t *testing.T) {
	shortHeartbeat(t)
	upgrader := websocket.Upgrader{}
	cs, srv := newTestCloudStore(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		// Quiet for longer than readWait; only pongs keep the client reading.
		time.Sleep(400 * time.Millisecond)
		conn.WriteJSON(RealtimeMessage{Type: ChangeAdded, Record: model.Task{ID: "late", Title: "late"}})
		time.Sleep(time.Second)
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := cs.Watch(ctx)
	require.NoError(t, err)

	c := recv(t, ch)
	assert.Equal(t, "late", c.Task.ID)
}
