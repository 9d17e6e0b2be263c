package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rogersnm/todos/internal/model"
)

const (
	// RealtimePath is the websocket endpoint of the change feed.
	RealtimePath = "/realtime"

	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
)

// The feed is considered dead when neither a message nor a pong arrives
// within readWait.
var (
	pingInterval = 30 * time.Second
	readWait     = 75 * time.Second
)

// RealtimeMessage is one change on the wire.
type RealtimeMessage struct {
	Type         ChangeKind `json:"type"`
	Record       model.Task `json:"record"`
	OriginClient string     `json:"origin_client,omitempty"`
}

// ToChange resolves the message's origin relative to clientID.
func (m RealtimeMessage) ToChange(clientID string) Change {
	origin := OriginServer
	if m.OriginClient != "" && m.OriginClient == clientID {
		origin = OriginLocal
	}
	return Change{Kind: m.Type, Task: m.Record, Origin: origin}
}

func realtimeURL(apiURL string) string {
	switch {
	case strings.HasPrefix(apiURL, "https://"):
		return "wss://" + strings.TrimPrefix(apiURL, "https://") + RealtimePath
	case strings.HasPrefix(apiURL, "http://"):
		return "ws://" + strings.TrimPrefix(apiURL, "http://") + RealtimePath
	}
	return apiURL + RealtimePath
}

// Watch opens the realtime feed. The server first replays the current
// collection as added changes, then streams every committed write.
func (cs *CloudStore) Watch(ctx context.Context) (<-chan Change, error) {
	header := http.Header{}
	if tok := cs.currentToken(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}
	header.Set(ClientIDHeader, cs.clientID)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, realtimeURL(cs.apiURL), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, &AuthError{Op: "watch"}
		}
		return nil, &TransportError{Op: "watch", Err: fmt.Errorf("websocket dial: %w", err)}
	}

	ch := make(chan Change, 64)
	done := make(chan struct{})
	var closeOnce sync.Once
	shutdown := func() {
		closeOnce.Do(func() {
			close(done)
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			conn.Close()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		shutdown()
	}()

	wait := readWait
	conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})

	go cs.heartbeat(conn, pingInterval, done, shutdown)

	go func() {
		defer close(ch)
		defer shutdown()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			conn.SetReadDeadline(time.Now().Add(wait))
			var msg RealtimeMessage
			if err := json.Unmarshal(data, &msg); err != nil || !validKind(msg.Type) {
				continue
			}
			select {
			case ch <- msg.ToChange(cs.clientID):
			case <-done:
				return
			}
		}
	}()
	return ch, nil
}

func (cs *CloudStore) heartbeat(conn *websocket.Conn, interval time.Duration, done <-chan struct{}, shutdown func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				shutdown()
				return
			}
		}
	}
}
