package server

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rogersnm/todos/internal/model"
	"github.com/rogersnm/todos/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	// Clients ping every 30s; a connection silent for longer is gone.
	readWait = 75 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type subscriber struct {
	userID string
	conn   *websocket.Conn
	send   chan store.RealtimeMessage
}

// hub fans committed changes out to each user's open realtime connections.
type hub struct {
	log     logrus.FieldLogger
	metrics *metrics

	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func newHub(log logrus.FieldLogger, m *metrics) *hub {
	return &hub{log: log, metrics: m, subs: make(map[string]map[*subscriber]struct{})}
}

func (h *hub) add(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.userID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[sub.userID] = set
	}
	set[sub] = struct{}{}
	h.metrics.subscribers.Inc()
}

func (h *hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.userID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.userID)
	}
	close(sub.send)
	h.metrics.subscribers.Dec()
}

// publish queues msg for every subscriber of userID. A subscriber that
// cannot keep up is dropped.
func (h *hub) publish(userID string, msg store.RealtimeMessage) {
	h.metrics.broadcasts.WithLabelValues(string(msg.Type)).Inc()

	h.mu.Lock()
	var slow []*subscriber
	for sub := range h.subs[userID] {
		select {
		case sub.send <- msg:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range slow {
		h.log.WithField("user", userID).Warn("dropping slow realtime subscriber")
		h.remove(sub)
	}
}

// broadcast publishes one change per task, tagged with the writer's client id.
func (s *Server) broadcast(r *http.Request, kind store.ChangeKind, tasks ...model.Task) {
	origin := r.Header.Get(store.ClientIDHeader)
	uid := userID(r.Context())
	for _, t := range tasks {
		s.hub.publish(uid, store.RealtimeMessage{Type: kind, Record: t, OriginClient: origin})
	}
}

func (s *Server) realtime(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	coll, err := s.colls.get(uid)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithField("error", err).Warn("websocket upgrade failed")
		return
	}

	// Holding the collection lock keeps writes out between the snapshot and
	// the subscription, so no change is missed or delivered twice.
	coll.mu.Lock()
	tasks, err := coll.store.ListTasks(r.Context())
	if err != nil {
		coll.mu.Unlock()
		s.log.WithField("error", err).Error("listing snapshot")
		conn.Close()
		return
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Timestamp.Before(tasks[j].Timestamp) })
	sub := &subscriber{
		userID: uid,
		conn:   conn,
		send:   make(chan store.RealtimeMessage, len(tasks)+sendBuffer),
	}
	for _, t := range tasks {
		sub.send <- store.RealtimeMessage{Type: store.ChangeAdded, Record: t}
	}
	s.hub.add(sub)
	coll.mu.Unlock()

	go s.hub.writeLoop(sub)
	s.hub.readLoop(sub)
}

// readLoop discards client messages; reading keeps ping handling alive and
// notices when the client goes away.
func (h *hub) readLoop(sub *subscriber) {
	defer h.remove(sub)
	sub.conn.SetReadDeadline(time.Now().Add(readWait))
	sub.conn.SetPingHandler(func(data string) error {
		sub.conn.SetReadDeadline(time.Now().Add(readWait))
		return sub.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) writeLoop(sub *subscriber) {
	defer sub.conn.Close()
	for msg := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteJSON(msg); err != nil {
			h.log.WithField("error", err).Debug("realtime write failed")
			return
		}
	}
	sub.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
