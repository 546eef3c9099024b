package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
	sendBuffer   = 4
)

// Message is one frame on the watch feed. Persisted is false while the live
// record failed to reach storage.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Persisted bool            `json:"persisted"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type watcher struct {
	conn *websocket.Conn
	send chan Message
	done chan struct{}
	once sync.Once
}

func (w *watcher) close() {
	w.once.Do(func() {
		close(w.done)
		w.conn.Close()
	})
}

// hub fans settings documents out to websocket watchers. A watcher that
// falls behind loses intermediate documents, never the connection.
type hub struct {
	mu       sync.Mutex
	watchers map[*watcher]struct{}
	log      logrus.FieldLogger
}

func newHub(log logrus.FieldLogger) *hub {
	return &hub{watchers: make(map[*watcher]struct{}), log: log}
}

// add registers w and queues its first message. seed runs under the hub lock,
// so every broadcast w receives is queued after it.
func (h *hub) add(w *watcher, seed func() (Message, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	msg, err := seed()
	if err != nil {
		return err
	}
	h.watchers[w] = struct{}{}
	h.enqueue(w, msg)
	return nil
}

func (h *hub) remove(w *watcher) {
	h.mu.Lock()
	delete(h.watchers, w)
	h.mu.Unlock()
	w.close()
}

func (h *hub) broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers {
		h.enqueue(w, msg)
	}
}

func (h *hub) enqueue(w *watcher, msg Message) {
	select {
	case w.send <- msg:
	default:
		h.log.Warn("Settings watcher is slow, dropping update")
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	watchers := h.watchers
	h.watchers = make(map[*watcher]struct{})
	h.mu.Unlock()

	for w := range watchers {
		w.close()
	}
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r, s.log)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to upgrade settings watcher")
		return
	}

	wt := &watcher{
		conn: conn,
		send: make(chan Message, sendBuffer),
		done: make(chan struct{}),
	}
	err = s.watch.add(wt, func() (Message, error) {
		return s.message(s.live.Snapshot(), !s.unsaved.Load())
	})
	if err != nil {
		log.WithError(err).Error("Failed to render settings for watcher")
		wt.close()
		return
	}
	log.Debug("Settings watcher connected")

	go s.writeLoop(wt)
	s.readLoop(wt)
	log.Debug("Settings watcher disconnected")
}

// readLoop drains client frames so control messages are handled, and returns
// once the connection is gone.
func (s *Server) readLoop(wt *watcher) {
	defer s.watch.remove(wt)
	for {
		if _, _, err := wt.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(wt *watcher) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wt.done:
			return
		case msg := <-wt.send:
			wt.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := wt.conn.WriteJSON(msg); err != nil {
				s.watch.remove(wt)
				return
			}
		case <-ticker.C:
			wt.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := wt.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.watch.remove(wt)
				return
			}
		}
	}
}
