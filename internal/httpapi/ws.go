package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wireMessage is one event written down the wire while tailing a
// session's event bus.
type wireMessage struct {
	Kind      string      `json:"kind"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// tailSession upgrades the request to a WebSocket and streams every
// event the session's bus emits from this point forward until the
// client disconnects or a write to it fails; closing the session does
// not end the tail by itself. It never replays history —
// a caller wanting the transcript up to now should read it via the
// session directly before connecting.
func tailSession(w http.ResponseWriter, r *http.Request, sess *session.Session, logger *zap.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan []byte, 256)
	done := make(chan struct{})

	sess.Events().Subscribe(func(ev session.Event) {
		data, err := json.Marshal(wireMessage{
			Kind:      string(ev.Kind),
			Payload:   ev.Payload,
			Timestamp: ev.Timestamp.Unix(),
		})
		if err != nil {
			return
		}
		select {
		case send <- data:
		case <-done:
		default:
			logger.Warn("dropping event tail message, client too slow")
		}
	})

	go readLoop(conn, done)
	writeLoop(conn, send, done, logger)
}

// readLoop discards client frames (this endpoint is write-only) but
// stays responsible for noticing the connection went away.
func readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	conn.SetReadLimit(4096)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeLoop(conn *websocket.Conn, send chan []byte, done chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case msg := <-send:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
