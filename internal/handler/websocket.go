package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/comigor/meditranslate-go/internal/feed"
	"github.com/comigor/meditranslate-go/internal/history"
	"github.com/comigor/meditranslate-go/internal/logger"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type outgoingMessage struct {
	Type      string           `json:"type"`
	Message   *history.Message `json:"message,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// handleFeed streams feed events to the client until either side goes away.
// Inbound frames are read only to track pongs and close.
func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.feed.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	log.Info("feed client connected")
	if err := writeEvent(conn, outgoingMessage{Type: "connected", Timestamp: time.Now().UnixMilli()}); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("feed client disconnected")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(conn, outgoingMessage{Type: ev.Type, Message: ev.Message, Timestamp: ev.At.UnixMilli()}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, msg outgoingMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

var _ Feed = (*feed.Hub)(nil)
