package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/trogers1052/market-notifier/internal/models"
)

const (
	streamBuffer  = 32
	pingInterval  = 30 * time.Second
	readDeadline  = 70 * time.Second
	writeDeadline = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamListener forwards notifications to one websocket client.
// Notifications are dropped when the client falls behind.
type streamListener struct {
	out chan models.Notification
}

func (s *streamListener) OnNotification(n models.Notification) {
	select {
	case s.out <- n:
	default:
	}
}

// StreamNotifications handles GET /subscribers/{id}/stream
func (h *Handler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.registry.Get(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Int("subscriber_id", id).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	listener := &streamListener{out: make(chan models.Notification, streamBuffer)}
	handle := h.listeners.Add(id, listener)
	defer h.listeners.Remove(handle)

	log := h.log.With().Int("subscriber_id", id).Logger()
	log.Info().Msg("Stream opened")
	defer log.Info().Msg("Stream closed")

	// reader: only needed to observe pongs and close frames
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readDeadline))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case n := <-listener.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteJSON(n); err != nil {
				log.Debug().Err(err).Msg("Stream write failed")
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
