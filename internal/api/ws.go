package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/maxischmaxi/code-preview-server/internal/events"
	"github.com/maxischmaxi/code-preview-server/internal/metrics"
	"github.com/maxischmaxi/code-preview-server/internal/models"
	"github.com/maxischmaxi/code-preview-server/internal/session"
)

// CollabWS upgrades the connection and feeds every inbound frame to the event
// router. A ?userId= query identifies the connection right away.
func (h *Handlers) CollabWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := session.NewClient(uuid.NewString(), conn)
	log := h.log.With(zap.String("conn", client.ID))
	metrics.ConnectionOpened()
	go client.WritePump()

	// The connection outlives any request timeout.
	ctx := context.WithoutCancel(r.Context())
	defer func() {
		if err := h.router.Submit(ctx, events.Event{Type: models.EventDisconnect, Client: client}); err != nil {
			log.Debug("disconnect not delivered", zap.Error(err))
		}
		client.Close()
		_ = conn.Close()
		metrics.ConnectionClosed()
		log.Debug("websocket closed")
	}()
	log.Debug("websocket opened")

	if userID := r.URL.Query().Get("userId"); userID != "" {
		data, _ := json.Marshal(models.IdentifyRequest{UserID: userID, Nickname: r.URL.Query().Get("nickname")})
		if err := h.router.Submit(ctx, events.Event{Type: models.EventJoin, Client: client, Data: data}); err != nil {
			return
		}
	}

	client.PrepareRead()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var frame models.InboundFrame
		if err := json.Unmarshal(msg, &frame); err != nil || frame.Type == "" {
			log.Warn("invalid websocket frame", zap.Error(err))
			client.Send(models.WSFrame{Type: models.EventError, Data: models.ErrorMessage{Message: "invalid frame"}})
			continue
		}
		if frame.Type == models.EventDisconnect {
			// Raised by the transport only.
			continue
		}
		if err := h.router.Submit(ctx, events.Event{Type: frame.Type, Client: client, Data: frame.Data}); err != nil {
			log.Warn("event router unavailable", zap.Error(err))
			return
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
