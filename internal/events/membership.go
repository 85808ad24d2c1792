package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/maxischmaxi/code-preview-server/internal/models"
)

func (r *Router) handleIdentify(_ context.Context, ev Event) error {
	var req models.IdentifyRequest
	if err := decode(ev, &req); err != nil {
		return err
	}
	userID := strings.TrimSpace(req.User())
	if userID == "" {
		return fmt.Errorf("%w: join needs a user id", ErrMalformedPayload)
	}

	for _, prev := range r.registry.Register(ev.Client.ID, userID, req.Nickname) {
		if prev.ConnectionID != ev.Client.ID {
			r.log.Info("user id taken over by new connection",
				zap.String("user", userID),
				zap.String("previous", prev.ConnectionID),
				zap.String("conn", ev.Client.ID))
		}
		r.detach(prev)
	}
	return nil
}

// handleJoinSession attaches the connection to a session. The member list is
// sent to the whole room, joiner included, so every view converges.
func (r *Router) handleJoinSession(ctx context.Context, ev Event) error {
	var req models.JoinSessionRequest
	if err := decode(ev, &req); err != nil {
		return err
	}
	if req.SessionID == "" {
		return fmt.Errorf("%w: join-session needs a sessionId", ErrMalformedPayload)
	}
	p, err := r.participant(ev)
	if err != nil {
		return err
	}
	if _, err := r.loadSession(ctx, req.SessionID); err != nil {
		return err
	}

	if p.SessionID != req.SessionID {
		if p.SessionID != "" {
			r.registry.SetSession(ev.Client.ID, "")
			r.detach(p)
		}
		r.registry.SetSession(ev.Client.ID, req.SessionID)
		r.hub.Join(req.SessionID, ev.Client)
	}

	r.emit(req.SessionID, nil, models.EventJoinSession, r.registry.Members(req.SessionID))
	return nil
}

func (r *Router) handleLeaveSession(_ context.Context, ev Event) error {
	p, err := r.participant(ev)
	if err != nil {
		return err
	}
	if p.SessionID == "" {
		return errDropped
	}
	r.registry.SetSession(ev.Client.ID, "")
	r.detach(p)
	return nil
}

// handleDisconnect runs leave semantics and forgets the connection. A second
// disconnect for the same connection is a no-op.
func (r *Router) handleDisconnect(_ context.Context, ev Event) error {
	defer delete(r.clients, ev.Client.ID)
	p, ok := r.registry.Remove(ev.Client.ID)
	if !ok {
		return errDropped
	}
	r.detach(p)
	return nil
}

func (r *Router) handleSetNickname(_ context.Context, ev Event) error {
	nickname, err := decodeNickname(ev)
	if err != nil {
		return err
	}
	p, ok := r.registry.SetNickname(ev.Client.ID, nickname)
	if !ok {
		return errDropped
	}
	if p.SessionID != "" {
		r.emit(p.SessionID, nil, models.EventSetNickname, p)
	}
	return nil
}

// decodeNickname accepts either a bare JSON string or {"nickname": "..."}.
func decodeNickname(ev Event) (string, error) {
	var nickname string
	if err := json.Unmarshal(ev.Data, &nickname); err == nil {
		return nickname, nil
	}
	var req models.NicknameRequest
	if err := decode(ev, &req); err != nil {
		return "", err
	}
	return req.Nickname, nil
}

// detach removes a participant's connection from the room it was recorded
// in, prunes its presence state and tells the remaining members. The
// registry must already reflect the departure.
func (r *Router) detach(p models.Participant) {
	if p.SessionID == "" {
		return
	}
	if c, ok := r.clients[p.ConnectionID]; ok {
		r.hub.Leave(p.SessionID, c)
	}
	if r.presence.Remove(p.SessionID, p.UserID) {
		r.emit(p.SessionID, nil, models.EventRemoveCursor, p.UserID)
	}
	r.emit(p.SessionID, nil, models.EventLeaveSession, r.registry.Members(p.SessionID))
}
