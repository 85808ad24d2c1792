package events

import (
	"context"

	"github.com/maxischmaxi/code-preview-server/internal/models"
)

// Presence events never touch the store, so they keep working during a store
// outage.

func (r *Router) handleSendCursor(_ context.Context, ev Event) error {
	var req models.CursorPosition
	if err := decode(ev, &req); err != nil {
		return err
	}
	p, err := r.member(ev, req.SessionID)
	if err != nil {
		return err
	}
	if req.UserID == "" {
		req.UserID = p.UserID
	}
	r.emit(req.SessionID, nil, models.EventSendCursor, r.presence.SetCursor(req))
	return nil
}

func (r *Router) handleSetSelection(_ context.Context, ev Event) error {
	var req models.CursorSelection
	if err := decode(ev, &req); err != nil {
		return err
	}
	p, err := r.member(ev, req.SessionID)
	if err != nil {
		return err
	}
	if req.UserID == "" {
		req.UserID = p.UserID
	}
	r.emit(req.SessionID, nil, models.EventSetSelection, r.presence.SetSelection(req))
	return nil
}

// handleRemoveCursor clears both cursor and selection and signals the user
// id to the other members, who delete it locally.
func (r *Router) handleRemoveCursor(_ context.Context, ev Event) error {
	var req models.RemoveCursorRequest
	if err := decode(ev, &req); err != nil {
		return err
	}
	p, err := r.member(ev, req.SessionID)
	if err != nil {
		return err
	}
	if req.UserID == "" {
		req.UserID = p.UserID
	}
	r.presence.Remove(req.SessionID, req.UserID)
	r.emit(req.SessionID, ev.Client, models.EventRemoveCursor, req.UserID)
	return nil
}
