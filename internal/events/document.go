package events

import (
	"context"
	"fmt"

	"github.com/maxischmaxi/code-preview-server/internal/models"
)

// handleTextInput stores the full document and relays it to the other
// members. The last write wins; the sender already has its own text.
func (r *Router) handleTextInput(ctx context.Context, ev Event) error {
	var req models.TextInputRequest
	if err := decode(ev, &req); err != nil {
		return err
	}
	if _, err := r.member(ev, req.SessionID); err != nil {
		return err
	}

	s, err := r.loadSession(ctx, req.SessionID)
	if err != nil {
		return err
	}
	s.Code = req.Text
	out := models.TextInputBroadcast{Text: req.Text}
	if req.Language != nil {
		s.Language = *req.Language
		out.Language = *req.Language
	}
	if err := r.saveSession(ctx, s); err != nil {
		return err
	}

	r.emit(req.SessionID, ev.Client, models.EventTextInput, out)
	return nil
}

func (r *Router) handleLanguageChange(ctx context.Context, ev Event) error {
	var req models.LanguageChangeRequest
	if err := decode(ev, &req); err != nil {
		return err
	}
	if req.Language == "" {
		return fmt.Errorf("%w: language-change needs a language", ErrMalformedPayload)
	}
	if _, err := r.member(ev, req.SessionID); err != nil {
		return err
	}

	s, err := r.loadSession(ctx, req.SessionID)
	if err != nil {
		return err
	}
	s.Language = req.Language
	if err := r.saveSession(ctx, s); err != nil {
		return err
	}

	r.emit(req.SessionID, nil, models.EventLanguageChange, models.LanguageChange{Language: req.Language})
	return nil
}

func (r *Router) handleSetAdmin(ctx context.Context, ev Event) error {
	return r.changeAdmins(ctx, ev, models.EventSetAdmin, func(s *models.Session, userID string) bool {
		if userID == s.CreatedBy || s.IsAdmin(userID) {
			return false
		}
		s.Admins = append(s.Admins, userID)
		return true
	})
}

func (r *Router) handleRemoveAdmin(ctx context.Context, ev Event) error {
	return r.changeAdmins(ctx, ev, models.EventRemoveAdmin, func(s *models.Session, userID string) bool {
		if !s.IsAdmin(userID) {
			return false
		}
		kept := make([]string, 0, len(s.Admins))
		for _, a := range s.Admins {
			if a != userID {
				kept = append(kept, a)
			}
		}
		s.Admins = kept
		return true
	})
}

// changeAdmins is restricted to the session creator. mutate reports whether
// anything changed; unchanged sets are neither persisted nor broadcast.
func (r *Router) changeAdmins(ctx context.Context, ev Event, event string, mutate func(*models.Session, string) bool) error {
	var req models.AdminRequest
	if err := decode(ev, &req); err != nil {
		return err
	}
	if req.UserID == "" {
		return fmt.Errorf("%w: %s needs a userId", ErrMalformedPayload, event)
	}
	p, err := r.member(ev, req.SessionID)
	if err != nil {
		return err
	}

	s, err := r.loadSession(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if p.UserID != s.CreatedBy {
		return errDropped
	}
	if !mutate(s, req.UserID) {
		return errDropped
	}
	if s.Admins == nil {
		s.Admins = []string{}
	}
	if err := r.saveSession(ctx, s); err != nil {
		return err
	}

	r.emit(req.SessionID, nil, event, s.Admins)
	return nil
}

// handleSetSolution applies a template to the session and pushes code,
// language and solution to the other members as three frames.
func (r *Router) handleSetSolution(ctx context.Context, ev Event) error {
	var req models.SetSolutionRequest
	if err := decode(ev, &req); err != nil {
		return err
	}
	if req.TemplateID == "" {
		return fmt.Errorf("%w: set-solution needs a templateId", ErrMalformedPayload)
	}
	p, err := r.member(ev, req.SessionID)
	if err != nil {
		return err
	}

	s, err := r.loadSession(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if !s.CanManage(p.UserID) {
		return errDropped
	}
	t, err := r.templates.Get(ctx, req.TemplateID)
	if err != nil {
		return fmt.Errorf("get template %s: %w", req.TemplateID, err)
	}
	s.ApplyTemplate(t)
	if err := r.saveSession(ctx, s); err != nil {
		return err
	}

	r.emit(req.SessionID, ev.Client, models.EventTextInput, models.TextInputBroadcast{Text: s.Code, Language: s.Language})
	r.emit(req.SessionID, ev.Client, models.EventLanguageChange, models.LanguageChange{Language: s.Language})
	r.emit(req.SessionID, ev.Client, models.EventSetSolution, s.Solution)
	return nil
}

func (r *Router) handleSolutionPresented(ctx context.Context, ev Event) error {
	var req models.SolutionPresentedRequest
	if err := decode(ev, &req); err != nil {
		return err
	}
	return r.toggle(ctx, ev, req.SessionID, models.EventSolutionPresented, req.Presented, func(s *models.Session) {
		s.SolutionPresented = req.Presented
	})
}

func (r *Router) handleSetLinting(ctx context.Context, ev Event) error {
	var req models.LintingRequest
	if err := decode(ev, &req); err != nil {
		return err
	}
	return r.toggle(ctx, ev, req.SessionID, models.EventSetLinting, req.Linting, func(s *models.Session) {
		s.Linting = req.Linting
	})
}

// toggle persists a boolean session flag for the creator or an admin and
// broadcasts the value to the whole room.
func (r *Router) toggle(ctx context.Context, ev Event, sessionID, event string, value bool, apply func(*models.Session)) error {
	p, err := r.member(ev, sessionID)
	if err != nil {
		return err
	}
	s, err := r.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !s.CanManage(p.UserID) {
		return errDropped
	}
	apply(s)
	if err := r.saveSession(ctx, s); err != nil {
		return err
	}

	r.emit(sessionID, nil, event, value)
	return nil
}
