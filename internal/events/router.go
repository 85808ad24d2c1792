// Package events runs the single event loop that applies inbound websocket
// events to the registry, the presence tracker and the session store, and
// fans the results out to session rooms.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/maxischmaxi/code-preview-server/internal/metrics"
	"github.com/maxischmaxi/code-preview-server/internal/models"
	"github.com/maxischmaxi/code-preview-server/internal/repositories"
	"github.com/maxischmaxi/code-preview-server/internal/session"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrRouterStopped    = errors.New("event router stopped")
)

// errDropped marks events that are ignored on purpose: unauthorized callers,
// unregistered connections and stale session ids.
var errDropped = errors.New("event dropped")

const defaultQueueSize = 256

// Event is one inbound frame together with the connection it arrived on.
type Event struct {
	Type   string
	Client *session.Client
	Data   json.RawMessage
}

type handlerFunc func(ctx context.Context, ev Event) error

type Deps struct {
	Sessions  repositories.SessionRepository
	Templates repositories.TemplateRepository
	Registry  *session.Registry
	Hub       *session.Hub
	Presence  *session.Presence
	Logger    *zap.Logger
}

type Router struct {
	sessions  repositories.SessionRepository
	templates repositories.TemplateRepository
	registry  *session.Registry
	hub       *session.Hub
	presence  *session.Presence
	log       *zap.Logger

	queue    chan Event
	stopped  chan struct{}
	handlers map[string]handlerFunc

	// clients is only touched from the loop goroutine.
	clients map[string]*session.Client
}

func NewRouter(d Deps, queueSize int) *Router {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if d.Registry == nil {
		d.Registry = session.NewRegistry()
	}
	if d.Hub == nil {
		d.Hub = session.NewHub()
	}
	if d.Presence == nil {
		d.Presence = session.NewPresence()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := &Router{
		sessions:  d.Sessions,
		templates: d.Templates,
		registry:  d.Registry,
		hub:       d.Hub,
		presence:  d.Presence,
		log:       d.Logger,
		queue:     make(chan Event, queueSize),
		stopped:   make(chan struct{}),
		clients:   make(map[string]*session.Client),
	}
	r.handlers = map[string]handlerFunc{
		models.EventJoin:              r.handleIdentify,
		models.EventJoinSession:       r.handleJoinSession,
		models.EventLeaveSession:      r.handleLeaveSession,
		models.EventDisconnect:        r.handleDisconnect,
		models.EventTextInput:         r.handleTextInput,
		models.EventLanguageChange:    r.handleLanguageChange,
		models.EventSetAdmin:          r.handleSetAdmin,
		models.EventRemoveAdmin:       r.handleRemoveAdmin,
		models.EventSetSolution:       r.handleSetSolution,
		models.EventSolutionPresented: r.handleSolutionPresented,
		models.EventSetLinting:        r.handleSetLinting,
		models.EventSendCursor:        r.handleSendCursor,
		models.EventSetSelection:      r.handleSetSelection,
		models.EventRemoveCursor:      r.handleRemoveCursor,
		models.EventSetNickname:       r.handleSetNickname,
	}
	return r
}

func (r *Router) Registry() *session.Registry { return r.registry }

// Submit queues ev for the loop. It blocks while the queue is full.
func (r *Router) Submit(ctx context.Context, ev Event) error {
	select {
	case <-r.stopped:
		return ErrRouterStopped
	default:
	}
	select {
	case r.queue <- ev:
		return nil
	case <-r.stopped:
		return ErrRouterStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run handles queued events one at a time until ctx is cancelled.
func (r *Router) Run(ctx context.Context) {
	defer close(r.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.queue:
			_ = r.Dispatch(ctx, ev)
		}
	}
}

// Dispatch handles ev to completion on the calling goroutine. Deliberately
// dropped events return nil.
func (r *Router) Dispatch(ctx context.Context, ev Event) error {
	if ev.Client == nil {
		return fmt.Errorf("%w: event %q without connection", ErrMalformedPayload, ev.Type)
	}
	h, ok := r.handlers[ev.Type]
	if !ok {
		metrics.ObserveEvent("unknown", metrics.OutcomeError)
		r.log.Warn("unknown websocket event", zap.String("event", ev.Type), zap.String("conn", ev.Client.ID))
		r.replyError(ev.Client, "unknown event "+ev.Type)
		return fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Type)
	}
	if ev.Type != models.EventDisconnect {
		r.clients[ev.Client.ID] = ev.Client
	}

	err := h(ctx, ev)
	switch {
	case err == nil:
		metrics.ObserveEvent(ev.Type, metrics.OutcomeOK)
		return nil
	case errors.Is(err, errDropped):
		metrics.ObserveEvent(ev.Type, metrics.OutcomeIgnored)
		r.log.Debug("websocket event dropped", zap.String("event", ev.Type), zap.String("conn", ev.Client.ID))
		return nil
	case errors.Is(err, ErrMalformedPayload):
		metrics.ObserveEvent(ev.Type, metrics.OutcomeError)
		r.log.Warn("malformed websocket event", zap.String("event", ev.Type), zap.String("conn", ev.Client.ID), zap.Error(err))
		r.replyError(ev.Client, err.Error())
		return err
	default:
		metrics.ObserveEvent(ev.Type, metrics.OutcomeError)
		r.log.Error("websocket event failed", zap.String("event", ev.Type), zap.String("conn", ev.Client.ID), zap.Error(err))
		return err
	}
}

func (r *Router) replyError(c *session.Client, msg string) {
	ok := c.Send(models.WSFrame{Type: models.EventError, Data: models.ErrorMessage{Message: msg}})
	if ok {
		metrics.ObserveBroadcast(models.EventError, 1, 0)
	} else {
		metrics.ObserveBroadcast(models.EventError, 0, 1)
	}
}

// emit sends one frame to every member of sessionID except the given client,
// which may be nil.
func (r *Router) emit(sessionID string, except *session.Client, event string, data any) {
	sent, dropped := r.hub.EmitExcept(sessionID, except, models.WSFrame{Type: event, Data: data})
	metrics.ObserveBroadcast(event, sent, dropped)
}

func decode(ev Event, v any) error {
	if len(ev.Data) == 0 {
		return fmt.Errorf("%w: %s needs a payload", ErrMalformedPayload, ev.Type)
	}
	if err := json.Unmarshal(ev.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, ev.Type, err)
	}
	return nil
}

// participant returns the registry entry of the event's connection.
func (r *Router) participant(ev Event) (models.Participant, error) {
	p, ok := r.registry.FindByConnection(ev.Client.ID)
	if !ok {
		return models.Participant{}, errDropped
	}
	return p, nil
}

// member returns the participant when it is currently attached to sessionID.
func (r *Router) member(ev Event, sessionID string) (models.Participant, error) {
	p, err := r.participant(ev)
	if err != nil {
		return p, err
	}
	if sessionID == "" || p.SessionID != sessionID {
		return p, errDropped
	}
	return p, nil
}

func (r *Router) loadSession(ctx context.Context, id string) (*models.Session, error) {
	s, err := r.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return s, nil
}

func (r *Router) saveSession(ctx context.Context, s *models.Session) error {
	if err := r.sessions.Update(ctx, s); err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	return nil
}
