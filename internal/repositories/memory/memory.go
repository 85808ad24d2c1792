// Package memory keeps sessions and templates in process memory. It backs
// STORE_DRIVER=memory and the tests of the packages above the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maxischmaxi/code-preview-server/internal/models"
	"github.com/maxischmaxi/code-preview-server/internal/repositories"
)

type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]models.Session)}
}

func (r *SessionRepo) Create(_ context.Context, s *models.Session) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := cloneSession(*s)
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	r.sessions[out.ID] = out
	created := cloneSession(out)
	return &created, nil
}

func (r *SessionRepo) Get(_ context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := cloneSession(s)
	return &out, nil
}

func (r *SessionRepo) Update(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (r *SessionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *SessionRepo) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.sessions))
	r.sessions = make(map[string]models.Session)
	return n, nil
}

type TemplateRepo struct {
	mu        sync.RWMutex
	templates map[string]models.Template
}

func NewTemplateRepo() *TemplateRepo {
	return &TemplateRepo{templates: make(map[string]models.Template)}
}

func (r *TemplateRepo) Create(_ context.Context, t *models.Template) (*models.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := *t
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	r.templates[out.ID] = out
	return &out, nil
}

func (r *TemplateRepo) Get(_ context.Context, id string) (*models.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &t, nil
}

func (r *TemplateRepo) Update(_ context.Context, t *models.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[t.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.templates[t.ID] = *t
	return nil
}

func (r *TemplateRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.templates, id)
	return nil
}

// List returns templates ordered by title.
func (r *TemplateRepo) List(_ context.Context) ([]models.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title == out[j].Title {
			return out[i].ID < out[j].ID
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

// NewStore returns an empty in-memory store.
func NewStore() *repositories.Store {
	return repositories.NewStore(NewSessionRepo(), NewTemplateRepo(), nil)
}

func cloneSession(s models.Session) models.Session {
	admins := make([]string, len(s.Admins))
	copy(admins, s.Admins)
	s.Admins = admins
	return s
}
