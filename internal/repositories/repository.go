package repositories

import (
	"context"
	"errors"

	"github.com/maxischmaxi/code-preview-server/internal/models"
)

// ErrNotFound is returned by every backend when the requested id does not exist.
var ErrNotFound = errors.New("record not found")

// SessionRepository persists collaborative sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
	// DeleteAll removes every session and reports how many were removed.
	DeleteAll(ctx context.Context) (int64, error)
}

// TemplateRepository persists reusable exercise templates.
type TemplateRepository interface {
	Create(ctx context.Context, t *models.Template) (*models.Template, error)
	Get(ctx context.Context, id string) (*models.Template, error)
	Update(ctx context.Context, t *models.Template) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Template, error)
}

// Store bundles both repositories of one backend.
type Store struct {
	Sessions  SessionRepository
	Templates TemplateRepository
	closeFn   func(context.Context) error
}

func NewStore(sessions SessionRepository, templates TemplateRepository, closeFn func(context.Context) error) *Store {
	return &Store{Sessions: sessions, Templates: templates, closeFn: closeFn}
}

// Close releases the backend connection, if any.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn(ctx)
}
