package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/maxischmaxi/code-preview-server/internal/metrics"
	"github.com/maxischmaxi/code-preview-server/internal/models"
	"github.com/maxischmaxi/code-preview-server/internal/repositories"
)

// SessionService owns session creation and the bulk reset shared by the
// REST endpoint and the scheduled job.
type SessionService struct {
	sessions        repositories.SessionRepository
	defaultLanguage string
	log             *zap.Logger
}

func NewSessionService(sessions repositories.SessionRepository, defaultLanguage string, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionService{sessions: sessions, defaultLanguage: defaultLanguage, log: log}
}

// Create starts an empty session owned by userID.
func (s *SessionService) Create(ctx context.Context, userID string) (*models.Session, error) {
	created, err := s.sessions.Create(ctx, &models.Session{
		Language:  s.defaultLanguage,
		CreatedAt: time.Now().UTC(),
		CreatedBy: userID,
		Admins:    []string{},
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.log.Info("session created", zap.String("session", created.ID), zap.String("user", userID))
	return created, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	return s.sessions.Get(ctx, id)
}

// ResetAll deletes every stored session. Live connections are left alone.
func (s *SessionService) ResetAll(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset sessions: %w", err)
	}
	metrics.ObserveReset(n)
	s.log.Info("sessions reset", zap.Int64("deleted", n))
	return n, nil
}
