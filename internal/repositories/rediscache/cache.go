// Package rediscache puts a Redis read-through cache in front of a session repository.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/maxischmaxi/code-preview-server/internal/models"
	"github.com/maxischmaxi/code-preview-server/internal/repositories"
)

const keyPrefix = "collab:session:"

// SessionRepo writes through to the wrapped repository and keeps a copy of
// every session it touched in Redis for ttl. Cache failures are logged and
// never fail the operation.
type SessionRepo struct {
	inner repositories.SessionRepository
	rdb   *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewSessionRepo(inner repositories.SessionRepository, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *SessionRepo {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionRepo{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func sessionKey(id string) string { return keyPrefix + id }

func (r *SessionRepo) Create(ctx context.Context, s *models.Session) (*models.Session, error) {
	created, err := r.inner.Create(ctx, s)
	if err != nil {
		return nil, err
	}
	r.store(ctx, created)
	return created, nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	switch {
	case err == nil:
		var s models.Session
		if jsonErr := json.Unmarshal(data, &s); jsonErr == nil {
			return &s, nil
		}
		r.log.Warn("dropping undecodable cached session", zap.String("sessionId", id))
		r.evict(ctx, id)
	case !errors.Is(err, redis.Nil):
		r.log.Warn("session cache read failed", zap.String("sessionId", id), zap.Error(err))
	}

	s, err := r.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, s)
	return s, nil
}

func (r *SessionRepo) Update(ctx context.Context, s *models.Session) error {
	if err := r.inner.Update(ctx, s); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			r.evict(ctx, s.ID)
		}
		return err
	}
	r.store(ctx, s)
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	err := r.inner.Delete(ctx, id)
	r.evict(ctx, id)
	return err
}

func (r *SessionRepo) DeleteAll(ctx context.Context) (int64, error) {
	n, err := r.inner.DeleteAll(ctx)
	if err != nil {
		return n, err
	}
	iter := r.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.log.Warn("session cache scan failed", zap.Error(err))
	}
	if len(keys) > 0 {
		if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
			r.log.Warn("session cache purge failed", zap.Error(err))
		}
	}
	return n, nil
}

func (r *SessionRepo) store(ctx context.Context, s *models.Session) {
	data, err := json.Marshal(s)
	if err != nil {
		r.log.Warn("failed to marshal session for cache", zap.String("sessionId", s.ID), zap.Error(err))
		return
	}
	if err := r.rdb.Set(ctx, sessionKey(s.ID), data, r.ttl).Err(); err != nil {
		r.log.Warn("session cache write failed", zap.String("sessionId", s.ID), zap.Error(err))
		r.evict(ctx, s.ID)
	}
}

func (r *SessionRepo) evict(ctx context.Context, id string) {
	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		r.log.Warn("session cache evict failed", zap.String("sessionId", id), zap.Error(err))
	}
}
