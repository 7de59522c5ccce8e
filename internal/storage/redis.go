package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/page-engine/pkg/session"
	"github.com/jwebster45206/page-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix    = "session:"
	maxSaveAttempts     = 5
	defaultTombstoneTTL = 24 * time.Hour
)

// RedisStorage implements the Storage interface using Redis for session
// snapshots and the filesystem for world files
type RedisStorage struct {
	client     *redis.Client
	logger     *slog.Logger
	worlds     WorldDir
	sessionTTL time.Duration
	now        func() time.Time
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// redis:// URL or a bare host:port. A zero sessionTTL keeps snapshots forever.
func NewRedisStorage(redisURL string, worldsDir string, sessionTTL time.Duration, logger *slog.Logger) *RedisStorage {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}

	if worldsDir == "" {
		worldsDir = "./data/worlds"
	}

	return &RedisStorage{
		client:     redis.NewClient(opts),
		logger:     logger,
		worlds:     WorldDir{Dir: worldsDir, Logger: logger},
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Session operations (Redis-backed)

// snapshotRecord is what a session key holds: a session, or a tombstone left
// by DeleteSession so a save racing the delete cannot bring it back.
type snapshotRecord struct {
	session.Session
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// supersedes reports whether the stored record wins over s.
func (rec snapshotRecord) supersedes(s session.Session) bool {
	if rec.DeletedAt != nil {
		return !s.CreatedAt.After(*rec.DeletedAt)
	}
	if rec.CreatedAt.Equal(s.CreatedAt) {
		return rec.Version >= s.Version
	}
	return rec.CreatedAt.After(s.CreatedAt)
}

// SaveSession writes s unless the stored record is newer: a later version of
// the same session, a later session under the same id, or a tombstone left
// after s was created. Skipped writes are not errors.
func (r *RedisStorage) SaveSession(ctx context.Context, s session.Session) error {
	if s.ID == "" {
		return session.ErrEmptyID
	}

	data, err := json.Marshal(snapshotRecord{Session: s})
	if err != nil {
		r.logger.Error("Failed to marshal session", "session_id", s.ID, "error", err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := sessionKeyPrefix + s.ID
	save := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var rec snapshotRecord
			if json.Unmarshal(current, &rec) == nil && rec.supersedes(s) {
				r.logger.Debug("Skipping stale session snapshot", "session_id", s.ID, "version", s.Version)
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.sessionTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		err = r.client.Watch(ctx, save, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		r.logger.Error("Failed to save session", "session_id", s.ID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSession(ctx context.Context, id string) (*session.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		r.logger.Error("Failed to unmarshal session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if rec.DeletedAt != nil {
		return nil, nil
	}
	return &rec.Session, nil
}

// DeleteSession replaces the snapshot with a tombstone that expires like a
// session would.
func (r *RedisStorage) DeleteSession(ctx context.Context, id string) error {
	deletedAt := r.now()
	data, err := json.Marshal(snapshotRecord{Session: session.Session{ID: id}, DeletedAt: &deletedAt})
	if err != nil {
		return fmt.Errorf("failed to marshal tombstone: %w", err)
	}
	ttl := r.sessionTTL
	if ttl <= 0 {
		ttl = defaultTombstoneTTL
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+id, data, ttl).Err(); err != nil {
		r.logger.Error("Failed to delete session", "session_id", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// World operations (filesystem-backed)

func (r *RedisStorage) ListWorlds(ctx context.Context) ([]storage.WorldSummary, error) {
	return r.worlds.ListWorlds(ctx)
}
