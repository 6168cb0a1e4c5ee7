package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SubmissionField is the hidden form field carrying a submission key.
const SubmissionField = "submission_id"

// IdempotencyStore remembers processed form submissions for a while so a
// double-clicked or replayed create form reaches the backend once.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *IdempotencyStore {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "dashboard"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &IdempotencyStore{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = errors.New("form already submitted")

// NewSubmissionKey returns a fresh key to embed in a form.
func NewSubmissionKey() string {
	return uuid.NewString()
}

// CheckAndInsert claims key within module, failing with
// ErrIdempotencyConflict when it was claimed before.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	ok, err := s.client.SetNX(ctx, s.key(key, module), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrIdempotencyConflict
	}
	return nil
}

// Delete releases a key, typically after the backend rejected the request
// so the same form can be resubmitted.
func (s *IdempotencyStore) Delete(ctx context.Context, key, module string) error {
	if s == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	return s.client.Del(ctx, s.key(key, module)).Err()
}

// Claim reports whether a form submission may proceed. Forms without a key
// and store failures are let through.
func (s *IdempotencyStore) Claim(ctx context.Context, key, module string) bool {
	if s == nil || key == "" {
		return true
	}
	err := s.CheckAndInsert(ctx, key, module)
	if errors.Is(err, ErrIdempotencyConflict) {
		return false
	}
	if err != nil {
		s.logger.Warn("claim submission", slog.String("module", module), slog.Any("error", err))
	}
	return true
}

// Release undoes Claim after the submission failed downstream.
func (s *IdempotencyStore) Release(ctx context.Context, key, module string) {
	if s == nil || key == "" {
		return
	}
	if err := s.Delete(ctx, key, module); err != nil {
		s.logger.Warn("release submission", slog.String("module", module), slog.Any("error", err))
	}
}

func (s *IdempotencyStore) key(key, module string) string {
	return s.prefix + ":submission:" + module + ":" + key
}
