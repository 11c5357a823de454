package repository

import (
	"context"
	"fmt"
)

const currentUserKey = "currentUserId"

// SessionRepository persists which user is logged in on this device.
type SessionRepository struct {
	kv *KVRepository
}

func NewSessionRepository(kv *KVRepository) *SessionRepository {
	return &SessionRepository{kv: kv}
}

// CurrentUserID returns the stored user id; ok is false when logged out.
func (r *SessionRepository) CurrentUserID(ctx context.Context) (string, bool, error) {
	id, ok, err := r.kv.Get(ctx, currentUserKey)
	if err != nil {
		return "", false, fmt.Errorf("read session: %w", err)
	}
	if !ok || id == "" {
		return "", false, nil
	}
	return id, true, nil
}

func (r *SessionRepository) SetCurrentUserID(ctx context.Context, userID string) error {
	if err := r.kv.Set(ctx, currentUserKey, userID); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Clear(ctx context.Context) error {
	if err := r.kv.Delete(ctx, currentUserKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
