package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"event-planner/internal/model"
)

const usersKey = "users"

// UserRepository keeps the whole user collection as one JSON blob under the
// "users" key. Writes always replace the complete collection.
type UserRepository struct {
	kv *KVRepository
}

func NewUserRepository(kv *KVRepository) *UserRepository {
	return &UserRepository{kv: kv}
}

// Load returns every stored user. A missing blob is an empty collection.
func (r *UserRepository) Load(ctx context.Context) ([]model.User, error) {
	raw, ok, err := r.kv.Get(ctx, usersKey)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []model.User{}, nil
	}
	var users []model.User
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// Save rewrites the stored collection.
func (r *UserRepository) Save(ctx context.Context, users []model.User) error {
	if users == nil {
		users = []model.User{}
	}
	raw, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := r.kv.Set(ctx, usersKey, string(raw)); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}
