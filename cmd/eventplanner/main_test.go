package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-planner/internal/config"
	"event-planner/internal/model"
)

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()
	store, err := openStorage(filepath.Join(t.TempDir(), "data", "planner.db"), zerolog.Nop())
	require.NoError(t, err)
	defer store.close()

	require.NoError(t, store.users.Save(ctx, []model.User{{ID: "u-1", Email: "a@x.com"}}))
	require.NoError(t, store.sessions.SetCurrentUserID(ctx, "u-1"))
	require.NoError(t, store.reminders.Create(ctx, &model.Reminder{
		ID:      "r-1",
		EventID: "e-1",
		FireAt:  time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC),
	}))

	users, err := store.users.Load(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	id, ok, err := store.sessions.CurrentUserID(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u-1", id)
	rows, err := store.reminders.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRunRejectsBadTimezone(t *testing.T) {
	cfg := config.Config{Timezone: "Mars/Olympus", DatabaseURL: filepath.Join(t.TempDir(), "planner.db")}
	err := run(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "invalid TIMEZONE")
}
