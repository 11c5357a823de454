package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-planner/internal/model"
)

type memStore struct {
	mu   sync.Mutex
	rows map[string]model.Reminder
}

func newMemStore(rows ...model.Reminder) *memStore {
	s := &memStore{rows: make(map[string]model.Reminder)}
	for _, r := range rows {
		s.rows[r.ID] = r
	}
	return s
}

func (s *memStore) Create(_ context.Context, r *model.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[r.ID] = *r
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *memStore) ListAll(context.Context) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reminder, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}

func (s *memStore) DeleteBefore(_ context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.rows {
		if !r.FireAt.After(t) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type recordingSender struct {
	mu       sync.Mutex
	sent     []Payload
	denied   bool
	failSend bool
}

func (s *recordingSender) Authorize(context.Context) error {
	if s.denied {
		return ErrPermissionDenied
	}
	return nil
}

func (s *recordingSender) Send(_ context.Context, p Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSend {
		return errors.New("network down")
	}
	s.sent = append(s.sent, p)
	return nil
}

func (s *recordingSender) payloads() []Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Payload(nil), s.sent...)
}

func newTestGateway(t *testing.T, store *memStore, sender *recordingSender) *LocalGateway {
	t.Helper()
	g := NewLocalGateway(NewScheduler(time.UTC), store, sender, zerolog.Nop())
	require.NoError(t, g.Start(context.Background()))
	t.Cleanup(g.Stop)
	return g
}

func TestLocalGateway_DeliversOnce(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{}
	g := newTestGateway(t, store, sender)

	id, err := g.ScheduleAt(context.Background(), time.Now().Add(300*time.Millisecond), Payload{
		EventID: "e-1", Kind: "start", Title: "Event started", Body: "Standup",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, g.Pending())
	assert.Equal(t, 1, store.len())

	require.Eventually(t, func() bool { return len(sender.payloads()) == 1 }, 3*time.Second, 20*time.Millisecond)

	got := sender.payloads()[0]
	assert.Equal(t, "e-1", got.EventID)
	assert.Equal(t, "Event started", got.Title)
	assert.Equal(t, 0, g.Pending())
	assert.Equal(t, 0, store.len())

	// already fired ids cancel quietly
	require.NoError(t, g.Cancel(context.Background(), id))

	time.Sleep(200 * time.Millisecond)
	assert.Len(t, sender.payloads(), 1)
}

func TestLocalGateway_PastMomentIsSkipped(t *testing.T) {
	store := newMemStore()
	g := newTestGateway(t, store, &recordingSender{})

	id, err := g.ScheduleAt(context.Background(), time.Now().Add(-time.Minute), Payload{EventID: "e-1"})
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, 0, g.Pending())
	assert.Equal(t, 0, store.len())
}

func TestLocalGateway_CancelPreventsDelivery(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{}
	g := newTestGateway(t, store, sender)

	id, err := g.ScheduleAt(context.Background(), time.Now().Add(300*time.Millisecond), Payload{EventID: "e-1"})
	require.NoError(t, err)

	require.NoError(t, g.Cancel(context.Background(), id))
	require.NoError(t, g.Cancel(context.Background(), id))
	require.NoError(t, g.Cancel(context.Background(), "never-issued"))
	assert.Equal(t, 0, g.Pending())
	assert.Equal(t, 0, store.len())

	time.Sleep(600 * time.Millisecond)
	assert.Empty(t, sender.payloads())
}

func TestLocalGateway_StartRestoresFutureAndDropsMissed(t *testing.T) {
	now := time.Now()
	store := newMemStore(
		model.Reminder{ID: "missed", EventID: "e-1", Kind: "start", FireAt: now.Add(-time.Hour)},
		model.Reminder{ID: "future", EventID: "e-1", Kind: "end", FireAt: now.Add(time.Hour)},
	)
	g := newTestGateway(t, store, &recordingSender{})

	assert.Equal(t, 1, g.Pending())
	rows, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "future", rows[0].ID)

	require.NoError(t, g.Cancel(context.Background(), "future"))
	assert.Equal(t, 0, g.Pending())
}

func TestLocalGateway_SendFailureStillConsumesReminder(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{failSend: true}
	g := newTestGateway(t, store, sender)

	_, err := g.ScheduleAt(context.Background(), time.Now().Add(200*time.Millisecond), Payload{EventID: "e-1"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return g.Pending() == 0 && store.len() == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestLocalGateway_RequestPermission(t *testing.T) {
	g := newTestGateway(t, newMemStore(), &recordingSender{denied: true})
	assert.ErrorIs(t, g.RequestPermission(context.Background()), ErrPermissionDenied)

	g = newTestGateway(t, newMemStore(), &recordingSender{})
	assert.NoError(t, g.RequestPermission(context.Background()))
}

func TestOnceSchedule(t *testing.T) {
	at := time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)
	s := onceSchedule{at: at}

	assert.Equal(t, at, s.Next(at.Add(-time.Second)))
	assert.True(t, s.Next(at).IsZero())
	assert.True(t, s.Next(at.Add(time.Minute)).IsZero())
}
