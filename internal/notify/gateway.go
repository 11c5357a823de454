// Package notify arms and delivers one-shot reminder alerts.
//
// The gateway hands out opaque identifiers for scheduled alerts, persists
// them so a restart can re-arm future ones, and delivers each alert at most
// once through a Sender.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"event-planner/internal/model"
)

// ErrPermissionDenied is returned when the delivery channel cannot be used.
var ErrPermissionDenied = errors.New("notification permission not granted")

// Payload is the content of a single alert.
type Payload struct {
	EventID string
	Kind    string
	Title   string
	Body    string
}

// Gateway schedules and cancels one-shot alerts.
type Gateway interface {
	// RequestPermission checks that alerts can be delivered at all.
	RequestPermission(ctx context.Context) error
	// ScheduleAt arms an alert and returns its identifier, or "" when at is
	// not in the future.
	ScheduleAt(ctx context.Context, at time.Time, p Payload) (string, error)
	// Cancel disarms an alert. Unknown or already fired ids are a no-op.
	Cancel(ctx context.Context, id string) error
}

// Sender delivers an alert to the user.
type Sender interface {
	Authorize(ctx context.Context) error
	Send(ctx context.Context, p Payload) error
}

// ReminderStore persists armed alerts.
type ReminderStore interface {
	Create(ctx context.Context, reminder *model.Reminder) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]model.Reminder, error)
	DeleteBefore(ctx context.Context, t time.Time) (int64, error)
}

// LocalGateway is a Gateway backed by an in-process cron runner.
type LocalGateway struct {
	scheduler   *Scheduler
	store       ReminderStore
	sender      Sender
	log         zerolog.Logger
	now         func() time.Time
	sendTimeout time.Duration

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewLocalGateway(scheduler *Scheduler, store ReminderStore, sender Sender, log zerolog.Logger) *LocalGateway {
	return &LocalGateway{
		scheduler:   scheduler,
		store:       store,
		sender:      sender,
		log:         log,
		now:         time.Now,
		sendTimeout: 30 * time.Second,
		entries:     make(map[string]cron.EntryID),
	}
}

// Start drops alerts that were missed while the process was down, re-arms the
// remaining ones and starts the runner.
func (g *LocalGateway) Start(ctx context.Context) error {
	pruned, err := g.store.DeleteBefore(ctx, g.now())
	if err != nil {
		return err
	}
	if pruned > 0 {
		g.log.Info().Int64("count", pruned).Msg("dropped missed reminders")
	}

	pending, err := g.store.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, rem := range pending {
		g.arm(rem)
	}
	g.log.Info().Int("count", len(pending)).Msg("reminders re-armed")

	g.scheduler.Start()
	return nil
}

func (g *LocalGateway) Stop() {
	g.scheduler.Stop()
}

func (g *LocalGateway) RequestPermission(ctx context.Context) error {
	return g.sender.Authorize(ctx)
}

func (g *LocalGateway) ScheduleAt(ctx context.Context, at time.Time, p Payload) (string, error) {
	if !at.After(g.now()) {
		return "", nil
	}

	rem := model.Reminder{
		ID:        uuid.NewString(),
		EventID:   p.EventID,
		Kind:      p.Kind,
		FireAt:    at,
		Title:     p.Title,
		Body:      p.Body,
		CreatedAt: g.now(),
	}
	if err := g.store.Create(ctx, &rem); err != nil {
		return "", fmt.Errorf("store reminder: %w", err)
	}
	g.arm(rem)

	g.log.Debug().Str("id", rem.ID).Str("event_id", p.EventID).Str("kind", p.Kind).Time("at", at).Msg("reminder armed")
	return rem.ID, nil
}

func (g *LocalGateway) Cancel(ctx context.Context, id string) error {
	g.mu.Lock()
	entry, ok := g.entries[id]
	delete(g.entries, id)
	g.mu.Unlock()

	if ok {
		g.scheduler.Remove(entry)
	}
	if err := g.store.Delete(ctx, id); err != nil {
		return err
	}
	if ok {
		g.log.Debug().Str("id", id).Msg("reminder canceled")
	}
	return nil
}

// Pending reports how many alerts are currently armed.
func (g *LocalGateway) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *LocalGateway) arm(rem model.Reminder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[rem.ID] = g.scheduler.ScheduleAt(rem.FireAt, func() { g.fire(rem) })
}

func (g *LocalGateway) fire(rem model.Reminder) {
	g.mu.Lock()
	entry, ok := g.entries[rem.ID]
	delete(g.entries, rem.ID)
	g.mu.Unlock()
	if !ok {
		return
	}
	g.scheduler.Remove(entry)

	ctx, cancel := context.WithTimeout(context.Background(), g.sendTimeout)
	defer cancel()

	// the row goes first so a crash during delivery cannot cause a second alert
	if err := g.store.Delete(ctx, rem.ID); err != nil {
		g.log.Warn().Err(err).Str("id", rem.ID).Msg("drop fired reminder")
	}
	payload := Payload{EventID: rem.EventID, Kind: rem.Kind, Title: rem.Title, Body: rem.Body}
	if err := g.sender.Send(ctx, payload); err != nil {
		g.log.Warn().Err(err).Str("id", rem.ID).Str("event_id", rem.EventID).Msg("deliver reminder")
		return
	}
	g.log.Info().Str("id", rem.ID).Str("event_id", rem.EventID).Str("kind", rem.Kind).Msg("reminder delivered")
}
