package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"event-planner/internal/model"
	"event-planner/internal/notify"
)

// UserStore loads and saves the complete user collection.
type UserStore interface {
	Load(ctx context.Context) ([]model.User, error)
	Save(ctx context.Context, users []model.User) error
}

// EventInput represents data required to create an event.
type EventInput struct {
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	// Status defaults to active when empty.
	Status model.EventStatus
}

// EventService owns the event lifecycle: every status change and edit goes
// through it so that outstanding reminders always match the stored state.
type EventService struct {
	store          UserStore
	gateway        notify.Gateway
	log            zerolog.Logger
	now            func() time.Time
	gatewayTimeout time.Duration
}

type EventOption func(*EventService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) EventOption {
	return func(s *EventService) { s.now = now }
}

// WithGatewayTimeout bounds every single gateway call. Zero disables the bound.
func WithGatewayTimeout(d time.Duration) EventOption {
	return func(s *EventService) { s.gatewayTimeout = d }
}

func NewEventService(store UserStore, gateway notify.Gateway, log zerolog.Logger, opts ...EventOption) *EventService {
	s := &EventService{
		store:          store,
		gateway:        gateway,
		log:            log,
		now:            time.Now,
		gatewayTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EventService) AddEvent(ctx context.Context, userID string, input EventInput) (*model.Event, error) {
	status := input.Status
	if status == "" {
		status = model.StatusActive
	}
	if !status.Valid() {
		return nil, invalid(fmt.Sprintf("Unknown status %q.", status))
	}
	title := strings.TrimSpace(input.Title)
	if err := validateEventFields(title, input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	users, idx, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ev := model.Event{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Status:      status,
		CreatedDate: now,
		UpdatedDate: now,
	}
	if ev.Status == model.StatusActive {
		ev.NotificationIDs = s.scheduleReminders(ctx, ev)
	}

	users[idx].Events = append(users[idx].Events, ev)
	if err := s.store.Save(ctx, users); err != nil {
		return nil, fmt.Errorf("save users: %w", err)
	}

	s.log.Info().Str("user_id", userID).Str("event_id", ev.ID).Str("status", string(ev.Status)).
		Int("reminders", len(ev.NotificationIDs)).Msg("event created")
	return &ev, nil
}

// UpdateEvent replaces the stored event with the given one. Identity,
// creation time and reminder ids are owned by the service and ignored on
// input.
func (s *EventService) UpdateEvent(ctx context.Context, userID string, ev model.Event) (*model.Event, error) {
	if !ev.Status.Valid() {
		return nil, invalid(fmt.Sprintf("Unknown status %q.", ev.Status))
	}
	ev.Title = strings.TrimSpace(ev.Title)
	ev.Description = strings.TrimSpace(ev.Description)
	if err := validateEventFields(ev.Title, ev.StartDate, ev.EndDate); err != nil {
		return nil, err
	}

	users, idx, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	pos := users[idx].EventIndex(ev.ID)
	if pos < 0 {
		return nil, ErrEventNotFound
	}
	stored := users[idx].Events[pos]
	if stored.Status == model.StatusDeleted {
		return nil, ErrEventDeleted
	}

	s.cancelReminders(ctx, stored)

	ev.CreatedDate = stored.CreatedDate
	ev.UpdatedDate = s.now()
	ev.NotificationIDs = nil
	if ev.Status == model.StatusActive {
		ev.NotificationIDs = s.scheduleReminders(ctx, ev)
	}

	users[idx].Events[pos] = ev
	if err := s.store.Save(ctx, users); err != nil {
		return nil, fmt.Errorf("save users: %w", err)
	}

	s.log.Info().Str("user_id", userID).Str("event_id", ev.ID).Str("status", string(ev.Status)).
		Int("reminders", len(ev.NotificationIDs)).Msg("event updated")
	return &ev, nil
}

// SetEventStatus moves an event to another lifecycle state. Deleted events
// cannot be changed.
func (s *EventService) SetEventStatus(ctx context.Context, userID, eventID string, status model.EventStatus) (*model.Event, error) {
	if !status.Valid() {
		return nil, invalid(fmt.Sprintf("Unknown status %q.", status))
	}

	users, idx, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	pos := users[idx].EventIndex(eventID)
	if pos < 0 {
		return nil, ErrEventNotFound
	}
	ev := users[idx].Events[pos]
	if ev.Status == model.StatusDeleted {
		return nil, ErrEventDeleted
	}

	s.cancelReminders(ctx, ev)

	ev.Status = status
	ev.UpdatedDate = s.now()
	ev.NotificationIDs = nil
	if status == model.StatusActive {
		ev.NotificationIDs = s.scheduleReminders(ctx, ev)
	}

	users[idx].Events[pos] = ev
	if err := s.store.Save(ctx, users); err != nil {
		return nil, fmt.Errorf("save users: %w", err)
	}

	s.log.Info().Str("user_id", userID).Str("event_id", ev.ID).Str("status", string(status)).
		Int("reminders", len(ev.NotificationIDs)).Msg("event status changed")
	return &ev, nil
}

// SoftDeleteEvent marks the event deleted. The record stays in storage.
func (s *EventService) SoftDeleteEvent(ctx context.Context, userID, eventID string) (*model.Event, error) {
	return s.SetEventStatus(ctx, userID, eventID, model.StatusDeleted)
}

// ListUserEvents returns the raw collection, deleted and canceled events included.
func (s *EventService) ListUserEvents(ctx context.Context, userID string) ([]model.Event, error) {
	users, idx, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return users[idx].Events, nil
}

func (s *EventService) GetEvent(ctx context.Context, userID, eventID string) (*model.Event, error) {
	users, idx, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	pos := users[idx].EventIndex(eventID)
	if pos < 0 {
		return nil, ErrEventNotFound
	}
	ev := users[idx].Events[pos]
	return &ev, nil
}

// FindEventByRef resolves an id prefix as shown in lists. Deleted events are
// not matched; an ambiguous prefix is a validation error.
func (s *EventService) FindEventByRef(ctx context.Context, userID, ref string) (*model.Event, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrEventNotFound
	}
	events, err := s.ListUserEvents(ctx, userID)
	if err != nil {
		return nil, err
	}

	var found *model.Event
	for i := range events {
		if events[i].Status == model.StatusDeleted || !strings.HasPrefix(events[i].ID, ref) {
			continue
		}
		if found != nil {
			return nil, invalid("Reference is ambiguous, use more characters.")
		}
		found = &events[i]
	}
	if found == nil {
		return nil, ErrEventNotFound
	}
	return found, nil
}

func (s *EventService) loadUser(ctx context.Context, userID string) ([]model.User, int, error) {
	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, -1, fmt.Errorf("load users: %w", err)
	}
	for i := range users {
		if users[i].ID == userID {
			return users, i, nil
		}
	}
	return nil, -1, ErrUserNotFound
}

func validateEventFields(title string, start, end time.Time) error {
	if title == "" {
		return invalid("Title is required.")
	}
	if !end.After(start) {
		return invalid("End must be after start.")
	}
	return nil
}

// scheduleReminders arms alerts for every future candidate of ev and returns
// the ids that were issued. Gateway failures only shrink the result.
func (s *EventService) scheduleReminders(ctx context.Context, ev model.Event) []string {
	_, err := withTimeout(ctx, s.gatewayTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.gateway.RequestPermission(ctx)
	}, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("event_id", ev.ID).Msg("notification permission")
	}

	now := s.now()
	var ids []string
	for _, c := range reminderCandidates(ev) {
		if !c.at.After(now) {
			continue
		}
		id, err := withTimeout(ctx, s.gatewayTimeout, func(ctx context.Context) (string, error) {
			return s.gateway.ScheduleAt(ctx, c.at, c.payload(ev))
		}, func(id string) { s.cancelLate(ctx, ev.ID, id) })
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", ev.ID).Str("kind", c.kind).Msg("schedule reminder")
			continue
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *EventService) cancelReminders(ctx context.Context, ev model.Event) {
	for _, id := range ev.NotificationIDs {
		_, err := withTimeout(ctx, s.gatewayTimeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.gateway.Cancel(ctx, id)
		}, nil)
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", ev.ID).Str("reminder_id", id).Msg("cancel reminder")
		}
	}
}

// cancelLate withdraws a reminder whose schedule call returned after its
// timeout. Its id was never recorded on the event.
func (s *EventService) cancelLate(ctx context.Context, eventID, id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.gatewayTimeout)
	defer cancel()
	if err := s.gateway.Cancel(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("event_id", eventID).Str("reminder_id", id).Msg("cancel late reminder")
		return
	}
	s.log.Info().Str("event_id", eventID).Str("reminder_id", id).Msg("late reminder withdrawn")
}

type callResult[T any] struct {
	val T
	err error
}

// withTimeout runs call and gives up once d elapses, even if call ignores its
// context. A result that arrives after the caller gave up is handed to late
// (when non-nil) instead of being lost. Zero d waits for call to return.
func withTimeout[T any](ctx context.Context, d time.Duration, call func(context.Context) (T, error), late func(T)) (T, error) {
	if d <= 0 {
		return call(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	var (
		mu       sync.Mutex
		gaveUp   bool
		finished bool
	)
	done := make(chan callResult[T], 1)
	go func() {
		v, err := call(ctx)
		mu.Lock()
		if gaveUp {
			mu.Unlock()
			if err == nil && late != nil {
				late(v)
			}
			return
		}
		finished = true
		mu.Unlock()
		done <- callResult[T]{val: v, err: err}
	}()

	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		mu.Lock()
		if finished {
			mu.Unlock()
			res := <-done
			return res.val, res.err
		}
		gaveUp = true
		mu.Unlock()
		var zero T
		return zero, ctx.Err()
	}
}
