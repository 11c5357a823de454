package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"event-planner/internal/model"
	"event-planner/internal/notify"
)

// memUserStore keeps the collection as JSON so callers never share memory
// with what is stored.
type memUserStore struct {
	mu      sync.Mutex
	blob    []byte
	saves   int
	loadErr error
	saveErr error
}

func newMemUserStore(users ...model.User) *memUserStore {
	s := &memUserStore{}
	if users == nil {
		users = []model.User{}
	}
	s.blob, _ = json.Marshal(users)
	return s
}

func (s *memUserStore) Load(context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	var users []model.User
	if err := json.Unmarshal(s.blob, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *memUserStore) Save(_ context.Context, users []model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	blob, err := json.Marshal(users)
	if err != nil {
		return err
	}
	s.blob = blob
	s.saves++
	return nil
}

func (s *memUserStore) user(id string) model.User {
	users, _ := s.Load(context.Background())
	for _, u := range users {
		if u.ID == id {
			return u
		}
	}
	return model.User{}
}

func (s *memUserStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type memSessions struct {
	id string
}

func (s *memSessions) CurrentUserID(context.Context) (string, bool, error) {
	return s.id, s.id != "", nil
}

func (s *memSessions) SetCurrentUserID(_ context.Context, id string) error {
	s.id = id
	return nil
}

func (s *memSessions) Clear(context.Context) error {
	s.id = ""
	return nil
}

type gatewayCall struct {
	op   string // "schedule" or "cancel"
	id   string
	at   time.Time
	kind string
}

type fakeGateway struct {
	mu   sync.Mutex
	now  func() time.Time
	seq  int
	live map[string]bool
	log  []gatewayCall

	permissionErr error
	failKinds     map[string]bool
	hang          bool
	delay         time.Duration
}

func newFakeGateway(now func() time.Time) *fakeGateway {
	return &fakeGateway{now: now, live: make(map[string]bool), failKinds: make(map[string]bool)}
}

func (g *fakeGateway) RequestPermission(context.Context) error {
	return g.permissionErr
}

func (g *fakeGateway) ScheduleAt(_ context.Context, at time.Time, p notify.Payload) (string, error) {
	if g.hang {
		select {}
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failKinds[p.Kind] {
		return "", errors.New("gateway unavailable")
	}
	if !at.After(g.now()) {
		return "", nil
	}
	g.seq++
	id := fmt.Sprintf("n-%d", g.seq)
	g.live[id] = true
	g.log = append(g.log, gatewayCall{op: "schedule", id: id, at: at, kind: p.Kind})
	return id, nil
}

func (g *fakeGateway) Cancel(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.live, id)
	g.log = append(g.log, gatewayCall{op: "cancel", id: id})
	return nil
}

func (g *fakeGateway) liveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.live)
}

func (g *fakeGateway) countOp(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.log {
		if c.op == op {
			n++
		}
	}
	return n
}

func (g *fakeGateway) calls() []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gatewayCall(nil), g.log...)
}

func (g *fakeGateway) resetLog() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.log = nil
}
