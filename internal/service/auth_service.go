package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"event-planner/internal/model"
	"event-planner/internal/validation"
)

const (
	msgInvalidEmail     = "Invalid email format."
	msgWeakPassword     = "Password must be ≥5 chars, include number & special."
	msgPasswordMismatch = "Passwords do not match."
	msgEmailTaken       = "Email already exists."
)

// SessionStore remembers which user is logged in on this device.
type SessionStore interface {
	CurrentUserID(ctx context.Context) (string, bool, error)
	SetCurrentUserID(ctx context.Context, userID string) error
	Clear(ctx context.Context) error
}

// RegisterInput represents the registration form.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Confirm   string
}

// ProfilePatch holds optional profile changes; nil fields stay as they are.
// Password changes require Confirm to match.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
	Confirm   *string
}

// AuthService handles accounts, credentials and the device session.
type AuthService struct {
	users      UserStore
	sessions   SessionStore
	log        zerolog.Logger
	bcryptCost int
	now        func() time.Time
	compare    func(hash, password []byte) error
	// dummyHash is compared on unknown emails so both login failures cost
	// one bcrypt round.
	dummyHash []byte
}

func NewAuthService(users UserStore, sessions SessionStore, bcryptCost int, log zerolog.Logger) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	if err != nil {
		log.Warn().Err(err).Msg("generate dummy password hash")
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		log:        log,
		bcryptCost: bcryptCost,
		now:        time.Now,
		compare:    bcrypt.CompareHashAndPassword,
		dummyHash:  dummy,
	}
}

// Register creates an account and logs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email := strings.TrimSpace(input.Email)
	if !validation.IsValidEmail(email) {
		return nil, invalid(msgInvalidEmail)
	}
	if !validation.IsValidPassword(input.Password) {
		return nil, invalid(msgWeakPassword)
	}
	if input.Password != input.Confirm {
		return nil, invalid(msgPasswordMismatch)
	}

	users, err := s.users.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if emailTaken(users, email, "") {
		return nil, invalid(msgEmailTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := model.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		PasswordHash: string(hash),
		CreatedDate:  now,
		UpdatedDate:  now,
		Events:       []model.Event{},
	}
	if err := s.users.Save(ctx, append(users, user)); err != nil {
		return nil, fmt.Errorf("save users: %w", err)
	}
	if err := s.sessions.SetCurrentUserID(ctx, user.ID); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return &user, nil
}

// Login checks credentials and stores the session. Unknown email and wrong
// password fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	email = strings.TrimSpace(email)
	idx := -1
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			idx = i
			break
		}
	}
	if idx < 0 {
		_ = s.compare(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	user := users[idx]
	if err := s.compare([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Info().Str("user_id", user.ID).Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	if err := s.sessions.SetCurrentUserID(ctx, user.ID); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return &user, nil
}

func (s *AuthService) Logout(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}

// CurrentUser resolves the stored session. A session pointing to a missing
// user is cleared.
func (s *AuthService) CurrentUser(ctx context.Context) (*model.User, error) {
	id, ok, err := s.sessions.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSession
	}

	user, err := s.GetUser(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		if clearErr := s.sessions.Clear(ctx); clearErr != nil {
			return nil, clearErr
		}
		s.log.Warn().Str("user_id", id).Msg("session pointed to unknown user, cleared")
		return nil, ErrNoSession
	}
	return user, err
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for i := range users {
		if users[i].ID == userID {
			return &users[i], nil
		}
	}
	return nil, ErrUserNotFound
}

// UpdateProfile applies the patch to the user's profile. Events are left
// untouched.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*model.User, error) {
	var email string
	if patch.Email != nil {
		email = strings.TrimSpace(*patch.Email)
		if !validation.IsValidEmail(email) {
			return nil, invalid(msgInvalidEmail)
		}
	}
	if patch.Password != nil {
		if !validation.IsValidPassword(*patch.Password) {
			return nil, invalid(msgWeakPassword)
		}
		if patch.Confirm == nil || *patch.Confirm != *patch.Password {
			return nil, invalid(msgPasswordMismatch)
		}
	}

	users, err := s.users.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	idx := -1
	for i := range users {
		if users[i].ID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrUserNotFound
	}
	user := users[idx]

	if patch.Email != nil && email != user.Email {
		if emailTaken(users, email, user.ID) {
			return nil, invalid(msgEmailTaken)
		}
		user.Email = email
	}
	if patch.FirstName != nil {
		user.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		user.LastName = strings.TrimSpace(*patch.LastName)
	}
	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedDate = s.now()

	users[idx] = user
	if err := s.users.Save(ctx, users); err != nil {
		return nil, fmt.Errorf("save users: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Bool("password_changed", patch.Password != nil).Msg("profile updated")
	return &user, nil
}

func emailTaken(users []model.User, email, exceptID string) bool {
	for _, u := range users {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}
