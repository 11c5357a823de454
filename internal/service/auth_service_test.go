package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T) (*AuthService, *memUserStore, *memSessions) {
	t.Helper()
	store := newMemUserStore()
	sessions := &memSessions{}
	return NewAuthService(store, sessions, bcrypt.MinCost, zerolog.Nop()), store, sessions
}

func strPtr(s string) *string { return &s }

func TestRegisterThenLogin(t *testing.T) {
	svc, store, sessions := newAuthFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		FirstName: "Ada", LastName: "Lovelace",
		Email: "a@x.com", Password: "ab12!", Confirm: "ab12!",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "ab12!", user.PasswordHash)
	assert.NotNil(t, user.Events)
	assert.Equal(t, user.ID, sessions.id)
	assert.Equal(t, "a@x.com", store.user(user.ID).Email)

	require.NoError(t, svc.Logout(ctx))
	assert.Empty(t, sessions.id)

	got, err := svc.Login(ctx, "A@X.com", "ab12!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.ID, sessions.id)

	require.NoError(t, svc.Logout(ctx))
	_, err = svc.Login(ctx, "a@x.com", "ab12?")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.EqualError(t, err, "Invalid credentials.")
	assert.Empty(t, sessions.id)

	_, err = svc.Login(ctx, "nobody@x.com", "ab12!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		input RegisterInput
		msg   string
	}{
		{
			name:  "bad email",
			input: RegisterInput{Email: "not-an-email", Password: "ab12!", Confirm: "ab12!"},
			msg:   "Invalid email format.",
		},
		{
			name:  "weak password",
			input: RegisterInput{Email: "b@x.com", Password: "abcde", Confirm: "abcde"},
			msg:   "Password must be ≥5 chars, include number & special.",
		},
		{
			name:  "confirm mismatch",
			input: RegisterInput{Email: "b@x.com", Password: "ab12!", Confirm: "ab12?"},
			msg:   "Passwords do not match.",
		},
		{
			name:  "duplicate email ignoring case",
			input: RegisterInput{Email: "A@X.COM", Password: "ab12!", Confirm: "ab12!"},
			msg:   "Email already exists.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, sessions := newAuthFixture(t)
			_, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "ab12!", Confirm: "ab12!"})
			require.NoError(t, err)
			require.NoError(t, sessions.Clear(context.Background()))
			saves := store.saveCount()

			_, err = svc.Register(context.Background(), tt.input)

			require.ErrorIs(t, err, ErrValidation)
			assert.EqualError(t, err, tt.msg)
			assert.Equal(t, saves, store.saveCount())
			assert.Empty(t, sessions.id)
		})
	}
}

func TestCurrentUser(t *testing.T) {
	svc, _, sessions := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.CurrentUser(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	user, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "ab12!", Confirm: "ab12!"})
	require.NoError(t, err)

	got, err := svc.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	sessions.id = "dangling"
	_, err = svc.CurrentUser(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Empty(t, sessions.id)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	ada, err := svc.Register(ctx, RegisterInput{FirstName: "Ada", Email: "a@x.com", Password: "ab12!", Confirm: "ab12!"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Email: "b@x.com", Password: "ab12!", Confirm: "ab12!"})
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, ada.ID, ProfilePatch{Email: strPtr("B@x.com")})
	assert.EqualError(t, err, "Email already exists.")

	_, err = svc.UpdateProfile(ctx, ada.ID, ProfilePatch{Email: strPtr("nope")})
	assert.EqualError(t, err, "Invalid email format.")

	_, err = svc.UpdateProfile(ctx, ada.ID, ProfilePatch{Password: strPtr("xy9#z"), Confirm: strPtr("xy9#q")})
	assert.EqualError(t, err, "Passwords do not match.")

	_, err = svc.UpdateProfile(ctx, ada.ID, ProfilePatch{Password: strPtr("short"), Confirm: strPtr("short")})
	assert.ErrorIs(t, err, ErrValidation)

	// changing only the case of one's own email is allowed
	updated, err := svc.UpdateProfile(ctx, ada.ID, ProfilePatch{
		FirstName: strPtr(" Augusta "),
		Email:     strPtr("A@x.com"),
		Password:  strPtr("xy9#z"),
		Confirm:   strPtr("xy9#z"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", updated.FirstName)
	assert.Equal(t, "A@x.com", updated.Email)
	assert.True(t, ada.CreatedDate.Equal(updated.CreatedDate))
	assert.NotEqual(t, ada.PasswordHash, updated.PasswordHash)

	_, err = svc.Login(ctx, "a@x.com", "ab12!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "a@x.com", "xy9#z")
	assert.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, "ghost", ProfilePatch{FirstName: strPtr("x")})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogin_UnknownEmailStillComparesHash(t *testing.T) {
	svc, _, sessions := newAuthFixture(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "ab12!", Confirm: "ab12!"})
	require.NoError(t, err)
	require.NoError(t, sessions.Clear(ctx))

	var hashes [][]byte
	svc.compare = func(hash, password []byte) error {
		hashes = append(hashes, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	_, err = svc.Login(ctx, "nobody@x.com", "ab12!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "a@x.com", "wrong1!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.Len(t, hashes, 2)
	assert.Equal(t, svc.dummyHash, hashes[0])
	assert.NotEmpty(t, hashes[0])
	assert.Empty(t, sessions.id)
}
