package authpw

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"knowledgebase/internal/store"
)

type mockUserStore struct {
	users map[string]store.User // email -> user
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]store.User)}
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	if user, ok := m.users[strings.ToLower(email)]; ok {
		return user, nil
	}
	return store.User{}, store.ErrNotFound
}

func (m *mockUserStore) CreateUser(_ context.Context, user store.User) error {
	if _, ok := m.users[user.Email]; ok {
		return store.ErrConflict
	}
	m.users[user.Email] = user
	return nil
}

func newTestService() (*Service, *mockUserStore) {
	users := newMockUserStore()
	svc := NewService(users)
	svc.cost = bcrypt.MinCost
	return svc, users
}

func TestSignUpAndSignIn(t *testing.T) {
	svc, users := newTestService()
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpRequest{Email: " Avery@Example.com ", Password: "correct horse", DisplayName: "Avery"})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if !strings.HasPrefix(user.ID, "usr_") || user.Role != "editor" || user.Email != "avery@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	if users.users["avery@example.com"].PasswordHash == "correct horse" {
		t.Fatal("password stored in plain text")
	}

	got, err := svc.SignIn(ctx, SignInRequest{Email: "AVERY@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("SignIn returned %s, want %s", got.ID, user.ID)
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "avery@example.com", Password: "correct horse", DisplayName: "Avery"}); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	cases := []struct {
		name string
		req  SignInRequest
		want error
	}{
		{"wrong password", SignInRequest{Email: "avery@example.com", Password: "battery staple"}, ErrInvalidCredentials},
		{"unknown email", SignInRequest{Email: "blake@example.com", Password: "correct horse"}, ErrInvalidCredentials},
		{"missing password", SignInRequest{Email: "avery@example.com"}, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SignIn(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("SignIn() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSignUpValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		req  SignUpRequest
	}{
		{"missing name", SignUpRequest{Email: "a@example.com", Password: "long enough"}},
		{"short password", SignUpRequest{Email: "a@example.com", Password: "short", DisplayName: "A"}},
		{"bad email", SignUpRequest{Email: "not-an-email", Password: "long enough", DisplayName: "A"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SignUp(ctx, tc.req); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("SignUp() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	req := SignUpRequest{Email: "avery@example.com", Password: "correct horse", DisplayName: "Avery"}
	if _, err := svc.SignUp(ctx, req); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if _, err := svc.SignUp(ctx, req); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("second SignUp() error = %v, want ErrEmailTaken", err)
	}
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	svc, users := newTestService()
	ctx := context.Background()
	req := SignUpRequest{Email: "admin@example.com", Password: "admin-password", DisplayName: "Admin", Role: "admin"}

	first, err := svc.EnsureUser(ctx, req)
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	second, err := svc.EnsureUser(ctx, req)
	if err != nil {
		t.Fatalf("EnsureUser second call failed: %v", err)
	}
	if first.ID != second.ID || first.Role != "admin" || len(users.users) != 1 {
		t.Fatalf("EnsureUser not idempotent: %+v %+v", first, second)
	}
}
