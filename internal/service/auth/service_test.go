package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"curatorhub/internal/model"
	"curatorhub/internal/repository"
	"curatorhub/pkg/util"
)

type fakeUsers struct {
	byEmail map[string]*model.User
	nextID  int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*model.User{}, nextID: 1}
}

func (f *fakeUsers) Create(ctx context.Context, u *model.User) error {
	if _, ok := f.byEmail[u.Email]; ok {
		return repository.ErrConflict
	}
	u.ID = f.nextID
	f.nextID++
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByID(ctx context.Context, id int) (*model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func newTestService() *Service {
	return NewService(newFakeUsers(), "secret", time.Hour, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	u, err := s.Register(ctx, " Ada@Museum.org ", "longenough", "Ada")
	if err != nil {
		t.Fatalf("Register() err=%v", err)
	}
	if u.Email != "ada@museum.org" || u.Role != "curator" || u.PasswordHash == "longenough" {
		t.Fatalf("Register() user=%+v", u)
	}

	token, got, err := s.Login(ctx, "ada@museum.org", "longenough")
	if err != nil {
		t.Fatalf("Login() err=%v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("Login() user id=%d, want %d", got.ID, u.ID)
	}
	claims, err := util.ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT() err=%v", err)
	}
	if claims.UserID != u.ID || claims.Role != "curator" {
		t.Fatalf("claims=%+v", claims)
	}
}

func TestRegister_Errors(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "ada@museum.org", "longenough", ""); err != nil {
		t.Fatalf("Register() err=%v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"duplicate", "ada@museum.org", "longenough", ErrEmailExists},
		{"bad email", "not-an-email", "longenough", ErrInvalidInput},
		{"short password", "bob@museum.org", "short", ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Register(ctx, tt.email, tt.password, ""); !errors.Is(err, tt.want) {
				t.Fatalf("Register() err=%v, want %v", err, tt.want)
			}
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	s.Register(ctx, "ada@museum.org", "longenough", "")

	if _, _, err := s.Login(ctx, "ada@museum.org", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login(wrong password) err=%v, want ErrInvalidCredentials", err)
	}
	if _, _, err := s.Login(ctx, "nobody@museum.org", "longenough"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login(unknown) err=%v, want ErrInvalidCredentials", err)
	}
}

func TestProfile(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	u, err := s.Register(ctx, "lin@museum.org", "password123", "Lin")
	if err != nil {
		t.Fatalf("Register() err=%v", err)
	}

	got, err := s.Profile(ctx, u.ID)
	if err != nil || got.Email != "lin@museum.org" {
		t.Fatalf("Profile() = %v, %v", got, err)
	}
	if _, err := s.Profile(ctx, u.ID+100); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Profile(unknown) err=%v, want ErrNotFound", err)
	}
}
