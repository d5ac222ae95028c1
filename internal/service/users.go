package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/caseclarity/backend/internal/auth"
	"github.com/caseclarity/backend/internal/db"
	"github.com/caseclarity/backend/internal/models"
)

// IdentityProvider is the part of the auth provider user management needs.
type IdentityProvider interface {
	EmailInUse(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, u auth.NewUser) (string, error)
	GetAccount(ctx context.Context, uid string) (auth.Account, error)
	DeleteUser(ctx context.Context, uid string) error
}

type CreateUserInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
	Role     string `json:"role" validate:"required,oneof=lawyer admin"`
	Status   string `json:"status" validate:"required,oneof=active inactive"`
}

// RegisterInput completes the profile of an already authenticated account.
// The email always comes from the auth provider.
type RegisterInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type UserService struct {
	Store  db.Store
	Auth   IdentityProvider
	Logger zerolog.Logger
	Now    func() time.Time

	// BootstrapAdminEmail gets the admin role on self registration when the
	// provider reports it verified.
	BootstrapAdminEmail string
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.Store.ListUsers(ctx)
}

// Create registers the auth account and then the user document. A duplicate
// email in either place is ErrEmailInUse and leaves no auth account behind.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (models.User, error) {
	if s.Auth == nil {
		return models.User{}, ErrAuthUnavailable
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	_, err := s.Store.GetUserByEmail(ctx, email)
	if err == nil {
		return models.User{}, ErrEmailInUse
	}
	if !errors.Is(err, db.ErrNotFound) {
		return models.User{}, err
	}

	inUse, err := s.Auth.EmailInUse(ctx, email)
	if err != nil {
		return models.User{}, err
	}
	if inUse {
		return models.User{}, ErrEmailInUse
	}

	uid, err := s.Auth.CreateUser(ctx, auth.NewUser{
		Email:       email,
		Password:    in.Password,
		DisplayName: strings.TrimSpace(in.Name),
		Phone:       strings.TrimSpace(in.Phone),
	})
	if errors.Is(err, auth.ErrEmailExists) {
		return models.User{}, ErrEmailInUse
	}
	if err != nil {
		return models.User{}, err
	}

	now := s.now()
	u := models.User{
		ID:        uid,
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Phone:     strings.TrimSpace(in.Phone),
		Role:      in.Role,
		Status:    in.Status,
		CreatedAt: now,
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		if delErr := s.Auth.DeleteUser(ctx, uid); delErr != nil {
			s.Logger.Error().Err(delErr).Str("uid", uid).Msg("failed to roll back auth user")
		}
		if errors.Is(err, db.ErrConflict) {
			return models.User{}, ErrEmailInUse
		}
		return models.User{}, err
	}
	return u, nil
}

// Register creates the profile for uid on first sign in. It returns the
// existing profile and created=false when one is already there.
func (s *UserService) Register(ctx context.Context, uid string, in RegisterInput) (u models.User, created bool, err error) {
	if s.Auth == nil {
		return models.User{}, false, ErrAuthUnavailable
	}
	u, err = s.Store.GetUser(ctx, uid)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return models.User{}, false, err
	}

	acct, err := s.Auth.GetAccount(ctx, uid)
	if err != nil {
		return models.User{}, false, err
	}
	email := strings.ToLower(strings.TrimSpace(acct.Email))
	if email == "" {
		return models.User{}, false, ErrNoAccountEmail
	}

	owner, err := s.Store.GetUserByEmail(ctx, email)
	if err == nil && owner.ID != uid {
		return models.User{}, false, ErrEmailInUse
	}
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return models.User{}, false, err
	}

	role := models.RoleLawyer
	bootstrap := strings.ToLower(strings.TrimSpace(s.BootstrapAdminEmail))
	if bootstrap != "" && bootstrap == email && acct.EmailVerified {
		role = models.RoleAdmin
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.TrimSpace(acct.DisplayName)
	}
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		phone = acct.Phone
	}

	u = models.User{
		ID:        uid,
		Name:      name,
		Email:     email,
		Phone:     phone,
		Role:      role,
		Status:    models.UserActive,
		CreatedAt: s.now(),
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, db.ErrConflict) {
			return models.User{}, false, ErrEmailInUse
		}
		return models.User{}, false, err
	}
	return u, true, nil
}
