package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chapter-quiz-service/internal/domain"
	"chapter-quiz-service/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

// AuthService checks credentials and manages login sessions.
type AuthService struct {
	users    UserStore
	sessions SessionRepository
	cost     int
	log      *logger.Logger
}

// NewAuthService builds the service. A cost of 0 means bcrypt.DefaultCost.
func NewAuthService(users UserStore, sessions SessionRepository, cost int, log *logger.Logger) *AuthService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, sessions: sessions, cost: cost, log: log.With("service", "AuthService")}
}

// Login verifies the password and opens a session, returning its token.
func (s *AuthService) Login(ctx context.Context, userID, password string) (domain.Identity, string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || password == "" {
		return domain.Identity{}, "", domain.ErrMissingCredentials
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Info("login rejected", "user_id", userID, "reason", "unknown user")
			return domain.Identity{}, "", domain.ErrUnauthorized
		}
		s.log.Error("load user failed", "user_id", userID, "error", err)
		return domain.Identity{}, "", &domain.PersistenceError{Op: "load user", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Info("login rejected", "user_id", userID, "reason", "password mismatch")
		return domain.Identity{}, "", domain.ErrUnauthorized
	}

	identity := domain.Identity{UserID: user.ID, DisplayName: user.Name()}
	token, err := s.sessions.Create(ctx, identity)
	if err != nil {
		s.log.Error("create session failed", "user_id", userID, "error", err)
		return domain.Identity{}, "", &domain.PersistenceError{Op: "create session", Err: err}
	}
	s.log.Info("login", "user_id", userID)
	return identity, token, nil
}

// Authenticate resolves a session token to its identity.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	identity, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return domain.Identity{}, err
		}
		s.log.Error("load session failed", "error", err)
		return domain.Identity{}, &domain.PersistenceError{Op: "load session", Err: err}
	}
	return identity, nil
}

// Logout ends the session. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		s.log.Error("delete session failed", "error", err)
		return &domain.PersistenceError{Op: "delete session", Err: err}
	}
	return nil
}

// Register provisions an account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, userID, displayName, password string) (domain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || password == "" {
		return domain.User{}, domain.ErrMissingCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           userID,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return domain.User{}, err
		}
		return domain.User{}, &domain.PersistenceError{Op: "create user", Err: err}
	}
	s.log.Info("user registered", "user_id", userID)
	return user, nil
}
