package services

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/taskboard-api/internal/auth"
	"github.com/yukikurage/taskboard-api/internal/constants"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/repository"
	"github.com/yukikurage/taskboard-api/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles authentication related business logic.
type AuthService struct {
	users    repository.UserRepository
	tokens   *auth.TokenIssuer
	log      logrus.FieldLogger
	now      func() time.Time
	hashCost int
}

// NewAuthService creates a new AuthService.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenIssuer, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		log:      log,
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by successful registration and login.
type AuthResult struct {
	Token string
	User  *models.User
}

// Register creates a new user and issues a token for it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apierrors.Validation("Name is required")
	}
	if !validation.StrongPassword(input.Password) {
		return nil, ErrWeakPassword
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, pkgerrors.Wrap(err, "failed to check email")
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsActive:     true,
		Preferences:  models.DefaultPreferences(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, pkgerrors.Wrap(err, "failed to create user")
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return s.issue(user)
}

// Login verifies credentials, maintains the lockout counters and issues a token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, pkgerrors.Wrap(err, "failed to find user")
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if user.IsLocked(now) {
		return nil, ErrAccountLocked
	}
	if user.LockUntil != nil {
		// The previous lock has expired; start counting afresh.
		user.LockUntil = nil
		user.LoginAttempts = 0
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		user.LoginAttempts++
		if user.LoginAttempts >= constants.MaxLoginAttempts {
			lockUntil := now.Add(constants.LockDuration)
			user.LockUntil = &lockUntil
			s.log.WithField("user_id", user.ID).Warn("account locked after repeated failed logins")
		}
		if err := s.users.SaveLoginState(ctx, user); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to record login attempt")
		}
		return nil, ErrInvalidCredentials
	}

	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLogin = &now
	if err := s.users.SaveLoginState(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to record login")
	}

	return s.issue(user)
}

// ChangePassword replaces the password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrIncorrectPassword
	}
	if !validation.StrongPassword(next) {
		return ErrWeakPassword
	}

	hash, err := s.hashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(err, "failed to update password")
	}
	return nil
}

// Authenticate resolves a bearer token to an active user.
// Any token or account problem is reported as unauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apierrors.Unauthenticated("Token expired")
		}
		return nil, apierrors.Unauthenticated("Invalid token")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			return nil, apierrors.Unauthenticated("User no longer exists")
		}
		return nil, pkgerrors.Wrap(err, "failed to load user")
	}
	if !user.IsActive {
		return nil, apierrors.Unauthenticated("User account is deactivated")
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			return nil, ErrUserNotFound
		}
		return nil, pkgerrors.Wrap(err, "failed to find user")
	}
	return user, nil
}

// TokenTTL returns the validity period of issued tokens.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to sign token")
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}
