package services

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/repository"
)

// UserService handles profile, preference and administration of users.
type UserService struct {
	users repository.UserRepository
	log   logrus.FieldLogger
}

// NewUserService creates a new UserService
func NewUserService(users repository.UserRepository, log logrus.FieldLogger) *UserService {
	return &UserService{users: users, log: log}
}

// UpdateProfileInput holds the optional profile fields to change
type UpdateProfileInput struct {
	Name     *string
	Bio      *string
	Phone    *string
	Location *string
}

// UpdatePreferencesInput holds the optional preference fields to change
type UpdatePreferencesInput struct {
	EmailNotifications *bool
	PushNotifications  *bool
	SMSNotifications   *bool
	Theme              *models.Theme
	Language           *string
	Timezone           *string
}

// ListUsersInput represents filters for listing users
type ListUsersInput struct {
	Search   string
	Page     int
	PageSize int
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			return nil, ErrUserNotFound
		}
		return nil, pkgerrors.Wrap(err, "failed to find user")
	}
	return user, nil
}

// GetPublicUser retrieves an active user for public display.
func (s *UserService) GetPublicUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile applies a partial update to the name and profile.
func (s *UserService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apierrors.Validation("Name cannot be empty")
		}
		user.Name = name
	}
	if input.Bio != nil {
		user.Profile.Bio = strings.TrimSpace(*input.Bio)
	}
	if input.Phone != nil {
		user.Profile.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Location != nil {
		user.Profile.Location = strings.TrimSpace(*input.Location)
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to update profile")
	}
	return user, nil
}

// UpdatePreferences applies a partial update to the preferences.
func (s *UserService) UpdatePreferences(ctx context.Context, id string, input UpdatePreferencesInput) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	prefs := &user.Preferences
	if input.EmailNotifications != nil {
		prefs.Notifications.Email = *input.EmailNotifications
	}
	if input.PushNotifications != nil {
		prefs.Notifications.Push = *input.PushNotifications
	}
	if input.SMSNotifications != nil {
		prefs.Notifications.SMS = *input.SMSNotifications
	}
	if input.Theme != nil {
		if !models.ValidTheme(*input.Theme) {
			return nil, apierrors.Validationf("Invalid theme %q", *input.Theme)
		}
		prefs.Theme = *input.Theme
	}
	if input.Language != nil {
		prefs.Language = strings.TrimSpace(*input.Language)
	}
	if input.Timezone != nil {
		prefs.Timezone = strings.TrimSpace(*input.Timezone)
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to update preferences")
	}
	return user, nil
}

// ListUsers returns active users matching the search, ordered by name.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) ([]models.User, int64, error) {
	users, total, err := s.users.List(ctx, repository.UserFilter{
		Search:     input.Search,
		ActiveOnly: true,
		Page:       input.Page,
		PageSize:   input.PageSize,
	})
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "failed to list users")
	}
	return users, total, nil
}

// SetActive activates or deactivates a user. Admins cannot deactivate themselves.
func (s *UserService) SetActive(ctx context.Context, actorID, targetID string, active bool) (*models.User, error) {
	if actorID == targetID && !active {
		return nil, ErrCannotDeactivateSelf
	}

	user, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetActive(ctx, user.ID, active); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to update user status")
	}
	user.IsActive = active

	s.log.WithFields(logrus.Fields{"actor_id": actorID, "user_id": targetID, "active": active}).Info("user status changed")
	return user, nil
}
