package dto

import (
	"time"

	"github.com/yukikurage/taskboard-api/internal/models"
)

// UserSummaryDTO is the compact form of a user embedded in task responses
type UserSummaryDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserDTO is the full view of the authenticated user's own account
type UserDTO struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Role        models.UserRole    `json:"role"`
	IsActive    bool               `json:"is_active"`
	IsVerified  bool               `json:"is_verified"`
	LastLogin   *time.Time         `json:"last_login"`
	Preferences models.Preferences `json:"preferences"`
	Profile     models.Profile     `json:"profile"`
	Stats       models.UserStats   `json:"stats"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// PublicUserDTO is what other users may see. Email is omitted for anonymous callers.
type PublicUserDTO struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email,omitempty"`
	Role      models.UserRole `json:"role"`
	Profile   models.Profile  `json:"profile"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Success bool    `json:"success"`
	Token   string  `json:"token"`
	User    UserDTO `json:"user"`
}

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,strongpassword"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest is the body of PUT /api/auth/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,strongpassword"`
}

// ProfileRequest holds the optional profile fields
type ProfileRequest struct {
	Bio      *string `json:"bio" binding:"omitempty,max=500"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
	Location *string `json:"location" binding:"omitempty,max=100"`
}

// UpdateProfileRequest is the body of PUT /api/users/profile
type UpdateProfileRequest struct {
	Name    *string         `json:"name" binding:"omitempty,min=2,max=50"`
	Profile *ProfileRequest `json:"profile"`
}

// NotificationsRequest holds the optional notification channel switches
type NotificationsRequest struct {
	Email *bool `json:"email"`
	Push  *bool `json:"push"`
	SMS   *bool `json:"sms"`
}

// UpdatePreferencesRequest is the body of PUT /api/users/preferences
type UpdatePreferencesRequest struct {
	Notifications *NotificationsRequest `json:"notifications"`
	Theme         *string               `json:"theme" binding:"omitempty,theme"`
	Language      *string               `json:"language" binding:"omitempty,min=2,max=10"`
	Timezone      *string               `json:"timezone" binding:"omitempty,max=64"`
}

// UserStatusRequest is the body of PATCH /api/users/:id/status
type UserStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Success    bool            `json:"success"`
	Users      []PublicUserDTO `json:"users"`
	Pagination PaginationDTO   `json:"pagination"`
}

// ToUserSummaryDTO converts a User model to UserSummaryDTO
func ToUserSummaryDTO(user *models.User) *UserSummaryDTO {
	if user == nil || user.ID == "" {
		return nil
	}
	return &UserSummaryDTO{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		IsActive:    user.IsActive,
		IsVerified:  user.IsVerified,
		LastLogin:   user.LastLogin,
		Preferences: user.Preferences,
		Profile:     user.Profile,
		Stats:       user.Stats,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

// ToPublicUserDTO converts a User model to PublicUserDTO
func ToPublicUserDTO(user models.User, includeEmail bool) PublicUserDTO {
	dto := PublicUserDTO{
		ID:        user.ID,
		Name:      user.Name,
		Role:      user.Role,
		Profile:   user.Profile,
		CreatedAt: user.CreatedAt,
	}
	if includeEmail {
		dto.Email = user.Email
	}
	return dto
}

// ToUserListResponse converts a page of users to UserListResponse
func ToUserListResponse(users []models.User, pagination PaginationDTO) UserListResponse {
	items := make([]PublicUserDTO, len(users))
	for i, user := range users {
		items[i] = ToPublicUserDTO(user, true)
	}
	return UserListResponse{
		Success:    true,
		Users:      items,
		Pagination: pagination,
	}
}
