package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/taskboard-api/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateKey is returned when a write violates a unique constraint.
	ErrDuplicateKey = errors.New("repository: duplicate key")
	// ErrInvalidID is returned when an identifier is not a well-formed UUID.
	ErrInvalidID = errors.New("repository: invalid identifier")
)

// TaskRepository defines the interface for task data access.
// Reads return tasks with creator, assignee, and comment authors resolved.
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID
	FindByID(ctx context.Context, id string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update persists the scalar fields of a task
	Update(ctx context.Context, task *models.Task) error

	// Delete permanently removes a task and its sub-records
	Delete(ctx context.Context, id string) error

	// AddComment appends a comment to a task
	AddComment(ctx context.Context, taskID string, comment *models.TaskComment) error

	// UpdateComment rewrites the content and edit markers of a comment
	UpdateComment(ctx context.Context, taskID string, comment *models.TaskComment) error

	// DeleteComment removes a comment from a task
	DeleteComment(ctx context.Context, taskID, commentID string) error

	// AddTimeLog appends a time log and adds its duration to the task's actual hours
	AddTimeLog(ctx context.Context, taskID string, log *models.TaskTimeLog) error

	// AddAttachments appends attachment metadata to a task
	AddAttachments(ctx context.Context, taskID string, attachments []models.TaskAttachment) error

	// DeleteAttachment removes attachment metadata from a task
	DeleteAttachment(ctx context.Context, taskID, attachmentID string) error

	// Stats aggregates the non-archived tasks a user created or is assigned to
	Stats(ctx context.Context, userID string, now time.Time) (*models.TaskCounts, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	UserID          string
	AssignedToMe    bool
	Status          *models.TaskStatus
	Priority        *models.TaskPriority
	IncludeArchived bool
	SortByDueDate   bool
	Page            int
	PageSize        int
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	Search     string
	ActiveOnly bool
	Page       int
	PageSize   int
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByEmail finds a user by (lower-cased) email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users with filtering and pagination
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)

	// UpdateProfile persists name, profile and preferences
	UpdateProfile(ctx context.Context, user *models.User) error

	// UpdatePassword replaces the stored password hash
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SaveLoginState persists login attempts, lockout and last login
	SaveLoginState(ctx context.Context, user *models.User) error

	// IncrementStats adds delta to the user's task counters
	IncrementStats(ctx context.Context, id string, delta models.UserStats) error

	// SetActive activates or deactivates a user
	SetActive(ctx context.Context, id string, active bool) error
}

// Repositories bundles the repositories of one storage backend.
type Repositories struct {
	Users UserRepository
	Tasks TaskRepository
}

func pageOffset(page, pageSize int) (offset, limit int, ok bool) {
	if page <= 0 || pageSize <= 0 {
		return 0, 0, false
	}
	return (page - 1) * pageSize, pageSize, true
}
