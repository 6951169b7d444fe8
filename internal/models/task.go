package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusOnHold     TaskStatus = "on-hold"
)

// AllTaskStatuses lists statuses in display order.
var AllTaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusCancelled,
	TaskStatusOnHold,
}

// OpenTaskStatuses are the statuses a task can be overdue in.
var OpenTaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusOnHold,
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

type Task struct {
	ID             string       `gorm:"type:varchar(36);primaryKey" json:"id" bson:"_id"`
	Title          string       `gorm:"type:varchar(200);not null" json:"title" bson:"title"`
	Description    string       `gorm:"type:text" json:"description" bson:"description"`
	Status         TaskStatus   `gorm:"type:varchar(20);not null;index" json:"status" bson:"status"`
	Priority       TaskPriority `gorm:"type:varchar(10);not null;index" json:"priority" bson:"priority"`
	DueDate        *time.Time   `gorm:"index" json:"due_date" bson:"due_date"`
	AssignedToID   *string      `gorm:"type:varchar(36);index" json:"assigned_to_id" bson:"assigned_to_id"`
	CreatedByID    string       `gorm:"type:varchar(36);not null;index" json:"created_by_id" bson:"created_by_id"`
	Tags           []string     `gorm:"serializer:json" json:"tags" bson:"tags"`
	EstimatedHours float64      `gorm:"not null;default:0" json:"estimated_hours" bson:"estimated_hours"`
	ActualHours    float64      `gorm:"not null;default:0" json:"actual_hours" bson:"actual_hours"`
	CompletedAt    *time.Time   `json:"completed_at" bson:"completed_at"`
	IsArchived     bool         `gorm:"not null;index" json:"is_archived" bson:"is_archived"`
	ArchivedAt     *time.Time   `json:"archived_at" bson:"archived_at"`
	CreatedAt      time.Time    `gorm:"index" json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" bson:"updated_at"`

	// Relations
	Creator     *User            `gorm:"foreignKey:CreatedByID" json:"creator,omitempty" bson:"-"`
	Assignee    *User            `gorm:"foreignKey:AssignedToID" json:"assignee,omitempty" bson:"-"`
	Comments    []TaskComment    `gorm:"foreignKey:TaskID" json:"comments" bson:"comments"`
	TimeLogs    []TaskTimeLog    `gorm:"foreignKey:TaskID" json:"time_logs" bson:"time_logs"`
	Attachments []TaskAttachment `gorm:"foreignKey:TaskID" json:"attachments" bson:"attachments"`
}

type TaskComment struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id" bson:"id"`
	TaskID    string     `gorm:"type:varchar(36);not null;index" json:"task_id" bson:"-"`
	AuthorID  string     `gorm:"type:varchar(36);not null" json:"author_id" bson:"author_id"`
	Content   string     `gorm:"type:text;not null" json:"content" bson:"content"`
	IsEdited  bool       `gorm:"not null" json:"is_edited" bson:"is_edited"`
	EditedAt  *time.Time `json:"edited_at" bson:"edited_at"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty" bson:"-"`
}

type TaskTimeLog struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id" bson:"id"`
	TaskID      string    `gorm:"type:varchar(36);not null;index" json:"task_id" bson:"-"`
	UserID      string    `gorm:"type:varchar(36);not null" json:"user_id" bson:"user_id"`
	StartTime   time.Time `gorm:"not null" json:"start_time" bson:"start_time"`
	EndTime     time.Time `gorm:"not null" json:"end_time" bson:"end_time"`
	Duration    int64     `gorm:"not null" json:"duration" bson:"duration"`
	Description string    `gorm:"type:varchar(500)" json:"description" bson:"description"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

type TaskAttachment struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id" bson:"id"`
	TaskID       string    `gorm:"type:varchar(36);not null;index" json:"task_id" bson:"-"`
	Filename     string    `gorm:"type:varchar(255);not null" json:"filename" bson:"filename"`
	OriginalName string    `gorm:"type:varchar(255);not null" json:"original_name" bson:"original_name"`
	Path         string    `gorm:"type:varchar(512);not null" json:"path" bson:"path"`
	Size         int64     `gorm:"not null" json:"size" bson:"size"`
	Mimetype     string    `gorm:"type:varchar(127)" json:"mimetype" bson:"mimetype"`
	UploadedByID string    `gorm:"type:varchar(36);not null" json:"uploaded_by_id" bson:"uploaded_by_id"`
	UploadedAt   time.Time `json:"uploaded_at" bson:"uploaded_at"`
}

// TaskCounts is the raw aggregate the statistics are derived from.
type TaskCounts struct {
	Total          int64                `bson:"total"`
	ByStatus       map[TaskStatus]int64 `bson:"-"`
	Overdue        int64                `bson:"overdue"`
	EstimatedHours float64              `bson:"estimated_hours"`
	ActualHours    float64              `bson:"actual_hours"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (c *TaskComment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (l *TaskTimeLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

func (a *TaskAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Normalize re-establishes the timestamp invariants after a mutation:
// CompletedAt is set iff the task is completed, ArchivedAt iff it is archived.
// Existing timestamps are kept so repeated saves do not move them.
func (t *Task) Normalize(now time.Time) {
	if t.Status == TaskStatusCompleted {
		if t.CompletedAt == nil {
			completed := now
			t.CompletedAt = &completed
		}
	} else {
		t.CompletedAt = nil
	}

	if t.IsArchived {
		if t.ArchivedAt == nil {
			archived := now
			t.ArchivedAt = &archived
		}
	} else {
		t.ArchivedAt = nil
	}
}

// IsOverdue reports whether the due date has passed while the task is still open.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || !t.DueDate.Before(now) {
		return false
	}
	return IsOpenStatus(t.Status)
}

// Progress returns a completion percentage in [0, 100].
func (t *Task) Progress() int {
	switch t.Status {
	case TaskStatusCompleted:
		return 100
	case TaskStatusCancelled:
		return 0
	}

	if t.EstimatedHours > 0 && t.ActualHours > 0 {
		return int(math.Min(math.Round(t.ActualHours/t.EstimatedHours*100), 100))
	}

	switch t.Status {
	case TaskStatusInProgress:
		return 50
	case TaskStatusOnHold:
		return 25
	default:
		return 0
	}
}

// IsParticipant reports whether userID is the creator or the assignee.
func (t *Task) IsParticipant(userID string) bool {
	if t.CreatedByID == userID {
		return true
	}
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

func IsOpenStatus(s TaskStatus) bool {
	for _, open := range OpenTaskStatuses {
		if s == open {
			return true
		}
	}
	return false
}

func ValidTaskStatus(s TaskStatus) bool {
	for _, known := range AllTaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}
