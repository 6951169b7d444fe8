package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser    UserRole = "user"
	RoleManager UserRole = "manager"
	RoleAdmin   UserRole = "admin"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

type NotificationPreferences struct {
	Email bool `gorm:"not null" json:"email" bson:"email"`
	Push  bool `gorm:"not null" json:"push" bson:"push"`
	SMS   bool `gorm:"not null" json:"sms" bson:"sms"`
}

type Preferences struct {
	Notifications NotificationPreferences `gorm:"embedded;embeddedPrefix:notify_" json:"notifications" bson:"notifications"`
	Theme         Theme                   `gorm:"type:varchar(10);not null;default:'auto'" json:"theme" bson:"theme"`
	Language      string                  `gorm:"type:varchar(10);not null;default:'en'" json:"language" bson:"language"`
	Timezone      string                  `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone" bson:"timezone"`
}

type Profile struct {
	Bio      string `gorm:"type:varchar(500)" json:"bio" bson:"bio"`
	Phone    string `gorm:"type:varchar(20)" json:"phone" bson:"phone"`
	Location string `gorm:"type:varchar(100)" json:"location" bson:"location"`
}

// UserStats are counters maintained as a side effect of task lifecycle events.
type UserStats struct {
	TasksCreated   int64 `gorm:"not null;default:0" json:"tasks_created" bson:"tasks_created"`
	TasksCompleted int64 `gorm:"not null;default:0" json:"tasks_completed" bson:"tasks_completed"`
	TotalTimeSpent int64 `gorm:"not null;default:0" json:"total_time_spent" bson:"total_time_spent"`
}

type User struct {
	ID            string      `gorm:"type:varchar(36);primaryKey" json:"id" bson:"_id"`
	Name          string      `gorm:"type:varchar(50);not null" json:"name" bson:"name"`
	Email         string      `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" bson:"email"`
	PasswordHash  string      `gorm:"type:varchar(255);not null" json:"-" bson:"password_hash"`
	Role          UserRole    `gorm:"type:varchar(20);not null;default:'user'" json:"role" bson:"role"`
	IsActive      bool        `gorm:"not null;index" json:"is_active" bson:"is_active"`
	IsVerified    bool        `gorm:"not null" json:"is_verified" bson:"is_verified"`
	LoginAttempts int         `gorm:"not null;default:0" json:"-" bson:"login_attempts"`
	LockUntil     *time.Time  `json:"-" bson:"lock_until,omitempty"`
	LastLogin     *time.Time  `json:"last_login" bson:"last_login,omitempty"`
	Preferences   Preferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences" bson:"preferences"`
	Profile       Profile     `gorm:"embedded;embeddedPrefix:profile_" json:"profile" bson:"profile"`
	Stats         UserStats   `gorm:"embedded;embeddedPrefix:stats_" json:"stats" bson:"stats"`
	CreatedAt     time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" bson:"updated_at"`
}

// BeforeCreate assigns an identifier when the caller did not.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsLocked reports whether a lockout is in effect at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// DefaultPreferences returns the preferences given to newly registered users.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: NotificationPreferences{Email: true, Push: true},
		Theme:         ThemeAuto,
		Language:      "en",
		Timezone:      "UTC",
	}
}

func ValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

func ValidTheme(t Theme) bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeAuto:
		return true
	}
	return false
}
