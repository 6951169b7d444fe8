package constants

import "time"

// Context keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyIdentity  = "identity"
	ContextKeyTask      = "task"
	ContextKeyRequestID = "request_id"
	SessionKeyToken     = "token"
	SessionCookieName   = "taskboard_session"
	HeaderRequestID     = "X-Request-ID"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Credentials
const (
	MinPasswordLength = 6
	MaxLoginAttempts  = 5
	LockDuration      = 30 * time.Minute
)

// Field bounds
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxTagLength         = 30
	MaxTags              = 10
	MaxHours             = 1000
	MaxCommentLength     = 1000
)

// Uploads
const (
	DefaultMaxUploadFiles    = 5
	DefaultMaxUploadFileSize = 10 << 20
	MultipartOverheadBytes   = 1 << 20
)

const MaxAIGeneratedTasks = 20
