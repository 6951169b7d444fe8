package services

import (
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
)

var (
	ErrEmailTaken           = apierrors.Duplicate("User already exists with this email")
	ErrInvalidCredentials   = apierrors.Unauthenticated("Invalid email or password")
	ErrAccountLocked        = apierrors.New(apierrors.KindAccountLocked, "Account temporarily locked due to too many failed login attempts")
	ErrWeakPassword         = apierrors.Validation("Password must be at least 6 characters and contain an uppercase letter, a lowercase letter and a number")
	ErrIncorrectPassword    = apierrors.Validation("Current password is incorrect")
	ErrUserNotFound         = apierrors.NotFound("User not found")
	ErrCannotDeactivateSelf = apierrors.Validation("You cannot deactivate your own account")

	ErrTaskNotFound        = apierrors.NotFound("Task not found")
	ErrTaskAccessDenied    = apierrors.Forbidden("Not authorized to access this task")
	ErrNotTaskCreator      = apierrors.Forbidden("Only the task creator can delete this task")
	ErrTitleRequired       = apierrors.Validation("Task title is required")
	ErrDueDateInPast       = apierrors.Validation("Due date must be in the future")
	ErrInvalidAssignee     = apierrors.Validation("Assigned user does not exist or is inactive")
	ErrCommentNotFound     = apierrors.NotFound("Comment not found")
	ErrNotCommentAuthor    = apierrors.Forbidden("Only the comment author can modify this comment")
	ErrCommentRequired     = apierrors.Validation("Comment content is required")
	ErrInvalidTimeRange    = apierrors.Validation("End time must be at least one minute after start time")
	ErrAttachmentNotFound  = apierrors.NotFound("Attachment not found")
	ErrAttachmentForbidden = apierrors.Forbidden("Only the uploader or the task creator can remove this attachment")
	ErrNoFiles             = apierrors.New(apierrors.KindFileUpload, "No files uploaded")
	ErrTooManyFiles        = apierrors.New(apierrors.KindFileUpload, "Too many files uploaded")
	ErrFileTooLarge        = apierrors.New(apierrors.KindFileSize, "File size exceeds the allowed limit")
	ErrStorageUnavailable  = apierrors.New(apierrors.KindServiceUnavailable, "File storage is not configured")

	ErrAIServiceNotConfigured = apierrors.New(apierrors.KindServiceUnavailable, "AI service is not configured")
	ErrAIUnavailable          = apierrors.New(apierrors.KindServiceUnavailable, "AI service is temporarily unavailable")
	ErrAIMalformedResponse    = apierrors.New(apierrors.KindServiceUnavailable, "AI service returned a response that could not be read")
	ErrAINoTasksGenerated     = apierrors.Validation("AI did not generate any tasks")
	ErrAINoValidTasks         = apierrors.Validation("No valid tasks could be created from AI output")
	ErrAITooManyTasks         = apierrors.Validation("AI generated too many tasks")
)
