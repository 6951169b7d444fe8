package services

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/taskboard-api/internal/constants"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/repository"
	"github.com/yukikurage/taskboard-api/internal/storage"
	"github.com/yukikurage/taskboard-api/internal/utils"
)

// TaskService handles task business logic
type TaskService struct {
	tasks     repository.TaskRepository
	users     repository.UserRepository
	storage   storage.Storage
	generator TaskGenerator
	log       logrus.FieldLogger
	now       func() time.Time

	maxUploadFiles    int
	maxUploadFileSize int64
}

// TaskServiceOptions configures optional collaborators of a TaskService
type TaskServiceOptions struct {
	Storage           storage.Storage
	Generator         TaskGenerator
	MaxUploadFiles    int
	MaxUploadFileSize int64
}

// NewTaskService creates a new TaskService
func NewTaskService(tasks repository.TaskRepository, users repository.UserRepository, log logrus.FieldLogger, opts TaskServiceOptions) *TaskService {
	if opts.MaxUploadFiles <= 0 {
		opts.MaxUploadFiles = constants.DefaultMaxUploadFiles
	}
	if opts.MaxUploadFileSize <= 0 {
		opts.MaxUploadFileSize = constants.DefaultMaxUploadFileSize
	}
	return &TaskService{
		tasks:             tasks,
		users:             users,
		storage:           opts.Storage,
		generator:         opts.Generator,
		log:               log,
		now:               time.Now,
		maxUploadFiles:    opts.MaxUploadFiles,
		maxUploadFileSize: opts.MaxUploadFileSize,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	UserID          string
	Status          *models.TaskStatus
	Priority        *models.TaskPriority
	AssignedToMe    bool
	IncludeArchived bool
	SortByDueDate   bool
	Page            int
	PageSize        int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title          string
	Description    string
	Status         models.TaskStatus
	Priority       models.TaskPriority
	DueDate        *time.Time
	AssignedTo     *string
	Tags           []string
	EstimatedHours float64
	ActualHours    float64
}

// UpdateTaskInput represents a partial update. Clear flags distinguish an explicit null from an absent field.
type UpdateTaskInput struct {
	Title          *string
	Description    *string
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
	DueDate        *time.Time
	ClearDueDate   bool
	AssignedTo     *string
	Unassign       bool
	Tags           *[]string
	EstimatedHours *float64
	ActualHours    *float64
	IsArchived     *bool
}

// TimeLogInput represents a span of work logged against a task
type TimeLogInput struct {
	StartTime   time.Time
	EndTime     time.Time
	Description string
}

// UploadFile is one file of a multipart upload
type UploadFile struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// ListTasks returns the tasks a user created or is assigned to
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) ([]models.Task, int64, error) {
	tasks, total, err := s.tasks.List(ctx, repository.TaskFilter{
		UserID:          input.UserID,
		AssignedToMe:    input.AssignedToMe,
		Status:          input.Status,
		Priority:        input.Priority,
		IncludeArchived: input.IncludeArchived,
		SortByDueDate:   input.SortByDueDate,
		Page:            input.Page,
		PageSize:        input.PageSize,
	})
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "failed to list tasks")
	}
	return tasks, total, nil
}

// GetTask returns a task the user participates in
func (s *TaskService) GetTask(ctx context.Context, taskID, userID string) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsParticipant(userID) {
		return nil, ErrTaskAccessDenied
	}
	return task, nil
}

// CreateTask creates a new task owned by creatorID
func (s *TaskService) CreateTask(ctx context.Context, creatorID string, input CreateTaskInput) (*models.Task, error) {
	now := s.now().UTC()

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.DueDate != nil && !input.DueDate.After(now) {
		return nil, ErrDueDateInPast
	}
	if input.AssignedTo != nil {
		if err := s.ensureAssignable(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	if input.Status == "" {
		input.Status = models.TaskStatusPending
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}

	task := &models.Task{
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		Status:         input.Status,
		Priority:       input.Priority,
		DueDate:        utcPtr(input.DueDate),
		AssignedToID:   input.AssignedTo,
		CreatedByID:    creatorID,
		Tags:           normalizeTags(input.Tags),
		EstimatedHours: input.EstimatedHours,
		ActualHours:    input.ActualHours,
	}
	task.Normalize(now)

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create task")
	}

	delta := models.UserStats{TasksCreated: 1}
	if task.Status == models.TaskStatusCompleted {
		delta.TasksCompleted = 1
	}
	s.bumpStats(ctx, creatorID, delta)

	return s.findTask(ctx, task.ID)
}

// UpdateTask applies a partial update to a task loaded for a participant
func (s *TaskService) UpdateTask(ctx context.Context, task *models.Task, input UpdateTaskInput) (*models.Task, error) {
	now := s.now().UTC()
	previousStatus := task.Status

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		if !input.DueDate.After(now) {
			return nil, ErrDueDateInPast
		}
		task.DueDate = utcPtr(input.DueDate)
	}
	if input.Unassign {
		task.AssignedToID = nil
		task.Assignee = nil
	} else if input.AssignedTo != nil {
		if err := s.ensureAssignable(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
		assignee := *input.AssignedTo
		task.AssignedToID = &assignee
	}
	if input.Tags != nil {
		task.Tags = normalizeTags(*input.Tags)
	}
	if input.EstimatedHours != nil {
		task.EstimatedHours = *input.EstimatedHours
	}
	if input.ActualHours != nil {
		task.ActualHours = *input.ActualHours
	}
	if input.IsArchived != nil {
		task.IsArchived = *input.IsArchived
	}

	task.Normalize(now)

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to update task")
	}

	if previousStatus != models.TaskStatusCompleted && task.Status == models.TaskStatusCompleted {
		s.bumpStats(ctx, task.CreatedByID, models.UserStats{TasksCompleted: 1})
	}

	return s.findTask(ctx, task.ID)
}

// DeleteTask permanently deletes a task if the actor is the creator
func (s *TaskService) DeleteTask(ctx context.Context, task *models.Task, actorID string) error {
	if task.CreatedByID != actorID {
		return ErrNotTaskCreator
	}

	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		return pkgerrors.Wrap(err, "failed to delete task")
	}

	for _, attachment := range task.Attachments {
		s.removeStoredFile(ctx, attachment.Filename)
	}
	return nil
}

// AddComment appends a comment by authorID
func (s *TaskService) AddComment(ctx context.Context, task *models.Task, authorID, content string) (*models.Task, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrCommentRequired
	}

	now := s.now().UTC()
	comment := &models.TaskComment{
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tasks.AddComment(ctx, task.ID, comment); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to add comment")
	}
	return s.findTask(ctx, task.ID)
}

// UpdateComment edits a comment; only its author may do so
func (s *TaskService) UpdateComment(ctx context.Context, task *models.Task, actorID, commentID, content string) (*models.Task, error) {
	comment, err := findComment(task, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actorID {
		return nil, ErrNotCommentAuthor
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrCommentRequired
	}

	now := s.now().UTC()
	comment.Content = content
	comment.IsEdited = true
	comment.EditedAt = &now
	comment.UpdatedAt = now
	if err := s.tasks.UpdateComment(ctx, task.ID, comment); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to update comment")
	}
	return s.findTask(ctx, task.ID)
}

// DeleteComment removes a comment; only its author may do so
func (s *TaskService) DeleteComment(ctx context.Context, task *models.Task, actorID, commentID string) (*models.Task, error) {
	comment, err := findComment(task, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actorID {
		return nil, ErrNotCommentAuthor
	}

	if err := s.tasks.DeleteComment(ctx, task.ID, commentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, pkgerrors.Wrap(err, "failed to delete comment")
	}
	return s.findTask(ctx, task.ID)
}

// AddTimeLog records work on a task and adds it to the task's actual hours
func (s *TaskService) AddTimeLog(ctx context.Context, task *models.Task, userID string, input TimeLogInput) (*models.Task, error) {
	minutes := int64(math.Round(input.EndTime.Sub(input.StartTime).Minutes()))
	if minutes < 1 {
		return nil, ErrInvalidTimeRange
	}

	log := &models.TaskTimeLog{
		UserID:      userID,
		StartTime:   input.StartTime.UTC(),
		EndTime:     input.EndTime.UTC(),
		Duration:    minutes,
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.tasks.AddTimeLog(ctx, task.ID, log); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to add time log")
	}

	s.bumpStats(ctx, userID, models.UserStats{TotalTimeSpent: minutes})
	return s.findTask(ctx, task.ID)
}

// AddAttachments stores uploaded files and records them on the task.
// Limits are checked before anything is written.
func (s *TaskService) AddAttachments(ctx context.Context, task *models.Task, uploaderID string, files []UploadFile) (*models.Task, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if len(files) > s.maxUploadFiles {
		return nil, ErrTooManyFiles
	}
	for _, f := range files {
		if f.Size > s.maxUploadFileSize {
			return nil, ErrFileTooLarge
		}
	}

	now := s.now().UTC()
	attachments := make([]models.TaskAttachment, 0, len(files))
	for _, f := range files {
		attachment, err := s.storeFile(ctx, task.ID, uploaderID, f, now)
		if err != nil {
			s.discard(ctx, attachments)
			return nil, err
		}
		attachments = append(attachments, *attachment)
	}

	if err := s.tasks.AddAttachments(ctx, task.ID, attachments); err != nil {
		s.discard(ctx, attachments)
		return nil, pkgerrors.Wrap(err, "failed to record attachments")
	}
	return s.findTask(ctx, task.ID)
}

func (s *TaskService) storeFile(ctx context.Context, taskID, uploaderID string, f UploadFile, now time.Time) (*models.TaskAttachment, error) {
	key, err := utils.GenerateStorageKey(taskID, f.Name)
	if err != nil {
		return nil, err
	}

	src, err := f.Open()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to open upload")
	}
	defer src.Close()

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	location, err := s.storage.Save(ctx, key, src, f.Size, contentType)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to store upload")
	}

	return &models.TaskAttachment{
		Filename:     key,
		OriginalName: f.Name,
		Path:         location,
		Size:         f.Size,
		Mimetype:     contentType,
		UploadedByID: uploaderID,
		UploadedAt:   now,
	}, nil
}

// DeleteAttachment removes an attachment; the uploader or the task creator may do so
func (s *TaskService) DeleteAttachment(ctx context.Context, task *models.Task, actorID, attachmentID string) (*models.Task, error) {
	var attachment *models.TaskAttachment
	for i := range task.Attachments {
		if task.Attachments[i].ID == attachmentID {
			attachment = &task.Attachments[i]
			break
		}
	}
	if attachment == nil {
		return nil, ErrAttachmentNotFound
	}
	if attachment.UploadedByID != actorID && task.CreatedByID != actorID {
		return nil, ErrAttachmentForbidden
	}

	if err := s.tasks.DeleteAttachment(ctx, task.ID, attachmentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, pkgerrors.Wrap(err, "failed to delete attachment")
	}
	s.removeStoredFile(ctx, attachment.Filename)

	return s.findTask(ctx, task.ID)
}

// TaskStats summarizes the non-archived tasks of a user
type TaskStats struct {
	Total          int64
	ByStatus       map[models.TaskStatus]int64
	Overdue        int64
	CompletionRate float64
	EstimatedHours float64
	ActualHours    float64
	Efficiency     float64
}

// Stats returns task statistics for the tasks userID created or is assigned to
func (s *TaskService) Stats(ctx context.Context, userID string) (*TaskStats, error) {
	counts, err := s.tasks.Stats(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to aggregate tasks")
	}

	byStatus := make(map[models.TaskStatus]int64, len(models.AllTaskStatuses))
	for _, status := range models.AllTaskStatuses {
		byStatus[status] = counts.ByStatus[status]
	}

	return &TaskStats{
		Total:          counts.Total,
		ByStatus:       byStatus,
		Overdue:        counts.Overdue,
		CompletionRate: percentage(float64(byStatus[models.TaskStatusCompleted]), float64(counts.Total)),
		EstimatedHours: round2(counts.EstimatedHours),
		ActualHours:    round2(counts.ActualHours),
		Efficiency:     percentage(counts.ActualHours, counts.EstimatedHours),
	}, nil
}

// GenerateTasks uses AI to suggest tasks from text. Suggestions are not persisted.
func (s *TaskService) GenerateTasks(ctx context.Context, text string) ([]GeneratedTask, error) {
	if s.generator == nil {
		return nil, ErrAIServiceNotConfigured
	}

	aiTasks, err := s.generator.GenerateTasksFromText(ctx, text)
	if err != nil {
		return nil, err
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		return nil, ErrAITooManyTasks
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	now := s.now().UTC()
	for _, aiTask := range aiTasks {
		aiTask.Title = strings.TrimSpace(aiTask.Title)
		if aiTask.Title == "" {
			continue
		}
		aiTask.Title = truncateRunes(aiTask.Title, constants.MaxTitleLength)
		if !models.ValidTaskPriority(models.TaskPriority(aiTask.Priority)) {
			aiTask.Priority = string(models.TaskPriorityMedium)
		}
		if aiTask.DueDate != nil && !aiTask.DueDate.After(now) {
			aiTask.DueDate = nil
		}
		if aiTask.EstimatedHours < 0 || aiTask.EstimatedHours > constants.MaxHours {
			aiTask.EstimatedHours = 0
		}
		aiTask.Tags = normalizeTags(aiTask.Tags)

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}
	return validTasks, nil
}

func (s *TaskService) findTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			return nil, ErrTaskNotFound
		}
		return nil, pkgerrors.Wrap(err, "failed to find task")
	}
	return task, nil
}

func (s *TaskService) ensureAssignable(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			return ErrInvalidAssignee
		}
		return pkgerrors.Wrap(err, "failed to find assignee")
	}
	if !user.IsActive {
		return ErrInvalidAssignee
	}
	return nil
}

// bumpStats updates user counters. Failures are logged, never returned.
func (s *TaskService) bumpStats(ctx context.Context, userID string, delta models.UserStats) {
	if err := s.users.IncrementStats(ctx, userID, delta); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("failed to update user statistics")
	}
}

func (s *TaskService) removeStoredFile(ctx context.Context, key string) {
	if s.storage == nil || key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("failed to remove stored file")
	}
}

func (s *TaskService) discard(ctx context.Context, attachments []models.TaskAttachment) {
	for _, a := range attachments {
		s.removeStoredFile(ctx, a.Filename)
	}
}

func findComment(task *models.Task, commentID string) (*models.TaskComment, error) {
	for i := range task.Comments {
		if task.Comments[i].ID == commentID {
			return &task.Comments[i], nil
		}
	}
	return nil, ErrCommentNotFound
}

// normalizeTags trims tags and drops empty and duplicate entries
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// percentage returns part/whole*100 rounded to two decimals, or 0 when whole is 0
func percentage(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return round2(part / whole * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// truncateRunes cuts s to at most n characters without splitting a rune
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
