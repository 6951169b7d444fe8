package dto

import (
	"time"

	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/services"
	"github.com/yukikurage/taskboard-api/internal/utils"
)

// PaginationDTO is the pagination block of list responses
type PaginationDTO = utils.PaginationResponse

// CommentDTO represents a task comment in API responses
type CommentDTO struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	Author    *UserSummaryDTO `json:"author,omitempty"`
	AuthorID  string          `json:"author_id"`
	IsEdited  bool            `json:"is_edited"`
	EditedAt  *time.Time      `json:"edited_at"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TimeLogDTO represents a time log in API responses
type TimeLogDTO struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Duration    int64     `json:"duration"`
	Description string    `json:"description"`
}

// AttachmentDTO represents attachment metadata in API responses
type AttachmentDTO struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	Mimetype     string    `json:"mimetype"`
	UploadedByID string    `json:"uploaded_by"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// TaskDTO represents a task in API responses, including derived fields
type TaskDTO struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Status         models.TaskStatus   `json:"status"`
	Priority       models.TaskPriority `json:"priority"`
	DueDate        *time.Time          `json:"due_date"`
	Tags           []string            `json:"tags"`
	EstimatedHours float64             `json:"estimated_hours"`
	ActualHours    float64             `json:"actual_hours"`
	CompletedAt    *time.Time          `json:"completed_at"`
	IsArchived     bool                `json:"is_archived"`
	ArchivedAt     *time.Time          `json:"archived_at"`
	CreatedByID    string              `json:"created_by_id"`
	AssignedToID   *string             `json:"assigned_to_id"`
	Creator        *UserSummaryDTO     `json:"creator,omitempty"`
	Assignee       *UserSummaryDTO     `json:"assignee,omitempty"`
	IsOverdue      bool                `json:"is_overdue"`
	Progress       int                 `json:"progress"`
	Comments       []CommentDTO        `json:"comments,omitempty"`
	TimeLogs       []TimeLogDTO        `json:"time_logs,omitempty"`
	Attachments    []AttachmentDTO     `json:"attachments,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Success    bool          `json:"success"`
	Tasks      []TaskDTO     `json:"tasks"`
	Pagination PaginationDTO `json:"pagination"`
}

// TaskStatsDTO represents the statistics overview
type TaskStatsDTO struct {
	Total          int64                       `json:"total"`
	ByStatus       map[models.TaskStatus]int64 `json:"by_status"`
	Overdue        int64                       `json:"overdue"`
	CompletionRate float64                     `json:"completion_rate"`
	EstimatedHours float64                     `json:"estimated_hours"`
	ActualHours    float64                     `json:"actual_hours"`
	Efficiency     float64                     `json:"efficiency"`
}

// CreateTaskRequest is the body of POST /api/tasks
type CreateTaskRequest struct {
	Title          string     `json:"title" binding:"required,max=200"`
	Description    string     `json:"description" binding:"max=2000"`
	Status         string     `json:"status" binding:"omitempty,taskstatus"`
	Priority       string     `json:"priority" binding:"omitempty,taskpriority"`
	DueDate        *time.Time `json:"due_date"`
	AssignedTo     *string    `json:"assigned_to" binding:"omitempty,uuid"`
	Tags           []string   `json:"tags" binding:"max=10,dive,max=30"`
	EstimatedHours float64    `json:"estimated_hours" binding:"gte=0,lte=1000"`
	ActualHours    float64    `json:"actual_hours" binding:"gte=0,lte=1000"`
}

// UpdateTaskRequest is the body of PUT /api/tasks/:id. due_date and assigned_to accept null.
type UpdateTaskRequest struct {
	Title          *string             `json:"title" binding:"omitempty,max=200"`
	Description    *string             `json:"description" binding:"omitempty,max=2000"`
	Status         *string             `json:"status" binding:"omitempty,taskstatus"`
	Priority       *string             `json:"priority" binding:"omitempty,taskpriority"`
	DueDate        Nullable[time.Time] `json:"due_date"`
	AssignedTo     Nullable[string]    `json:"assigned_to"`
	Tags           *[]string           `json:"tags" binding:"omitempty,max=10,dive,max=30"`
	EstimatedHours *float64            `json:"estimated_hours" binding:"omitempty,gte=0,lte=1000"`
	ActualHours    *float64            `json:"actual_hours" binding:"omitempty,gte=0,lte=1000"`
	IsArchived     *bool               `json:"is_archived"`
}

// CommentRequest is the body of comment create and edit
type CommentRequest struct {
	Content string `json:"content" binding:"required,max=1000"`
}

// TimeLogRequest is the body of POST /api/tasks/:id/time-logs
type TimeLogRequest struct {
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	Description string    `json:"description" binding:"max=500"`
}

// GenerateTasksRequest is the body of POST /api/tasks/generate
type GenerateTasksRequest struct {
	Text string `json:"text" binding:"required,max=5000"`
}

// ToCreateTaskInput converts the request to service input
func (r CreateTaskRequest) ToCreateTaskInput() services.CreateTaskInput {
	return services.CreateTaskInput{
		Title:          r.Title,
		Description:    r.Description,
		Status:         models.TaskStatus(r.Status),
		Priority:       models.TaskPriority(r.Priority),
		DueDate:        r.DueDate,
		AssignedTo:     r.AssignedTo,
		Tags:           r.Tags,
		EstimatedHours: r.EstimatedHours,
		ActualHours:    r.ActualHours,
	}
}

// ToUpdateTaskInput converts the request to service input
func (r UpdateTaskRequest) ToUpdateTaskInput() services.UpdateTaskInput {
	input := services.UpdateTaskInput{
		Title:          r.Title,
		Description:    r.Description,
		Tags:           r.Tags,
		EstimatedHours: r.EstimatedHours,
		ActualHours:    r.ActualHours,
		IsArchived:     r.IsArchived,
		DueDate:        r.DueDate.Value,
		ClearDueDate:   r.DueDate.IsNull(),
		AssignedTo:     r.AssignedTo.Value,
		Unassign:       r.AssignedTo.IsNull(),
	}
	if r.Status != nil {
		status := models.TaskStatus(*r.Status)
		input.Status = &status
	}
	if r.Priority != nil {
		priority := models.TaskPriority(*r.Priority)
		input.Priority = &priority
	}
	return input
}

// ToTaskDTO converts a Task model to TaskDTO, deriving is_overdue and progress at now
func ToTaskDTO(task models.Task, now time.Time) TaskDTO {
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}

	dto := TaskDTO{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		Status:         task.Status,
		Priority:       task.Priority,
		DueDate:        task.DueDate,
		Tags:           tags,
		EstimatedHours: task.EstimatedHours,
		ActualHours:    task.ActualHours,
		CompletedAt:    task.CompletedAt,
		IsArchived:     task.IsArchived,
		ArchivedAt:     task.ArchivedAt,
		CreatedByID:    task.CreatedByID,
		AssignedToID:   task.AssignedToID,
		Creator:        ToUserSummaryDTO(task.Creator),
		Assignee:       ToUserSummaryDTO(task.Assignee),
		IsOverdue:      task.IsOverdue(now),
		Progress:       task.Progress(),
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}

	// Include sub-records if loaded
	if len(task.Comments) > 0 {
		dto.Comments = make([]CommentDTO, len(task.Comments))
		for i, comment := range task.Comments {
			dto.Comments[i] = CommentDTO{
				ID:        comment.ID,
				Content:   comment.Content,
				Author:    ToUserSummaryDTO(comment.Author),
				AuthorID:  comment.AuthorID,
				IsEdited:  comment.IsEdited,
				EditedAt:  comment.EditedAt,
				CreatedAt: comment.CreatedAt,
				UpdatedAt: comment.UpdatedAt,
			}
		}
	}
	if len(task.TimeLogs) > 0 {
		dto.TimeLogs = make([]TimeLogDTO, len(task.TimeLogs))
		for i, log := range task.TimeLogs {
			dto.TimeLogs[i] = TimeLogDTO{
				ID:          log.ID,
				UserID:      log.UserID,
				StartTime:   log.StartTime,
				EndTime:     log.EndTime,
				Duration:    log.Duration,
				Description: log.Description,
			}
		}
	}
	if len(task.Attachments) > 0 {
		dto.Attachments = make([]AttachmentDTO, len(task.Attachments))
		for i, a := range task.Attachments {
			dto.Attachments[i] = AttachmentDTO{
				ID:           a.ID,
				Filename:     a.Filename,
				OriginalName: a.OriginalName,
				Path:         a.Path,
				Size:         a.Size,
				Mimetype:     a.Mimetype,
				UploadedByID: a.UploadedByID,
				UploadedAt:   a.UploadedAt,
			}
		}
	}

	return dto
}

// ToTaskListResponse converts a page of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, pagination PaginationDTO, now time.Time) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task, now)
	}

	return TaskListResponse{
		Success:    true,
		Tasks:      items,
		Pagination: pagination,
	}
}

// ToTaskStatsDTO converts service statistics to TaskStatsDTO
func ToTaskStatsDTO(stats services.TaskStats) TaskStatsDTO {
	return TaskStatsDTO{
		Total:          stats.Total,
		ByStatus:       stats.ByStatus,
		Overdue:        stats.Overdue,
		CompletionRate: stats.CompletionRate,
		EstimatedHours: stats.EstimatedHours,
		ActualHours:    stats.ActualHours,
		Efficiency:     stats.Efficiency,
	}
}
