package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskboard-api/internal/dto"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
	"github.com/yukikurage/taskboard-api/internal/middleware"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/services"
	"github.com/yukikurage/taskboard-api/internal/utils"
)

const uploadFormField = "files"

type TaskHandler struct {
	taskService *services.TaskService
	now         func() time.Time
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		now:         time.Now,
	}
}

// ListTasks returns the tasks the current user created or is assigned to.
// Query: status, priority, assigned_to_me, include_archived, sort, page, limit
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Respond(c, apierrors.ErrUnauthorized)
		return
	}

	input := services.ListTasksInput{UserID: userID}

	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(raw)
		if !models.ValidTaskStatus(status) {
			apierrors.Respond(c, apierrors.Validationf("Invalid status %q", raw))
			return
		}
		input.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority := models.TaskPriority(raw)
		if !models.ValidTaskPriority(priority) {
			apierrors.Respond(c, apierrors.Validationf("Invalid priority %q", raw))
			return
		}
		input.Priority = &priority
	}

	switch sort := c.DefaultQuery("sort", "created_at"); sort {
	case "created_at":
	case "due_date":
		input.SortByDueDate = true
	default:
		apierrors.Respond(c, apierrors.Validationf("Invalid sort %q", sort))
		return
	}

	input.AssignedToMe = queryBool(c, "assigned_to_me")
	input.IncludeArchived = queryBool(c, "include_archived")

	params := utils.GetPaginationParams(c)
	input.Page = params.Page
	input.PageSize = params.Limit

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, utils.NewPaginationResponse(params, total), h.now()))
}

// GetTask returns a specific task by ID
// Task is already loaded with relations by RequireTaskAccess middleware
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.Respond(c, services.ErrTaskNotFound)
		return
	}

	h.respondTask(c, http.StatusOK, task)
}

// CreateTask creates a new task owned by the caller
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Respond(c, apierrors.ErrUnauthorized)
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), userID, req.ToCreateTaskInput())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	h.respondTask(c, http.StatusCreated, task)
}

// UpdateTask applies a partial update
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.Respond(c, services.ErrTaskNotFound)
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, err)
		return
	}

	updated, err := h.taskService.UpdateTask(c.Request.Context(), task, req.ToUpdateTaskInput())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	h.respondTask(c, http.StatusOK, updated)
}

// DeleteTask permanently deletes a task (creator only)
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.Respond(c, services.ErrTaskNotFound)
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.taskService.DeleteTask(c.Request.Context(), task, userID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task deleted successfully",
	})
}

// AddComment posts a comment on a task
func (h *TaskHandler) AddComment(c *gin.Context) {
	h.withTaskStatus(c, http.StatusCreated, func(task *models.Task, userID string) (*models.Task, error) {
		var req dto.CommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, err
		}
		return h.taskService.AddComment(c.Request.Context(), task, userID, req.Content)
	})
}

// UpdateComment edits the caller's comment
func (h *TaskHandler) UpdateComment(c *gin.Context) {
	h.withTask(c, func(task *models.Task, userID string) (*models.Task, error) {
		var req dto.CommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, err
		}
		return h.taskService.UpdateComment(c.Request.Context(), task, userID, c.Param("commentId"), req.Content)
	})
}

// DeleteComment removes the caller's comment
func (h *TaskHandler) DeleteComment(c *gin.Context) {
	h.withTask(c, func(task *models.Task, userID string) (*models.Task, error) {
		return h.taskService.DeleteComment(c.Request.Context(), task, userID, c.Param("commentId"))
	})
}

// AddTimeLog records time spent on a task
func (h *TaskHandler) AddTimeLog(c *gin.Context) {
	h.withTaskStatus(c, http.StatusCreated, func(task *models.Task, userID string) (*models.Task, error) {
		var req dto.TimeLogRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, err
		}
		return h.taskService.AddTimeLog(c.Request.Context(), task, userID, services.TimeLogInput{
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			Description: req.Description,
		})
	})
}

// UploadAttachments stores the multipart "files" field as task attachments
func (h *TaskHandler) UploadAttachments(c *gin.Context) {
	h.withTaskStatus(c, http.StatusCreated, func(task *models.Task, userID string) (*models.Task, error) {
		form, err := c.MultipartForm()
		if err != nil {
			if apierrors.Translate(err).Kind == apierrors.KindFileSize {
				return nil, err
			}
			return nil, services.ErrNoFiles
		}
		return h.taskService.AddAttachments(c.Request.Context(), task, userID, uploadFiles(form.File[uploadFormField]))
	})
}

// DeleteAttachment removes an attachment
func (h *TaskHandler) DeleteAttachment(c *gin.Context) {
	h.withTask(c, func(task *models.Task, userID string) (*models.Task, error) {
		return h.taskService.DeleteAttachment(c.Request.Context(), task, userID, c.Param("attachmentId"))
	})
}

// GenerateTasks uses AI to suggest tasks from free text. Nothing is persisted.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	var req dto.GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, err)
		return
	}

	tasks, err := h.taskService.GenerateTasks(c.Request.Context(), req.Text)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tasks":   tasks,
	})
}

// Stats returns the statistics overview of the caller's tasks
func (h *TaskHandler) Stats(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Respond(c, apierrors.ErrUnauthorized)
		return
	}

	stats, err := h.taskService.Stats(c.Request.Context(), userID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   dto.ToTaskStatsDTO(*stats),
	})
}

func (h *TaskHandler) respondTask(c *gin.Context, status int, task *models.Task) {
	c.JSON(status, gin.H{
		"success": true,
		"task":    dto.ToTaskDTO(*task, h.now()),
	})
}

type taskAction func(task *models.Task, userID string) (*models.Task, error)

func (h *TaskHandler) withTask(c *gin.Context, action taskAction) {
	h.withTaskStatus(c, http.StatusOK, action)
}

func (h *TaskHandler) withTaskStatus(c *gin.Context, status int, action taskAction) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.Respond(c, services.ErrTaskNotFound)
		return
	}
	userID, _ := middleware.GetUserID(c)

	updated, err := action(task, userID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	h.respondTask(c, status, updated)
}

func uploadFiles(headers []*multipart.FileHeader) []services.UploadFile {
	files := make([]services.UploadFile, len(headers))
	for i, fh := range headers {
		files[i] = services.UploadFile{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		}
	}
	return files
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
