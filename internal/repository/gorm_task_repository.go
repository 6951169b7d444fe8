package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskboard-api/internal/database"
	"github.com/yukikurage/taskboard-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error; err != nil {
		return translateGormError(err)
	}
	return nil
}

// FindByID finds a task by ID with its relations loaded
func (r *GormTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}

	var task models.Task
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Assignee").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments.Author").
		Preload("TimeLogs", func(db *gorm.DB) *gorm.DB { return db.Order("start_time ASC") }).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at ASC") }).
		First(&task, "id = ?", id).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{})

	if filter.AssignedToMe {
		query = query.Where("assigned_to_id = ?", filter.UserID)
	} else {
		query = query.Where("(created_by_id = ? OR assigned_to_id = ?)", filter.UserID, filter.UserID)
	}
	if !filter.IncludeArchived {
		query = query.Where("is_archived = ?", false)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query
	if filter.SortByDueDate {
		listQuery = listQuery.Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC")
	} else {
		listQuery = listQuery.Order("created_at DESC")
	}

	listQuery = listQuery.Scopes(database.Paginate(filter.Page, filter.PageSize))

	var tasks []models.Task
	if err := listQuery.Preload("Creator").Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Update persists the scalar fields of a task
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	result := r.db.WithContext(ctx).Model(task).
		Select("title", "description", "status", "priority", "due_date", "assigned_to_id",
			"tags", "estimated_hours", "actual_hours", "completed_at", "is_archived",
			"archived_at", "updated_at").
		Updates(task)
	return rowsAffected(result)
}

// Delete permanently removes a task and its sub-records
func (r *GormTaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&models.TaskComment{}, &models.TaskTimeLog{}, &models.TaskAttachment{}} {
			if err := tx.Where("task_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		return rowsAffected(tx.Delete(&models.Task{}, "id = ?", id))
	})
}

// AddComment appends a comment to a task
func (r *GormTaskRepository) AddComment(ctx context.Context, taskID string, comment *models.TaskComment) error {
	comment.TaskID = taskID
	return translateGormError(r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error)
}

// UpdateComment rewrites the content and edit markers of a comment
func (r *GormTaskRepository) UpdateComment(ctx context.Context, taskID string, comment *models.TaskComment) error {
	result := r.db.WithContext(ctx).Model(&models.TaskComment{}).
		Where("id = ? AND task_id = ?", comment.ID, taskID).
		Updates(map[string]any{
			"content":    comment.Content,
			"is_edited":  comment.IsEdited,
			"edited_at":  comment.EditedAt,
			"updated_at": comment.UpdatedAt,
		})
	return rowsAffected(result)
}

// DeleteComment removes a comment from a task
func (r *GormTaskRepository) DeleteComment(ctx context.Context, taskID, commentID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND task_id = ?", commentID, taskID).
		Delete(&models.TaskComment{})
	return rowsAffected(result)
}

// AddTimeLog appends a time log and adds its duration to the task's actual hours
func (r *GormTaskRepository) AddTimeLog(ctx context.Context, taskID string, log *models.TaskTimeLog) error {
	log.TaskID = taskID
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(log).Error; err != nil {
			return translateGormError(err)
		}
		result := tx.Model(&models.Task{}).
			Where("id = ?", taskID).
			UpdateColumns(map[string]any{
				"actual_hours": gorm.Expr("actual_hours + ?", float64(log.Duration)/60),
				"updated_at":   time.Now().UTC(),
			})
		return rowsAffected(result)
	})
}

// AddAttachments appends attachment metadata to a task
func (r *GormTaskRepository) AddAttachments(ctx context.Context, taskID string, attachments []models.TaskAttachment) error {
	if len(attachments) == 0 {
		return nil
	}
	for i := range attachments {
		attachments[i].TaskID = taskID
	}
	return translateGormError(r.db.WithContext(ctx).Create(&attachments).Error)
}

// DeleteAttachment removes attachment metadata from a task
func (r *GormTaskRepository) DeleteAttachment(ctx context.Context, taskID, attachmentID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND task_id = ?", attachmentID, taskID).
		Delete(&models.TaskAttachment{})
	return rowsAffected(result)
}

type statusAggregate struct {
	Status         models.TaskStatus
	Count          int64
	Overdue        int64
	EstimatedHours float64
	ActualHours    float64
}

// Stats aggregates the non-archived tasks a user created or is assigned to
func (r *GormTaskRepository) Stats(ctx context.Context, userID string, now time.Time) (*models.TaskCounts, error) {
	open := make([]string, 0, len(models.OpenTaskStatuses))
	for _, s := range models.OpenTaskStatuses {
		open = append(open, string(s))
	}

	var rows []statusAggregate
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Select(`status,
			COUNT(*) AS count,
			SUM(CASE WHEN due_date IS NOT NULL AND due_date < ? AND status IN ? THEN 1 ELSE 0 END) AS overdue,
			COALESCE(SUM(estimated_hours), 0) AS estimated_hours,
			COALESCE(SUM(actual_hours), 0) AS actual_hours`, now.UTC(), open).
		Where("(created_by_id = ? OR assigned_to_id = ?)", userID, userID).
		Where("is_archived = ?", false).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := &models.TaskCounts{ByStatus: make(map[models.TaskStatus]int64, len(models.AllTaskStatuses))}
	for _, s := range models.AllTaskStatuses {
		counts.ByStatus[s] = 0
	}
	for _, row := range rows {
		counts.Total += row.Count
		counts.ByStatus[row.Status] += row.Count
		counts.Overdue += row.Overdue
		counts.EstimatedHours += row.EstimatedHours
		counts.ActualHours += row.ActualHours
	}
	return counts, nil
}
