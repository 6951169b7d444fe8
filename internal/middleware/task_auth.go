package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskboard-api/internal/constants"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
	"github.com/yukikurage/taskboard-api/internal/models"
)

// TaskLoader loads a task on behalf of a participant
type TaskLoader interface {
	GetTask(ctx context.Context, taskID, userID string) (*models.Task, error)
}

// RequireTaskAccess loads the :id task and checks the user is its creator or assignee.
// The task is stored in the context for handlers.
func RequireTaskAccess(loader TaskLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Respond(c, apierrors.ErrUnauthorized)
			return
		}

		task, err := loader.GetTask(c.Request.Context(), c.Param("id"), userID)
		if err != nil {
			apierrors.Respond(c, err)
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess
func GetTask(c *gin.Context) (*models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := value.(*models.Task)
	return task, ok && task != nil
}
