package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskboard-api/internal/models"
)

func TestUpdateTaskRequest_NullableFields(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		clearDue     bool
		unassign     bool
		wantDue      bool
		wantAssignee string
	}{
		{"absent", `{"title":"x"}`, false, false, false, ""},
		{"explicit null", `{"due_date":null,"assigned_to":null}`, true, true, false, ""},
		{"values", `{"due_date":"2030-01-02T03:04:05Z","assigned_to":"7d9f7c5e-2c1a-4a53-9d3a-1f0a4b9b6c11"}`, false, false, true, "7d9f7c5e-2c1a-4a53-9d3a-1f0a4b9b6c11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateTaskRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			input := req.ToUpdateTaskInput()
			assert.Equal(t, tt.clearDue, input.ClearDueDate)
			assert.Equal(t, tt.unassign, input.Unassign)
			assert.Equal(t, tt.wantDue, input.DueDate != nil)
			if tt.wantAssignee == "" {
				assert.Nil(t, input.AssignedTo)
			} else {
				require.NotNil(t, input.AssignedTo)
				assert.Equal(t, tt.wantAssignee, *input.AssignedTo)
			}
		})
	}
}

func TestNullable_InvalidValue(t *testing.T) {
	var req UpdateTaskRequest
	err := json.Unmarshal([]byte(`{"due_date":"tomorrow"}`), &req)
	assert.Error(t, err)
}

func TestUpdateTaskRequest_StatusAndPriority(t *testing.T) {
	var req UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"status":"completed","priority":"urgent"}`), &req))

	input := req.ToUpdateTaskInput()
	require.NotNil(t, input.Status)
	require.NotNil(t, input.Priority)
	assert.Equal(t, models.TaskStatusCompleted, *input.Status)
	assert.Equal(t, models.TaskPriorityUrgent, *input.Priority)
	assert.Nil(t, input.Title)
}

func TestToTaskDTO_DerivedFields(t *testing.T) {
	now := time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	task := models.Task{
		ID:             "task-1",
		Title:          "Write design doc",
		Status:         models.TaskStatusInProgress,
		Priority:       models.TaskPriorityHigh,
		DueDate:        &yesterday,
		EstimatedHours: 10,
		ActualHours:    5,
		CreatedByID:    "user-1",
		Creator:        &models.User{ID: "user-1", Name: "Alice", Email: "alice@example.com"},
		Comments: []models.TaskComment{
			{ID: "c1", AuthorID: "user-1", Content: "hi", Author: &models.User{ID: "user-1", Name: "Alice"}},
		},
	}

	dto := ToTaskDTO(task, now)
	assert.True(t, dto.IsOverdue)
	assert.Equal(t, 50, dto.Progress)
	assert.Equal(t, []string{}, dto.Tags)
	require.NotNil(t, dto.Creator)
	assert.Equal(t, "Alice", dto.Creator.Name)
	assert.Nil(t, dto.Assignee)
	require.Len(t, dto.Comments, 1)
	assert.Equal(t, "Alice", dto.Comments[0].Author.Name)

	task.Status = models.TaskStatusCompleted
	dto = ToTaskDTO(task, now)
	assert.False(t, dto.IsOverdue)
	assert.Equal(t, 100, dto.Progress)
}

func TestToPublicUserDTO_Email(t *testing.T) {
	user := models.User{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: models.RoleUser}

	anonymous, err := json.Marshal(ToPublicUserDTO(user, false))
	require.NoError(t, err)
	assert.NotContains(t, string(anonymous), "alice@example.com")

	authenticated := ToPublicUserDTO(user, true)
	assert.Equal(t, "alice@example.com", authenticated.Email)
}

func TestToUserDTO_OmitsSecrets(t *testing.T) {
	lock := time.Now()
	user := models.User{ID: "u1", Name: "Alice", PasswordHash: "hash", LoginAttempts: 3, LockUntil: &lock}

	data, err := json.Marshal(ToUserDTO(user))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hash")
	assert.NotContains(t, string(data), "login_attempts")
	assert.NotContains(t, string(data), "lock_until")
}
