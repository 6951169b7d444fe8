package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskboard-api/internal/auth"
	"github.com/yukikurage/taskboard-api/internal/constants"
	"github.com/yukikurage/taskboard-api/internal/database"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/repository"
	"github.com/yukikurage/taskboard-api/internal/services"
	"github.com/yukikurage/taskboard-api/internal/storage"
	"github.com/yukikurage/taskboard-api/internal/validation"
	"gorm.io/gorm"
)

const testPassword = "Passw0rd"

type handlerEnv struct {
	db          *gorm.DB
	log         *logrus.Logger
	hook        *logtest.Hook
	users       repository.UserRepository
	authService *services.AuthService
	userService *services.UserService
	taskService *services.TaskService
}

func setupHandlerEnv(t *testing.T) handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validation.Register())

	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	log, hook := logtest.NewNullLogger()
	require.NoError(t, database.Migrate(db, log))

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)

	return handlerEnv{
		db:          db,
		log:         log,
		hook:        hook,
		users:       users,
		authService: services.NewAuthService(users, auth.NewTokenIssuer("test-secret", time.Hour, "taskboard"), log),
		userService: services.NewUserService(users, log),
		taskService: services.NewTaskService(tasks, users, log, services.TaskServiceOptions{
			Storage:           local,
			MaxUploadFiles:    2,
			MaxUploadFileSize: 64,
		}),
	}
}

func (e handlerEnv) register(t *testing.T, name, email string) *services.AuthResult {
	t.Helper()
	result, err := e.authService.Register(context.Background(), services.RegisterInput{
		Name:     name,
		Email:    email,
		Password: testPassword,
	})
	require.NoError(t, err)
	return result
}

func (e handlerEnv) setRole(t *testing.T, user *models.User, role models.UserRole) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", user.ID).Update("role", role).Error)
}

// asUser simulates RequireAuth for handler-level tests
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

func jsonRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, url, nil)
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, url, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func rawRequest(method, url, contentType string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
