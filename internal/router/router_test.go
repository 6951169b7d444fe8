package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskboard-api/internal/auth"
	"github.com/yukikurage/taskboard-api/internal/config"
	"github.com/yukikurage/taskboard-api/internal/database"
	"github.com/yukikurage/taskboard-api/internal/middleware"
	"github.com/yukikurage/taskboard-api/internal/repository"
	"github.com/yukikurage/taskboard-api/internal/services"
	"github.com/yukikurage/taskboard-api/internal/storage"
	"github.com/yukikurage/taskboard-api/internal/validation"
	"gorm.io/gorm"
)

const password = "Passw0rd"

// RouterTestSuite drives the complete HTTP stack against in-memory sqlite
type RouterTestSuite struct {
	suite.Suite
	db     *gorm.DB
	engine *gin.Engine
}

func (suite *RouterTestSuite) SetupTest() {
	suite.engine = suite.newEngine(100)
}

func (suite *RouterTestSuite) TearDownTest() {
	suite.Require().NoError(database.Close(suite.db))
}

func (suite *RouterTestSuite) newEngine(requestLimit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(validation.Register())

	db, err := database.OpenSQLite(":memory:", nil)
	suite.Require().NoError(err)
	suite.db = db

	log, _ := logtest.NewNullLogger()
	suite.Require().NoError(database.Migrate(db, log))

	files, err := storage.NewLocalStorage(suite.T().TempDir())
	suite.Require().NoError(err)

	cfg := &config.Config{
		MaxBodyBytes:      1 << 10,
		UploadMaxFiles:    2,
		UploadMaxFileSize: 1 << 10,
	}

	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)

	return New(Dependencies{
		Config: cfg,
		Log:    log,
		Auth:   services.NewAuthService(users, auth.NewTokenIssuer("router-secret", time.Hour, "taskboard"), log),
		Users:  services.NewUserService(users, log),
		Tasks: services.NewTaskService(tasks, users, log, services.TaskServiceOptions{
			Storage:           files,
			MaxUploadFiles:    cfg.UploadMaxFiles,
			MaxUploadFileSize: cfg.UploadMaxFileSize,
		}),
		DB:           database.GormPinger{DB: db},
		Limiter:      middleware.NewMemoryLimiter(requestLimit, time.Minute),
		SessionStore: cookie.NewStore([]byte("session-secret")),
	})
}

func (suite *RouterTestSuite) request(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.engine.ServeHTTP(w, req)
	return w
}

func (suite *RouterTestSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (suite *RouterTestSuite) register(name, email string) (token, id string) {
	w := suite.request(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	body := suite.decode(w)
	return body["token"].(string), body["user"].(map[string]any)["id"].(string)
}

func (suite *RouterTestSuite) TestHealth() {
	w := suite.request(http.MethodGet, "/api/health", "", nil)

	suite.Require().Equal(http.StatusOK, w.Code)
	body := suite.decode(w)
	assert.Equal(suite.T(), "ok", body["status"])
	assert.Equal(suite.T(), "connected", body["database"])
	assert.NotEmpty(suite.T(), w.Header().Get("X-Request-ID"))
}

func (suite *RouterTestSuite) TestUnknownRoute() {
	w := suite.request(http.MethodGet, "/api/nope", "", nil)

	suite.Require().Equal(http.StatusNotFound, w.Code)
	body := suite.decode(w)
	assert.Equal(suite.T(), false, body["success"])
	assert.Equal(suite.T(), "NotFoundError", body["error"])
}

func (suite *RouterTestSuite) TestTaskLifecycle() {
	aliceToken, _ := suite.register("Alice", "alice@example.com")
	bobToken, _ := suite.register("Bob", "bob@example.com")

	w := suite.request(http.MethodPost, "/api/tasks", aliceToken, map[string]any{
		"title":           "Write report",
		"estimated_hours": 10,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	created := suite.decode(w)["task"].(map[string]any)
	taskPath := "/api/tasks/" + created["id"].(string)
	assert.Equal(suite.T(), "pending", created["status"])
	assert.Equal(suite.T(), "medium", created["priority"])

	// Round trip
	w = suite.request(http.MethodGet, taskPath, aliceToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), "Write report", suite.decode(w)["task"].(map[string]any)["title"])

	// Not a participant
	w = suite.request(http.MethodGet, taskPath, bobToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	// Progress follows hours until completion
	w = suite.request(http.MethodPut, taskPath, aliceToken, map[string]any{"actual_hours": 5})
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.EqualValues(suite.T(), 50, suite.decode(w)["task"].(map[string]any)["progress"])

	w = suite.request(http.MethodPut, taskPath, aliceToken, map[string]any{"status": "completed"})
	suite.Require().Equal(http.StatusOK, w.Code)
	task := suite.decode(w)["task"].(map[string]any)
	assert.EqualValues(suite.T(), 100, task["progress"])
	assert.NotNil(suite.T(), task["completed_at"])

	w = suite.request(http.MethodGet, "/api/tasks/stats/overview", aliceToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	stats := suite.decode(w)["stats"].(map[string]any)
	assert.EqualValues(suite.T(), 1, stats["total"])
	assert.EqualValues(suite.T(), 100, stats["completion_rate"])
	assert.EqualValues(suite.T(), 50, stats["efficiency"])

	w = suite.request(http.MethodGet, "/api/auth/me", aliceToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	userStats := suite.decode(w)["user"].(map[string]any)["stats"].(map[string]any)
	assert.EqualValues(suite.T(), 1, userStats["tasks_created"])
	assert.EqualValues(suite.T(), 1, userStats["tasks_completed"])
}

func (suite *RouterTestSuite) TestDuplicateEmail() {
	suite.register("Alice", "alice@example.com")

	w := suite.request(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Alice Again",
		"email":    "alice@example.com",
		"password": password,
	})

	suite.Require().Equal(http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "DuplicateFieldError", suite.decode(w)["error"])
}

func (suite *RouterTestSuite) TestLockout() {
	suite.register("Alice", "alice@example.com")

	for i := 0; i < 5; i++ {
		w := suite.request(http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "alice@example.com",
			"password": "Wrong1234",
		})
		suite.Require().Equal(http.StatusUnauthorized, w.Code)
	}

	w := suite.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": password,
	})
	suite.Require().Equal(http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), "AccountLocked", suite.decode(w)["error"])
}

func (suite *RouterTestSuite) TestProtectedRoutesRequireToken() {
	for _, path := range []string{"/api/tasks", "/api/tasks/stats/overview", "/api/users/profile", "/api/auth/me"} {
		w := suite.request(http.MethodGet, path, "", nil)
		assert.Equal(suite.T(), http.StatusUnauthorized, w.Code, path)
	}

	w := suite.request(http.MethodGet, "/api/tasks", "not-a-token", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *RouterTestSuite) TestAdminRoutes() {
	token, _ := suite.register("Alice", "alice@example.com")
	_, bobID := suite.register("Bob", "bob@example.com")

	w := suite.request(http.MethodGet, "/api/users", token, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPatch, "/api/users/"+bobID+"/status", token, map[string]any{"is_active": false})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	// Public profile needs no token
	w = suite.request(http.MethodGet, "/api/users/"+bobID, "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *RouterTestSuite) TestBodyLimit() {
	token, _ := suite.register("Alice", "alice@example.com")

	w := suite.request(http.MethodPost, "/api/tasks", token, map[string]any{
		"title":       "Too big",
		"description": strings.Repeat("x", 2<<10),
	})

	suite.Require().Equal(http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(suite.T(), "FileSizeError", suite.decode(w)["error"])
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func TestRateLimit(t *testing.T) {
	s := new(RouterTestSuite)
	s.SetT(t)
	s.engine = s.newEngine(2)
	defer s.TearDownTest()

	for i := 0; i < 2; i++ {
		w := s.request(http.MethodGet, "/api/users/unknown", "", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	w := s.request(http.MethodGet, "/api/users/unknown", "", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RateLimitError", s.decode(w)["error"])
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Health is outside the limited group
	w = s.request(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
