package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskboard-api/internal/constants"
	"github.com/yukikurage/taskboard-api/internal/middleware"
)

func newAuthRouter(env handlerEnv) *gin.Engine {
	handler := NewAuthHandler(env.authService)

	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	r.POST("/api/auth/register", handler.Register)
	r.POST("/api/auth/login", handler.Login)
	r.POST("/api/auth/logout", handler.Logout)
	r.GET("/api/auth/me", middleware.RequireAuth(env.authService), handler.Me)
	r.PUT("/api/auth/password", middleware.RequireAuth(env.authService), handler.ChangePassword)
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	env := setupHandlerEnv(t)
	r := newAuthRouter(env)

	w := serve(r, jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Alice",
		"email":    "Alice@Example.com",
		"password": testPassword,
	}))

	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])

	user := body["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, user, "login_attempts")
	assert.NotEmpty(t, w.Result().Cookies(), "expected session cookie to be set")
}

func TestAuthHandler_RegisterDuplicateEmail(t *testing.T) {
	env := setupHandlerEnv(t)
	env.register(t, "Alice", "alice@example.com")
	r := newAuthRouter(env)

	w := serve(r, jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Another Alice",
		"email":    "alice@example.com",
		"password": testPassword,
	}))

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "DuplicateFieldError", body["error"])
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	env := setupHandlerEnv(t)
	r := newAuthRouter(env)

	cases := []struct {
		name    string
		payload map[string]string
		field   string
	}{
		{"short name", map[string]string{"name": "A", "email": "a@example.com", "password": testPassword}, "name"},
		{"bad email", map[string]string{"name": "Alice", "email": "nope", "password": testPassword}, "email"},
		{"weak password", map[string]string{"name": "Alice", "email": "a@example.com", "password": "password"}, "password"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, jsonRequest(t, http.MethodPost, "/api/auth/register", tc.payload))

			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decode(t, w)
			assert.Equal(t, "ValidationError", body["error"])
			assert.Contains(t, w.Body.String(), `"`+tc.field+`"`)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupHandlerEnv(t)
	env.register(t, "Alice", "alice@example.com")
	r := newAuthRouter(env)

	w := serve(r, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": testPassword,
	}))

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["token"])
	assert.NotNil(t, body["user"].(map[string]any)["last_login"])

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie to be set")

	// The session cookie alone authenticates follow-up requests
	req := jsonRequest(t, http.MethodGet, "/api/auth/me", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	me := serve(r, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "Alice", decode(t, me)["user"].(map[string]any)["name"])
}

func TestAuthHandler_LoginWrongPassword(t *testing.T) {
	env := setupHandlerEnv(t)
	env.register(t, "Alice", "alice@example.com")
	r := newAuthRouter(env)

	w := serve(r, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "Wrong1234",
	}))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AuthenticationError", decode(t, w)["error"])
}

func TestAuthHandler_LoginLockout(t *testing.T) {
	env := setupHandlerEnv(t)
	env.register(t, "Alice", "alice@example.com")
	r := newAuthRouter(env)

	wrong := map[string]string{"email": "alice@example.com", "password": "Wrong1234"}
	for i := 0; i < constants.MaxLoginAttempts; i++ {
		w := serve(r, jsonRequest(t, http.MethodPost, "/api/auth/login", wrong))
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	// Even the right password is refused while locked
	w := serve(r, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": testPassword,
	}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AccountLocked", decode(t, w)["error"])
}

func TestAuthHandler_Me(t *testing.T) {
	env := setupHandlerEnv(t)
	result := env.register(t, "Alice", "alice@example.com")
	r := newAuthRouter(env)

	req := jsonRequest(t, http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)
	w := serve(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, result.User.ID, user["id"])

	anonymous := serve(r, jsonRequest(t, http.MethodGet, "/api/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, anonymous.Code)
	assert.Equal(t, "Access denied. No token provided.", decode(t, anonymous)["message"])
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	env := setupHandlerEnv(t)
	result := env.register(t, "Alice", "alice@example.com")
	r := newAuthRouter(env)

	req := jsonRequest(t, http.MethodPut, "/api/auth/password", map[string]string{
		"current_password": testPassword,
		"new_password":     "N3wPassword",
	})
	req.Header.Set("Authorization", "Bearer "+result.Token)
	w := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)

	login := serve(r, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "N3wPassword",
	}))
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := setupHandlerEnv(t)
	r := newAuthRouter(env)

	w := serve(r, jsonRequest(t, http.MethodPost, "/api/auth/logout", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	var cleared bool
	for _, cookie := range w.Result().Cookies() {
		if strings.EqualFold(cookie.Name, constants.SessionCookieName) && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "expected session cookie to be expired")
}
