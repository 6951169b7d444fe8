package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskboard-api/internal/database"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	env := setupHandlerEnv(t)

	cases := []struct {
		name     string
		db       database.Pinger
		expected string
	}{
		{"connected", database.GormPinger{DB: env.db}, "connected"},
		{"disconnected", pingFunc(func(context.Context) error { return errors.New("connection refused") }), "disconnected"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/api/health", NewHealthHandler("taskboard-api", tc.db, env.log).Health)

			w := serve(r, jsonRequest(t, http.MethodGet, "/api/health", nil))

			require.Equal(t, http.StatusOK, w.Code)
			body := decode(t, w)
			assert.Equal(t, "ok", body["status"])
			assert.Equal(t, "taskboard-api", body["service"])
			assert.Equal(t, tc.expected, body["database"])
		})
	}
}
