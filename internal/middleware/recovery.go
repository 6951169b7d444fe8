package middleware

import (
	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
)

// Recovery turns panics into the standard 500 error response
func Recovery(log logrus.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		err := pkgerrors.Errorf("panic recovered: %v", recovered)
		log.WithField("path", c.Request.URL.Path).Errorf("%+v", err)
		apierrors.Respond(c, err)
	})
}
