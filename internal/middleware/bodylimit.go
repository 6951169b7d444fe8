package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
)

// BodyLimit caps request bodies at jsonLimit bytes, or multipartLimit for multipart uploads.
// Declared lengths over the cap are rejected before the handler runs.
func BodyLimit(jsonLimit, multipartLimit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}

		limit := jsonLimit
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			limit = multipartLimit
		}

		if c.Request.ContentLength > limit {
			apierrors.Respond(c, apierrors.New(apierrors.KindFileSize, fmt.Sprintf("Request body exceeds %d bytes", limit)))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
