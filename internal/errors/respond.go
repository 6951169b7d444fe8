package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/taskboard-api/internal/repository"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Error   Kind         `json:"error"`
	Details []FieldError `json:"details,omitempty"`
	Stack   string       `json:"stack,omitempty"`
}

// Respond translates err into the taxonomy and writes the error response.
// It is the single exit point for handler and middleware failures.
func Respond(c *gin.Context, err error) {
	apiErr := Translate(err)
	status := apiErr.Status()

	body := ErrorResponse{
		Success: false,
		Message: apiErr.Message,
		Error:   apiErr.Kind,
		Details: apiErr.Details,
	}

	production := gin.Mode() == gin.ReleaseMode
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		if production {
			body.Message = "Internal server error"
		}
	}
	if !production && apiErr.Kind == KindInternal {
		body.Stack = fmt.Sprintf("%+v", err)
	}

	c.AbortWithStatusJSON(status, body)
}

// Translate maps storage, binding and library failures onto an APIError.
func Translate(err error) *APIError {
	if err == nil {
		return New(KindInternal, "Internal server error")
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	var validationErrs validator.ValidationErrors
	if stderrors.As(err, &validationErrs) {
		return NewWithDetails(KindValidation, "Validation failed", fieldErrors(validationErrs))
	}

	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return New(KindFileSize, fmt.Sprintf("Request body exceeds %d bytes", maxBytesErr.Limit))
	}

	switch {
	case stderrors.Is(err, repository.ErrNotFound):
		return NotFound("Resource not found")
	case stderrors.Is(err, repository.ErrDuplicateKey):
		return Duplicate("Duplicate field value entered")
	case stderrors.Is(err, repository.ErrInvalidID):
		return NotFound("Resource not found")
	}

	if bindErr := translateBindError(err); bindErr != nil {
		return bindErr
	}

	return New(KindInternal, err.Error())
}

func fieldErrors(errs validator.ValidationErrors) []FieldError {
	details := make([]FieldError, 0, len(errs))
	for _, fe := range errs {
		details = append(details, FieldError{
			Field:   fieldPath(fe),
			Message: fieldMessage(fe),
		})
	}
	return details
}

// fieldPath drops the top-level struct name from the namespace ("req.profile.bio" -> "profile.bio").
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "strongpassword":
		return field + " must contain at least one uppercase letter, one lowercase letter and one number"
	case "taskstatus":
		return field + " must be one of pending, in-progress, completed, cancelled, on-hold"
	case "taskpriority":
		return field + " must be one of low, medium, high, urgent"
	case "userrole":
		return field + " must be one of user, manager, admin"
	case "theme":
		return field + " must be one of light, dark, auto"
	default:
		return fmt.Sprintf("%s failed on the %s rule", field, fe.Tag())
	}
}
