package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/taskboard-api/internal/constants"
	"github.com/yukikurage/taskboard-api/internal/models"
)

var registerOnce sync.Once

// Register installs the custom rules on gin's binding validator. Safe to call repeatedly.
func Register() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("validation: gin binding engine is not validator/v10")
			return
		}
		err = RegisterOn(v)
	})
	return err
}

// RegisterOn installs the custom rules and JSON field naming on v.
func RegisterOn(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)

	rules := map[string]validator.Func{
		"strongpassword": strongPassword,
		"taskstatus":     taskStatus,
		"taskpriority":   taskPriority,
		"userrole":       userRole,
		"theme":          theme,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}

// StrongPassword reports whether s meets the password policy.
func StrongPassword(s string) bool {
	if len(s) < constants.MinPasswordLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func strongPassword(fl validator.FieldLevel) bool {
	return StrongPassword(fl.Field().String())
}

func taskStatus(fl validator.FieldLevel) bool {
	return models.ValidTaskStatus(models.TaskStatus(fl.Field().String()))
}

func taskPriority(fl validator.FieldLevel) bool {
	return models.ValidTaskPriority(models.TaskPriority(fl.Field().String()))
}

func userRole(fl validator.FieldLevel) bool {
	return models.ValidRole(models.UserRole(fl.Field().String()))
}

func theme(fl validator.FieldLevel) bool {
	return models.ValidTheme(models.Theme(fl.Field().String()))
}
