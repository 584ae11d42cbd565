package performances

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"gigmap/internal/models"
)

// ErrInvalidPerformance is wrapped by every ValidationError.
var ErrInvalidPerformance = errors.New("invalid performance")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidationError lists the fields that broke a rule.
type ValidationError struct {
	Missing []string // required fields that were empty
	Invalid []string // fields with a malformed value
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("%s %s required", joinFields(e.Missing), verb(len(e.Missing))))
	}
	for _, f := range e.Invalid {
		if f == "date" {
			parts = append(parts, "date must be formatted as YYYY-MM-DD")
			continue
		}
		parts = append(parts, f+" is invalid")
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidPerformance
}

func joinFields(fields []string) string {
	switch len(fields) {
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " and " + fields[1]
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + " and " + fields[len(fields)-1]
	}
}

func verb(n int) string {
	if n == 1 {
		return "is"
	}
	return "are"
}

// Validate enforces the write rules: artist, type and province must be
// non-empty and date, when present, must be a calendar date.
func Validate(fields models.PerformanceFields) error {
	err := getValidator().Struct(fields)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate performance: %w", err)
	}

	ve := &ValidationError{}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			ve.Missing = append(ve.Missing, fe.Field())
		} else {
			ve.Invalid = append(ve.Invalid, fe.Field())
		}
	}
	return ve
}
