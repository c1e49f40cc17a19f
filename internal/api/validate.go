package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors maps each invalid field to a short message.
type fieldErrors map[string]string

func (fe fieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for field, msg := range fe {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// validateRequest checks req against its validate tags.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fe := fieldErrors{}
	for _, e := range verrs {
		// Namespace is "request.shipping.city"; drop the struct name.
		_, field, _ := strings.Cut(e.Namespace(), ".")
		fe[field] = fieldMessage(e)
	}
	return fe
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be " + e.Param() + " or more"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(e.Param(), "'", "")
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	default:
		return "is invalid"
	}
}

// validationError writes a 400 listing every invalid field.
func validationError(w http.ResponseWriter, err error) {
	var fe fieldErrors
	if errors.As(err, &fe) {
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": fe,
		})
		return
	}
	jsonError(w, http.StatusBadRequest, err.Error())
}

// bind decodes and validates a JSON body, writing the error response itself.
// It reports whether the handler should continue.
func bind(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := decodeJSON(w, r, req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validateRequest(req); err != nil {
		validationError(w, err)
		return false
	}
	return true
}
