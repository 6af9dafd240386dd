package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "adshub/internal/errors"
)

// DefaultMaxBodySize bounds decoded request bodies.
const DefaultMaxBodySize = 1 << 20

// Validator decodes request bodies and checks their validate tags. Field
// names in reported errors are the JSON names.
type Validator struct {
	validate    *validator.Validate
	maxBodySize int64
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return &Validator{validate: v, maxBodySize: DefaultMaxBodySize}
}

// Decode reads the JSON body of r into dst and validates it. An empty body
// leaves dst as is, so callers can pre-fill defaults.
func (v *Validator) Decode(r *http.Request, dst interface{}) error {
	if r.Body != nil && r.Body != http.NoBody {
		body := http.MaxBytesReader(nil, r.Body, v.maxBodySize)
		if err := render.DecodeJSON(body, dst); err != nil && !errors.Is(err, io.EOF) {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return apperrors.New(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large")
			}
			return apperrors.InvalidRequestWithError(err)
		}
	}
	return v.Struct(dst)
}

// Struct validates s and converts failures into a validation API error
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.InvalidRequestWithError(err)
	}
	out := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apperrors.ValidationError{Field: fe.Field(), Message: message(fe)})
	}
	return apperrors.NewValidationErrors(out)
}

func message(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", field, param)
	case "dive":
		return fmt.Sprintf("%s has an invalid entry", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
