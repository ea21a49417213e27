package simtrack

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate   *validator.Validate
	validateMu sync.RWMutex
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]; name != "" && name != "-" {
			return name
		}
		return fld.Name
	})
}

// JSON decodes the request body into dest and validates it against its
// struct tags. Returns true if binding and validation succeeded.
// On failure an error is set in the request state: malformed JSON yields a
// generic 400, a validation failure yields `{"field": ..., "error": ...}`
// for the first failing field.
func JSON(r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			SetError(r, ErrPayloadTooLarge)
		} else {
			SetError(r, ErrBadRequest.With("Invalid JSON request body"))
		}
		return false
	}

	validateMu.RLock()
	err := validate.Struct(dest)
	validateMu.RUnlock()

	if err != nil {
		SetError(r, fieldError(err))
		return false
	}

	return true
}

// RegisterValidation registers a custom validation function.
// Must be called at startup before handling requests.
func RegisterValidation(tag string, fn validator.Func) error {
	validateMu.Lock()
	defer validateMu.Unlock()
	return validate.RegisterValidation(tag, fn)
}

func fieldError(err error) *APIError {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return ErrBadRequest.With("Validation failed")
	}
	e := errs[0]
	return NewFieldError(e.Field(), validationMessage(e.Field(), e.Tag(), e.Param()))
}

func validationMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return field + " must be at least " + param + " characters"
	case "max":
		return field + " must be at most " + param + " characters"
	case "oneof":
		return field + " must be one of: " + param
	default:
		if param != "" {
			return field + " failed " + tag + "=" + param
		}
		return field + " failed " + tag
	}
}

// MaxBodySize returns middleware that limits request body size using
// http.MaxBytesReader. The limit is enforced when the body is read;
// JSON surfaces it as a 413.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
