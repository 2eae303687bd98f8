package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/erazemk/inventar/internal/inventory"
)

var validate = validator.New()

func init() {
	// Report json field names in validation errors.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

type errorBody struct {
	Error      string            `json:"error"`
	Fields     map[string]string `json:"fields,omitempty"`
	Operation  string            `json:"operation,omitempty"`
	Completed  []string          `json:"completed,omitempty"`
	Failed     string            `json:"failed,omitempty"`
	RolledBack *bool             `json:"rolledBack,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		// The status line is already out; nothing useful to do on failure.
		_ = json.NewEncoder(w).Encode(data)
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// bindJSON decodes and validates a request body. It writes the error
// response and returns false when the body is unusable.
func bindJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeJSON(r, target); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			jsonError(w, http.StatusBadRequest, err.Error())
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		jsonResponse(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: fields})
		return false
	}
	return true
}

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrAlreadyReturned),
		errors.Is(err, inventory.ErrReferentialConflict):
		return http.StatusConflict
	case errors.Is(err, inventory.ErrInvalidRange),
		errors.Is(err, inventory.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports a failed core operation. Server side failures are
// logged with the request logger and their step list is passed on to the
// client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var se *inventory.StepError
	if errors.As(err, &se) {
		rolledBack := se.RolledBack
		body.Operation = se.Op
		body.Completed = se.Completed
		body.Failed = se.Failed
		body.RolledBack = &rolledBack
	}
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("operation failed")
		if se == nil {
			body.Error = "internal error"
		}
	}
	jsonResponse(w, status, body)
}
