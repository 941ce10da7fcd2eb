package endpoints

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jackzampolin/protocollens/internal/protocol"
	"github.com/jackzampolin/protocollens/internal/svcctx"
)

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Class string `json:"class,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// StatusForClass maps an error class onto an HTTP status.
func StatusForClass(class protocol.Class) int {
	switch class {
	case protocol.ClassInvalidInput:
		return http.StatusBadRequest
	case protocol.ClassUnavailable:
		return http.StatusServiceUnavailable
	case protocol.ClassUninterpretable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeClassifiedError reports a pipeline failure with its user-facing
// message only. The full error goes to the log.
func writeClassifiedError(w http.ResponseWriter, r *http.Request, err error) {
	class := protocol.ClassOf(err)
	status := StatusForClass(class)

	var upErr *protocol.UpstreamCallError
	if errors.As(err, &upErr) && upErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(upErr.RetryAfter.Seconds()+0.5)))
	}

	if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
		level := slog.LevelWarn
		if class == protocol.ClassInternal {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "api.request.failed", "path", r.URL.Path, "class", class, "status", status, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: protocol.UserMessage(err), Class: string(class)})
}
