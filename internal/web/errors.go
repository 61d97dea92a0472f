package web

// errors.go turns handler errors into JSON responses.
//
// The technical error is logged with the request id; the client gets the
// mapped user message and code from core.MapError.

import (
	"net/http"

	"github.com/JonMunkholm/shopclean/internal/core"
	"github.com/JonMunkholm/shopclean/internal/logging"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user-facing form with status.
// Errors without a user-facing code are logged at error level whatever the
// status, so they can be given one.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	ue := core.NewUserError(err)

	log := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", ue.Technical.Error(),
		"code", ue.User.Code,
	}
	if status >= http.StatusInternalServerError || !core.IsUserFacing(err) {
		log.Error("request error", args...)
	} else {
		log.Warn("request error", args...)
	}

	writeJSON(w, status, ErrorResponse{
		Error:   ue.Error(),
		Message: ue.User.Message,
		Action:  ue.User.Action,
		Code:    ue.User.Code,
	})
}
