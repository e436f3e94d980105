package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/vencura/vencura/internal/logger"
	apperrors "github.com/vencura/vencura/pkg/errors"
)

// ErrorResponse is the JSON body of every error response
type ErrorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Detail  string   `json:"detail,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// WriteError renders err as JSON. AppErrors keep their code and status;
// anything else is logged and reported as a bare 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.IsAppError(err)
	if !ok {
		logger.Error(r.Context(), "unhandled error", "method", r.Method, "path", r.URL.Path, "error", err)
		appErr = apperrors.ErrInternalError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
		Errors:  appErr.Errors,
	})
}
