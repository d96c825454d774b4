package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joseph-ayodele/pdf2jpk/internal/common"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

// writeAppError maps sentinel errors to HTTP status codes.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrJobBusy), errors.Is(err, common.ErrTerminalStatus):
		status = http.StatusConflict
	case errors.Is(err, common.ErrNoRecords):
		status = http.StatusUnprocessableEntity
	}

	code := http.StatusText(status)
	msg := err.Error()
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		code, msg = appErr.Code, appErr.Message
	} else if errors.Is(err, common.ErrNotFound) {
		code, msg = "NOT_FOUND", "job not found"
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}
