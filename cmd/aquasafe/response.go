package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/aquasafe/aquasafe/pkg/repository"
)

// Response is the envelope around every API reply
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func respondOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Error: message})
}

// respondRepoError maps repository errors onto status codes. Storage
// failures are logged and reported without their details.
func (rm *RouteManager) respondRepoError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case repository.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, Response{Message: "Validation failed", Error: err.Error()})
	case repository.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		rm.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
