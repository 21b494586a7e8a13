package main

import (
	"net/http"
	"time"

	"github.com/aquasafe/aquasafe/pkg/database"
)

// HealthResponse is the data of GET /health
type HealthResponse struct {
	Status    string                `json:"status"`
	Timestamp string                `json:"timestamp"`
	Version   string                `json:"version"`
	Store     database.HealthStatus `json:"store"`
}

// healthHandler returns server health status, pinging the store on demand
func (rm *RouteManager) healthHandler(w http.ResponseWriter, r *http.Request) {
	store := rm.store.Health(r.Context())

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version,
		Store:     store,
	}

	if !store.Healthy {
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, Response{
			Message: "Store unavailable",
			Data:    resp,
			Error:   store.Error,
		})
		return
	}

	respondOK(w, http.StatusOK, "", resp)
}
