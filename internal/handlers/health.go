package handlers

import "net/http"

type MessageResponse struct {
	Message string `json:"message"`
}

// Root answers the landing route.
func Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Welcome to the Resume API!"})
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
