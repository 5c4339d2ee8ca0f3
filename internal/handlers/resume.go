package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/resumehub/apiserver/internal/services"
)

// ResumeHandler provides HTTP handlers for the caller's resumes.
type ResumeHandler struct {
	resumeService *services.ResumeService
}

func NewResumeHandler(resumeService *services.ResumeService) *ResumeHandler {
	return &ResumeHandler{resumeService: resumeService}
}

// ResumeRouter registers resume routes on the given router. Every route
// requires authMiddleware.
func ResumeRouter(r chi.Router, resumeService *services.ResumeService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewResumeHandler(resumeService)

	r.Use(authMiddleware)
	r.Post("/", handler.CreateResume)
	r.Get("/", handler.ListResumes)
	r.Route("/{resumeID}", func(r chi.Router) {
		r.Get("/", handler.GetResume)
		r.Put("/", handler.UpdateResume)
		r.Delete("/", handler.DeleteResume)
		r.Post("/improve", handler.ImproveResume)
	})
}

func (h *ResumeHandler) CreateResume(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	req, err := decodeResumeRequest(w, r)
	if err != nil {
		writeServiceError(w, r, err, "create resume")
		return
	}

	resume, err := h.resumeService.Create(r.Context(), user.ID, *req.Title, *req.Context)
	if err != nil {
		writeServiceError(w, r, err, "create resume")
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (h *ResumeHandler) ListResumes(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	resumes, err := h.resumeService.List(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err, "list resumes")
		return
	}
	writeJSON(w, http.StatusOK, resumes)
}

func (h *ResumeHandler) GetResume(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	id, err := parseResumeID(r)
	if err != nil {
		writeServiceError(w, r, err, "fetch resume")
		return
	}

	resume, err := h.resumeService.Get(r.Context(), id, user.ID)
	if err != nil {
		writeServiceError(w, r, err, "fetch resume")
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (h *ResumeHandler) UpdateResume(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	id, err := parseResumeID(r)
	if err != nil {
		writeServiceError(w, r, err, "update resume")
		return
	}
	req, err := decodeResumeRequest(w, r)
	if err != nil {
		writeServiceError(w, r, err, "update resume")
		return
	}

	resume, err := h.resumeService.Update(r.Context(), id, user.ID, *req.Title, *req.Context)
	if err != nil {
		writeServiceError(w, r, err, "update resume")
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (h *ResumeHandler) DeleteResume(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	id, err := parseResumeID(r)
	if err != nil {
		writeServiceError(w, r, err, "delete resume")
		return
	}

	if err := h.resumeService.Delete(r.Context(), id, user.ID); err != nil {
		writeServiceError(w, r, err, "delete resume")
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (h *ResumeHandler) ImproveResume(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	id, err := parseResumeID(r)
	if err != nil {
		writeServiceError(w, r, err, "improve resume")
		return
	}

	resume, err := h.resumeService.Improve(r.Context(), id, user.ID)
	if err != nil {
		writeServiceError(w, r, err, "improve resume")
		return
	}
	writeJSON(w, http.StatusOK, ImproveResponse{OK: true, ImprovedContext: resume.Context})
}

// ResumeRequest uses pointers so an absent field can be told apart from an
// empty one.
type ResumeRequest struct {
	Title   *string `json:"title"`
	Context *string `json:"context"`
}

func decodeResumeRequest(w http.ResponseWriter, r *http.Request) (ResumeRequest, error) {
	var req ResumeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return ResumeRequest{}, err
	}
	if req.Title == nil {
		return ResumeRequest{}, invalid("title is required")
	}
	if req.Context == nil {
		return ResumeRequest{}, invalid("context is required")
	}
	return req, nil
}

type ImproveResponse struct {
	OK              bool   `json:"ok"`
	ImprovedContext string `json:"improved_context"`
}
