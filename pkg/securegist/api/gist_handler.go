package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/securegist/securegist/pkg/securegist"
)

// GistHandler handles HTTP requests for gists
type GistHandler struct {
	service securegist.Service
}

// NewGistHandler creates a new gist handler
func NewGistHandler(service securegist.Service) *GistHandler {
	return &GistHandler{service: service}
}

// Routes returns the routes for gists
func (h *GistHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateGist)
	r.Get("/{gistID}", h.ReadGist)
	r.Delete("/{gistID}", h.DeleteGist)

	return r
}

// CreateGistRequest is the request body for creating a gist
type CreateGistRequest struct {
	Metadata       map[string]interface{} `json:"gist_metadata"`
	ExpirationDate string                 `json:"expiration_date,omitempty"`
	MaxReads       int                    `json:"max_reads,omitempty"`
}

// CreateGistResponse is the response body for a created gist
type CreateGistResponse struct {
	GistID       string                  `json:"gist_id"`
	UploadParams *securegist.UploadGrant `json:"upload_params"`
}

// GistResponse is the response body for a gist read
type GistResponse struct {
	GistID         string                 `json:"gist_id"`
	DownloadURL    string                 `json:"download_url"`
	Metadata       map[string]interface{} `json:"gist_metadata"`
	ExpirationDate *string                `json:"expiration_date,omitempty"`
	ReadCount      int                    `json:"read_count"`
	MaxReads       int                    `json:"max_reads"`
	VersionHistory []interface{}          `json:"version_history,omitempty"`
}

// ErrorResponse is the structured error body for every failure
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and the reason string
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateGist creates a new gist record and returns an upload grant
func (h *GistHandler) CreateGist(w http.ResponseWriter, r *http.Request) {
	var req CreateGistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	if req.Metadata == nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "gist_metadata is required")
		return
	}

	var expiration *time.Time
	if req.ExpirationDate != "" {
		var err error
		expiration, err = securegist.ParseExpiration(req.ExpirationDate)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "validation_error", "expiration_date must be an RFC 3339 timestamp")
			return
		}
	}

	gist, grant, err := h.service.CreateGist(r.Context(), securegist.CreateGistRequest{
		Metadata:       req.Metadata,
		ExpirationDate: expiration,
		MaxReads:       req.MaxReads,
	})
	if err != nil {
		slog.Error("Failed to create gist", "error", err)
		writeError(w, r, http.StatusInternalServerError, "storage_unavailable", "failed to generate upload URL")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, CreateGistResponse{
		GistID:       gist.ID.String(),
		UploadParams: grant,
	})
}

// ReadGist enforces access rules and returns the gist with a download grant
func (h *GistHandler) ReadGist(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "gistID"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "not_found", "gist not found")
		return
	}

	view, err := h.service.ReadGist(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, id, "read", err)
		return
	}

	var expiration *string
	if view.ExpirationDate != nil {
		s := view.ExpirationDate.UTC().Format(time.RFC3339)
		expiration = &s
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, GistResponse{
		GistID:         view.ID.String(),
		DownloadURL:    view.DownloadURL,
		Metadata:       view.Metadata,
		ExpirationDate: expiration,
		ReadCount:      view.ReadCount,
		MaxReads:       view.MaxReads,
		VersionHistory: view.VersionHistory,
	})
}

// DeleteGist removes a gist and its blob
func (h *GistHandler) DeleteGist(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "gistID"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "not_found", "gist not found")
		return
	}

	if _, err := h.service.DeleteGist(r.Context(), id); err != nil {
		h.renderServiceError(w, r, id, "delete", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// renderServiceError maps lifecycle errors to fixed status codes. Provider
// details never reach the caller; failures outside the taxonomy are logged
// and reported as a bare 500.
func (h *GistHandler) renderServiceError(w http.ResponseWriter, r *http.Request, id uuid.UUID, op string, err error) {
	var goneErr *securegist.GoneError
	switch {
	case errors.As(err, &goneErr):
		writeError(w, r, http.StatusGone, "gone", goneErr.Reason)
	case errors.Is(err, securegist.ErrGistGone):
		writeError(w, r, http.StatusGone, "gone", "gist gone")
	case errors.Is(err, securegist.ErrGistNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "gist not found")
	case errors.Is(err, securegist.ErrStorageUnavailable):
		slog.Error("Object storage failure", "gist_id", id, "op", op, "error", err)
		writeError(w, r, http.StatusInternalServerError, "storage_unavailable", "object storage unavailable")
	default:
		slog.Error("Gist operation failed", "gist_id", id, "op", op, "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "an internal error occurred")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
