package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vexeradubbing/applybot/internal/errors"
	"github.com/vexeradubbing/applybot/internal/model"
	"github.com/vexeradubbing/applybot/internal/queue"
	"github.com/vexeradubbing/applybot/internal/service"
)

// submitResponse is the intake reply body for the website form.
type submitResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	ApplicationID string `json:"application_id,omitempty"`
}

type ApplicationHandler struct {
	svc    service.ApplicationService
	intake *queue.IntakeQueue
	logger *slog.Logger
}

func NewApplicationHandler(svc service.ApplicationService, intake *queue.IntakeQueue, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{svc: svc, intake: intake, logger: logger}
}

// Submit accepts a website application: POST /submit.
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub service.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.logger.Warn("Invalid request body for Submit")
		writeJSON(w, http.StatusBadRequest, submitResponse{
			Status:  "error",
			Message: "invalid request body",
		})
		return
	}

	app, err := h.svc.Submit(r.Context(), sub, "http")
	if err != nil {
		if errors.IsValidation(err) {
			writeJSON(w, http.StatusBadRequest, submitResponse{
				Status:  "error",
				Message: err.Error(),
			})
			return
		}
		h.logger.Error("Submit failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, submitResponse{
			Status:  "error",
			Message: "internal server error",
		})
		return
	}

	if err := h.intake.Enqueue(*app); err != nil {
		// The record is persisted; only the admin dispatch is delayed.
		h.logger.Error("failed to queue application for review",
			slog.String("id", app.ID), slog.Any("error", err))
	}

	writeJSON(w, http.StatusOK, submitResponse{
		Status:        "success",
		Message:       "application received",
		ApplicationID: app.ID,
	})
}

// Status reports service identity and per-bucket counts: GET /.
func (h *ApplicationHandler) Status(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Counts(r.Context())
	if err != nil {
		h.logger.Error("Counts failed", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":                "running",
		"service":               "VexeraDubbing Application Bot",
		"version":               "1.0",
		"received_applications": counts[model.StatusReceived],
		"pending_applications":  counts[model.StatusPending],
		"approved_applications": counts[model.StatusApproved],
		"rejected_applications": counts[model.StatusRejected],
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
