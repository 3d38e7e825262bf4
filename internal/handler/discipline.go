package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"campus-events/internal/service"
)

// DisciplineHandler serves report, review and moderation endpoints.
type DisciplineHandler struct {
	discipline *service.DisciplineService
}

// NewDisciplineHandler creates a DisciplineHandler.
func NewDisciplineHandler(discipline *service.DisciplineService) *DisciplineHandler {
	return &DisciplineHandler{discipline: discipline}
}

// Register mounts the report and review endpoints.
func (h *DisciplineHandler) Register(r chi.Router) {
	r.Post("/reports", h.report)
	r.Post("/reviews", h.review)
	r.Get("/users/{id}/reviews", h.reviewsFor)
}

// RegisterAdmin mounts the moderation queue endpoints.
func (h *DisciplineHandler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/reports", h.pendingReports)
	r.Post("/admin/reports/{id}/resolve", h.resolveReport)
	r.Post("/admin/reports/{id}/dismiss", h.dismissReport)
}

type reportRequest struct {
	ReportedID string  `json:"reported_id" validate:"required,uuid"`
	EventID    *string `json:"event_id" validate:"omitempty,uuid"`
	Reason     string  `json:"reason" validate:"required,max=50"`
	Details    *string `json:"details" validate:"omitempty,max=1000"`
}

type reportResponse struct {
	Message       string `json:"message"`
	ReportID      int64  `json:"report_id"`
	Deduction     int    `json:"deduction"`
	ReportedScore int    `json:"reported_trust_score"`
}

func (h *DisciplineHandler) report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	reportedID, err := uuid.Parse(req.ReportedID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid reported_id")
		return
	}

	var eventID *uuid.UUID
	if req.EventID != nil {
		id, err := uuid.Parse(*req.EventID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid event_id")
			return
		}
		eventID = &id
	}

	result, err := h.discipline.Report(r.Context(), callerID(r), reportedID, eventID, req.Reason, req.Details)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, reportResponse{
		Message:       "Şikayet alındı",
		ReportID:      result.Report.ID,
		Deduction:     result.Deduction,
		ReportedScore: result.ReportedScore,
	})
}

type reviewRequest struct {
	ReviewedID string  `json:"reviewed_id" validate:"required,uuid"`
	EventID    *string `json:"event_id" validate:"omitempty,uuid"`
	Rating     int     `json:"rating" validate:"required,min=1,max=5"`
	Comment    *string `json:"comment" validate:"omitempty,max=1000"`
}

type reviewResponse struct {
	Message       string `json:"message"`
	ScoreChange   int    `json:"score_change"`
	ReviewedScore int    `json:"reviewed_trust_score"`
}

func (h *DisciplineHandler) review(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	reviewedID, err := uuid.Parse(req.ReviewedID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid reviewed_id")
		return
	}

	var eventID *uuid.UUID
	if req.EventID != nil {
		id, err := uuid.Parse(*req.EventID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid event_id")
			return
		}
		eventID = &id
	}

	result, err := h.discipline.Review(r.Context(), callerID(r), reviewedID, eventID, req.Rating, req.Comment)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, reviewResponse{
		Message:       "Değerlendirme kaydedildi",
		ScoreChange:   result.ScoreChange,
		ReviewedScore: result.ReviewedScore,
	})
}

func (h *DisciplineHandler) reviewsFor(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	reviews, err := h.discipline.ReviewsFor(r.Context(), userID, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, reviews)
}

func (h *DisciplineHandler) pendingReports(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	reports, err := h.discipline.PendingReports(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, reports)
}

func (h *DisciplineHandler) resolveReport(w http.ResponseWriter, r *http.Request) {
	h.setReportStatus(w, r, h.discipline.ResolveReport)
}

func (h *DisciplineHandler) dismissReport(w http.ResponseWriter, r *http.Request) {
	h.setReportStatus(w, r, h.discipline.DismissReport)
}

func (h *DisciplineHandler) setReportStatus(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id int64) error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	if err := apply(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
