package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"campus-events/internal/service"
)

// ParticipationHandler serves the join / check-in / leave / cancel
// lifecycle endpoints.
type ParticipationHandler struct {
	parts *service.ParticipationService
}

// NewParticipationHandler creates a ParticipationHandler.
func NewParticipationHandler(parts *service.ParticipationService) *ParticipationHandler {
	return &ParticipationHandler{parts: parts}
}

// Register mounts the participation endpoints.
func (h *ParticipationHandler) Register(r chi.Router) {
	r.Post("/events/{id}/join", h.join)
	r.Post("/events/{id}/leave", h.leave)
	r.Post("/events/{id}/checkin", h.checkIn)
	r.Get("/events/{id}/ticket", h.ticket)
	r.Post("/events/{id}/validate-ticket", h.validateTicket)
	r.Post("/events/{id}/cancel", h.cancel)
	r.Get("/events/{id}/participants", h.participants)
}

type joinResponse struct {
	Message       string          `json:"message"`
	PaymentStatus string          `json:"payment_status"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	EventStatus   string          `json:"event_status"`
}

func (h *ParticipationHandler) join(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.parts.Join(r.Context(), eventID, callerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	msg := "Etkinliğe katıldınız"
	if result.DepositTaken {
		msg = "Etkinliğe katıldınız, depozito alındı"
	}

	respondJSON(w, http.StatusCreated, joinResponse{
		Message:       msg,
		PaymentStatus: result.Participation.PaymentStatus,
		WalletBalance: result.WalletBalance,
		EventStatus:   result.EventStatus,
	})
}

type checkInRequest struct {
	SessionToken string `json:"session_token" validate:"required"`
}

type checkInResponse struct {
	Message    string `json:"message"`
	TrustScore int    `json:"trust_score"`
}

func (h *ParticipationHandler) checkIn(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req checkInRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.parts.CheckIn(r.Context(), eventID, callerID(r), req.SessionToken)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	msg := "Giriş yapıldı, güven puanı eklendi"
	if result.AlreadyCheckedIn {
		msg = "Zaten giriş yapılmış"
	}

	respondJSON(w, http.StatusOK, checkInResponse{
		Message:    msg,
		TrustScore: result.TrustScore,
	})
}

type ticketResponse struct {
	AccessKey string `json:"access_key"`
}

func (h *ParticipationHandler) ticket(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	key, err := h.parts.Ticket(r.Context(), eventID, callerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ticketResponse{AccessKey: key})
}

type validateTicketRequest struct {
	AccessKey string `json:"access_key" validate:"required"`
}

func (h *ParticipationHandler) validateTicket(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req validateTicketRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.parts.ValidateTicket(r.Context(), eventID, callerID(r), req.AccessKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, checkInResponse{
		Message:    "Bilet doğrulandı, katılımcı girişi yapıldı",
		TrustScore: result.TrustScore,
	})
}

type leaveResponse struct {
	Message       string          `json:"message"`
	Penalty       int             `json:"penalty"`
	PenaltyTag    string          `json:"penalty_tag,omitempty"`
	Refunded      bool            `json:"refunded"`
	TrustScore    int             `json:"trust_score"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
}

func (h *ParticipationHandler) leave(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.parts.Leave(r.Context(), eventID, callerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	msg := "Etkinlikten ayrıldınız"
	if result.Refunded {
		msg = "Etkinlikten ayrıldınız, depozito iade edildi"
	}

	respondJSON(w, http.StatusOK, leaveResponse{
		Message:       msg,
		Penalty:       result.Penalty,
		PenaltyTag:    result.PenaltyTag,
		Refunded:      result.Refunded,
		TrustScore:    result.TrustScore,
		WalletBalance: result.WalletBalance,
	})
}

type cancelResponse struct {
	Message       string `json:"message"`
	RefundedCount int    `json:"refunded_count"`
}

func (h *ParticipationHandler) cancel(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.parts.Cancel(r.Context(), eventID, callerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cancelResponse{
		Message:       "Etkinlik iptal edildi, depozitolar iade edildi",
		RefundedCount: result.RefundedCount,
	})
}

func (h *ParticipationHandler) participants(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	parts, err := h.parts.Participants(r.Context(), eventID, callerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, parts)
}
