package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campus-events/internal/service"
)

// VerificationHandler serves the four verification channel endpoints.
type VerificationHandler struct {
	verification *service.VerificationService
}

// NewVerificationHandler creates a VerificationHandler.
func NewVerificationHandler(verification *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// Register mounts the verification endpoints.
func (h *VerificationHandler) Register(r chi.Router) {
	r.Post("/verification/email/send", h.sendEmailOTP)
	r.Post("/verification/email/confirm", h.confirmEmailOTP)
	r.Post("/verification/phone/send", h.sendPhoneOTP)
	r.Post("/verification/phone/confirm", h.confirmPhoneOTP)
	r.Post("/verification/student", h.verifyStudent)
	r.Post("/verification/identity", h.verifyIdentity)
}

type messageResponse struct {
	Message string `json:"message"`
}

type verificationResponse struct {
	Message    string `json:"message"`
	Bonus      int    `json:"bonus"`
	TrustScore int    `json:"trust_score"`
}

func (h *VerificationHandler) sendEmailOTP(w http.ResponseWriter, r *http.Request) {
	if err := h.verification.SendEmailOTP(r.Context(), callerID(r)); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "Doğrulama kodu e-posta adresinize gönderildi"})
}

type confirmOTPRequest struct {
	Code string `json:"code" validate:"required,min=4,max=8"`
}

func (h *VerificationHandler) confirmEmailOTP(w http.ResponseWriter, r *http.Request) {
	var req confirmOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.verification.ConfirmEmailOTP(r.Context(), callerID(r), req.Code)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, verificationResponse{
		Message:    "E-posta doğrulandı",
		Bonus:      result.Bonus,
		TrustScore: result.TrustScore,
	})
}

func (h *VerificationHandler) sendPhoneOTP(w http.ResponseWriter, r *http.Request) {
	if err := h.verification.SendPhoneOTP(r.Context(), callerID(r)); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "Doğrulama kodu telefonunuza gönderildi"})
}

func (h *VerificationHandler) confirmPhoneOTP(w http.ResponseWriter, r *http.Request) {
	var req confirmOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.verification.ConfirmPhoneOTP(r.Context(), callerID(r), req.Code)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, verificationResponse{
		Message:    "Telefon doğrulandı",
		Bonus:      result.Bonus,
		TrustScore: result.TrustScore,
	})
}

type studentVerifyRequest struct {
	Barcode string `json:"barcode" validate:"required,min=5,max=100"`
}

func (h *VerificationHandler) verifyStudent(w http.ResponseWriter, r *http.Request) {
	var req studentVerifyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.verification.VerifyStudent(r.Context(), callerID(r), req.Barcode)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, verificationResponse{
		Message:    "Öğrenci belgesi doğrulandı",
		Bonus:      result.Bonus,
		TrustScore: result.TrustScore,
	})
}

type identityVerifyRequest struct {
	NationalID string `json:"national_id" validate:"required,len=11,numeric"`
	FirstName  string `json:"first_name" validate:"required,min=2,max=50"`
	LastName   string `json:"last_name" validate:"required,min=2,max=50"`
	BirthYear  int    `json:"birth_year" validate:"required,min=1900,max=2020"`
}

func (h *VerificationHandler) verifyIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityVerifyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.verification.VerifyIdentity(r.Context(), callerID(r), req.NationalID, req.FirstName, req.LastName, req.BirthYear)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, verificationResponse{
		Message:    "Kimlik doğrulandı",
		Bonus:      result.Bonus,
		TrustScore: result.TrustScore,
	})
}
