package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"campus-events/internal/model"
	"campus-events/internal/repository"
	"campus-events/internal/service"
)

// AccountHandler serves registration and profile endpoints.
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterPublic mounts the endpoints that do not require a caller identity.
func (h *AccountHandler) RegisterPublic(r chi.Router) {
	r.Post("/users", h.register)
}

// Register mounts the authenticated profile endpoints.
func (h *AccountHandler) Register(r chi.Router) {
	r.Get("/users/me", h.me)
	r.Patch("/users/me", h.updateProfile)
	r.Get("/users/me/notifications", h.notifications)
	r.Post("/users/me/notifications/{id}/read", h.markNotificationRead)
}

type registerRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	FullName    string  `json:"full_name" validate:"required,min=2,max=100"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,min=10,max=20"`
	City        *string `json:"city" validate:"omitempty,max=50"`
}

type userResponse struct {
	ID                string          `json:"id"`
	Email             string          `json:"email"`
	FullName          string          `json:"full_name"`
	PhoneNumber       *string         `json:"phone_number,omitempty"`
	City              *string         `json:"city,omitempty"`
	Bio               *string         `json:"bio,omitempty"`
	TrustScore        int             `json:"trust_score"`
	WalletBalance     decimal.Decimal `json:"wallet_balance"`
	IsVerified        bool            `json:"is_verified"`
	IsStudentVerified bool            `json:"is_student_verified"`
	IsEmailVerified   bool            `json:"is_email_verified"`
	IsPhoneVerified   bool            `json:"is_phone_verified"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:                u.ID.String(),
		Email:             u.Email,
		FullName:          u.FullName,
		PhoneNumber:       u.PhoneNumber,
		City:              u.City,
		Bio:               u.Bio,
		TrustScore:        u.TrustScore,
		WalletBalance:     u.WalletBalance,
		IsVerified:        u.IsVerified,
		IsStudentVerified: u.IsStudentVerified,
		IsEmailVerified:   u.IsEmailVerified,
		IsPhoneVerified:   u.IsPhoneVerified,
	}
}

func (h *AccountHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Email, req.FullName, req.PhoneNumber, req.City)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *AccountHandler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Get(r.Context(), callerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toUserResponse(user))
}

type updateProfileRequest struct {
	FullName    *string `json:"full_name" validate:"omitempty,min=2,max=100"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,min=10,max=20"`
	City        *string `json:"city" validate:"omitempty,max=50"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
}

func (h *AccountHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), callerID(r), repository.ProfileUpdate{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		City:        req.City,
		Bio:         req.Bio,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *AccountHandler) notifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	notifs, err := h.accounts.Notifications(r.Context(), callerID(r), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, notifs)
}

func (h *AccountHandler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.accounts.MarkNotificationRead(r.Context(), id, callerID(r)); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
