package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"campus-events/internal/service"
)

// EventHandler serves event creation and discovery endpoints.
type EventHandler struct {
	events *service.EventService
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// Register mounts the event endpoints.
func (h *EventHandler) Register(r chi.Router) {
	r.Post("/events", h.create)
	r.Get("/events", h.list)
	r.Get("/events/mine", h.listMine)
	r.Get("/events/{id}", h.get)
}

type createEventRequest struct {
	Title         string          `json:"title" validate:"required,min=3,max=200"`
	Description   string          `json:"description" validate:"required,min=3,max=2000"`
	Date          time.Time       `json:"date" validate:"required"`
	City          *string         `json:"city" validate:"omitempty,max=50"`
	Category      *string         `json:"category" validate:"omitempty,max=50"`
	Capacity      int             `json:"capacity" validate:"omitempty,min=1,max=10000"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
	Price         decimal.Decimal `json:"price"`
}

func (h *EventHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	event, err := h.events.Create(r.Context(), callerID(r), service.CreateEventInput{
		Title:         req.Title,
		Description:   req.Description,
		Date:          req.Date,
		City:          req.City,
		Category:      req.Category,
		Capacity:      req.Capacity,
		DepositAmount: req.DepositAmount,
		Price:         req.Price,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var city, category *string
	if v := q.Get("city"); v != "" {
		city = &v
	}
	if v := q.Get("category"); v != "" {
		category = &v
	}
	showPast := q.Get("show_past") == "true"
	limit, _ := strconv.Atoi(q.Get("limit"))

	events, err := h.events.List(r.Context(), city, category, showPast, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, events)
}

func (h *EventHandler) listMine(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListMine(r.Context(), callerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, events)
}

func (h *EventHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	event, err := h.events.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, event)
}

// parseUUIDParam parses a UUID path parameter, writing a 400 on failure.
func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
