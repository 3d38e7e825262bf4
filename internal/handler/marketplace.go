package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"campus-events/internal/service"
)

// MarketplaceHandler serves listing and purchase endpoints.
type MarketplaceHandler struct {
	market *service.MarketplaceService
}

// NewMarketplaceHandler creates a MarketplaceHandler.
func NewMarketplaceHandler(market *service.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{market: market}
}

// Register mounts the marketplace endpoints.
func (h *MarketplaceHandler) Register(r chi.Router) {
	r.Post("/marketplace/items", h.create)
	r.Get("/marketplace/items", h.list)
	r.Delete("/marketplace/items/{id}", h.delete)
	r.Post("/marketplace/items/{id}/buy", h.buy)
}

type createItemRequest struct {
	Title       string          `json:"title" validate:"required,min=3,max=200"`
	Description string          `json:"description" validate:"required,min=3,max=2000"`
	Price       decimal.Decimal `json:"price"`
	Category    *string         `json:"category" validate:"omitempty,max=50"`
}

func (h *MarketplaceHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.market.CreateItem(r.Context(), callerID(r), req.Title, req.Description, req.Price, req.Category)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

func (h *MarketplaceHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var category *string
	if v := q.Get("category"); v != "" {
		category = &v
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	items, err := h.market.ListItems(r.Context(), category, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

func (h *MarketplaceHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.market.DeleteItem(r.Context(), id, callerID(r)); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

type buyResponse struct {
	Message       string          `json:"message"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
}

func (h *MarketplaceHandler) buy(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	result, err := h.market.Buy(r.Context(), id, callerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, buyResponse{
		Message:       "Satın alma tamamlandı",
		WalletBalance: result.WalletBalance,
	})
}
