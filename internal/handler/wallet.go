package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"campus-events/internal/provider"
	"campus-events/internal/service"
)

// WalletHandler serves top-up, withdrawal and transaction endpoints.
type WalletHandler struct {
	wallet *service.WalletService
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallet *service.WalletService) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// Register mounts the authenticated wallet endpoints.
func (h *WalletHandler) Register(r chi.Router) {
	r.Get("/wallet", h.balance)
	r.Post("/wallet/topup", h.initiateTopUp)
	r.Post("/wallet/withdraw", h.withdraw)
	r.Get("/wallet/transactions", h.transactions)
}

// RegisterPublic mounts the gateway callback, which arrives without a
// caller identity.
func (h *WalletHandler) RegisterPublic(r chi.Router) {
	r.Post("/wallet/topup/callback", h.topUpCallback)
}

type balanceResponse struct {
	WalletBalance decimal.Decimal `json:"wallet_balance"`
}

func (h *WalletHandler) balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.wallet.Balance(r.Context(), callerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, balanceResponse{WalletBalance: balance})
}

type topUpRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	HolderName  string          `json:"card_holder_name" validate:"required"`
	CardNumber  string          `json:"card_number" validate:"required,min=12,max=19"`
	ExpireMonth string          `json:"expire_month" validate:"required,len=2"`
	ExpireYear  string          `json:"expire_year" validate:"required,len=4"`
	CVC         string          `json:"cvc" validate:"required,min=3,max=4"`
}

type topUpResponse struct {
	ConversationID string `json:"conversation_id"`
	HTMLContent    string `json:"html_content"`
}

func (h *WalletHandler) initiateTopUp(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	init, err := h.wallet.InitiateTopUp(r.Context(), callerID(r), req.Amount, provider.CardDetails{
		HolderName:  req.HolderName,
		Number:      req.CardNumber,
		ExpireMonth: req.ExpireMonth,
		ExpireYear:  req.ExpireYear,
		CVC:         req.CVC,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, topUpResponse{
		ConversationID: init.ConversationID,
		HTMLContent:    init.HTMLContent,
	})
}

// topUpCallback receives the gateway's 3DS result as a form post.
func (h *WalletHandler) topUpCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid callback body")
		return
	}

	conversationID := r.FormValue("conversationId")
	if conversationID == "" {
		respondError(w, http.StatusBadRequest, "missing conversationId")
		return
	}
	success := r.FormValue("status") == "success" && r.FormValue("mdStatus") == "1"

	result, err := h.wallet.ConfirmTopUp(r.Context(), conversationID, success)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":        "Yükleme tamamlandı",
		"amount":         result.Amount,
		"wallet_balance": result.WalletBalance,
	})
}

type withdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *WalletHandler) withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.wallet.Withdraw(r.Context(), callerID(r), req.Amount)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, balanceResponse{WalletBalance: result.WalletBalance})
}

func (h *WalletHandler) transactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	txs, err := h.wallet.History(r.Context(), callerID(r), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, txs)
}
