package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vaultbank/backend/internal/ledger"
	"github.com/vaultbank/backend/internal/logger"
	"github.com/vaultbank/backend/internal/models"
)

// TransferHandler is the HTTP facade over the transfer engine. It decodes,
// validates, and dispatches; all ledger logic lives in the engine.
type TransferHandler struct {
	ledger    *ledger.Service
	validator *ValidationHelper
}

func NewTransferHandler(svc *ledger.Service) *TransferHandler {
	return &TransferHandler{ledger: svc, validator: NewValidationHelper()}
}

// OpenAccount creates an account with an initial deposit.
func (h *TransferHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req models.OpenAccountRequest
	if err := decodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := h.ledger.OpenAccount(r.Context(), &req)
	if err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusCreated, account)
}

// GetAccount returns current account state.
func (h *TransferHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ledger.GetAccount(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, account)
}

// SetAccountStatus performs an explicit account status transition.
func (h *TransferHandler) SetAccountStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.AccountStatus `json:"status" validate:"required"`
	}
	if err := decodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := h.ledger.SetAccountStatus(r.Context(), chi.URLParam(r, "accountId"), req.Status)
	if err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, account)
}

// TransferInternal moves funds between two local accounts.
func (h *TransferHandler) TransferInternal(w http.ResponseWriter, r *http.Request) {
	var req models.InternalTransferRequest
	if err := decodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.ledger.TransferInternal(r.Context(), &req)
	if err != nil {
		logger.Log.Warn("internal transfer rejected",
			zap.String("fromAccountId", req.FromAccountID), zap.Error(err))
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusCreated, result)
}

// TransferDeferred debits the source and records a pending NEFT leg.
func (h *TransferHandler) TransferDeferred(w http.ResponseWriter, r *http.Request) {
	h.outboundTransfer(w, r, h.ledger.TransferDeferred)
}

// TransferInstant settles synchronously over the IMPS rail.
func (h *TransferHandler) TransferInstant(w http.ResponseWriter, r *http.Request) {
	h.outboundTransfer(w, r, h.ledger.TransferInstant)
}

type outboundFunc func(ctx context.Context, req *models.OutboundTransferRequest) (*models.Transaction, error)

func (h *TransferHandler) outboundTransfer(w http.ResponseWriter, r *http.Request, transfer outboundFunc) {
	var req models.OutboundTransferRequest
	if err := decodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	txn, err := transfer(r.Context(), &req)
	if err != nil {
		logger.Log.Warn("outbound transfer rejected",
			zap.String("fromAccountId", req.FromAccountID), zap.Error(err))
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusCreated, map[string]any{"transaction": txn})
}
