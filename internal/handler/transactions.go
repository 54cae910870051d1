package handler

import (
	"net/http"

	"queuedesk/internal/apierror"
	"queuedesk/internal/dto"
	"queuedesk/internal/middleware"
	"queuedesk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TransactionsHandler struct{ svc service.SettlementService }

func NewTransactionsHandler(svc service.SettlementService) *TransactionsHandler {
	return &TransactionsHandler{svc: svc}
}

// Create godoc
// @Summary      Open a billing transaction for a queue entry
// @Description  The amount is fixed at creation; payments land as settlements afterwards.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateTransactionRequest true "Queue entry and total amount"
// @Success      201  {object} dto.TransactionResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/transactions [post]
func (h *TransactionsHandler) Create(c *gin.Context) {
	var req dto.CreateTransactionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateTransaction(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// CreateSettlement godoc
// @Summary      Record a payment against a transaction
// @Description  Appends an immutable settlement. The running balance is re-read inside the same transaction as the insert, so two cashiers cannot overpay together.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                      true "Transaction UUID"
// @Param        body body dto.CreateSettlementRequest true "Amount and payment mode"
// @Success      201  {object} dto.TransactionResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/transactions/{id}/settlements [post]
func (h *TransactionsHandler) CreateSettlement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid id"))
		return
	}
	var req dto.CreateSettlementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	cashierID, _ := uuid.Parse(claims.StaffID)

	resp, err := h.svc.CreateSettlement(c.Request.Context(), id, cashierID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get godoc
// @Summary      Fetch a transaction with its settlement history
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Transaction UUID"
// @Success      200 {object} dto.TransactionResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/transactions/{id} [get]
func (h *TransactionsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid id"))
		return
	}
	resp, err := h.svc.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListSettlements godoc
// @Summary      Settlement history for a transaction, newest first
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Transaction UUID"
// @Success      200 {array} dto.SettlementResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/transactions/{id}/settlements [get]
func (h *TransactionsHandler) ListSettlements(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid id"))
		return
	}
	resp, err := h.svc.ListSettlements(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
