package handler

import (
	"net/http"

	"queuedesk/internal/apierror"
	"queuedesk/internal/dto"
	"queuedesk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type QueueHandler struct{ svc service.QueueService }

func NewQueueHandler(svc service.QueueService) *QueueHandler { return &QueueHandler{svc: svc} }

// Register godoc
// @Summary      Register a customer into the queue
// @Description  Issues the next token number for the current business day and places the customer in the waiting queue ordered by priority.
// @Tags         queue
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RegisterRequest true "Customer details and priority flags"
// @Success      201  {object} dto.QueueEntryResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/queue [post]
func (h *QueueHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Call godoc
// @Summary      Call a waiting customer to a counter
// @Description  Moves a Waiting entry to Serving at the given counter. Fails with COUNTER_BUSY if the counter already serves someone.
// @Tags         queue
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string          true "Queue entry UUID"
// @Param        body body dto.CallRequest true "Counter assignment"
// @Success      200  {object} dto.QueueEntryResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/queue/{id}/call [post]
func (h *QueueHandler) Call(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid id"))
		return
	}
	var req dto.CallRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Call(c.Request.Context(), id, req.CounterID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MarkProcessing godoc
// @Summary      Mark a serving customer as processing
// @Tags         queue
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Queue entry UUID"
// @Success      200 {object} dto.QueueEntryResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/queue/{id}/processing [post]
func (h *QueueHandler) MarkProcessing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid id"))
		return
	}
	resp, err := h.svc.MarkProcessing(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Complete godoc
// @Summary      Complete service for a customer
// @Tags         queue
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Queue entry UUID"
// @Success      200 {object} dto.QueueEntryResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/queue/{id}/complete [post]
func (h *QueueHandler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid id"))
		return
	}
	resp, err := h.svc.Complete(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary      Cancel a queue entry
// @Description  Cancels any non-terminal entry. A reason is mandatory and persisted with the entry.
// @Tags         queue
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string            true "Queue entry UUID"
// @Param        body body dto.CancelRequest true "Cancellation reason"
// @Success      200  {object} dto.QueueEntryResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/queue/{id}/cancel [post]
func (h *QueueHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid id"))
		return
	}
	var req dto.CancelRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reorder godoc
// @Summary      Manually reorder the waiting queue
// @Description  The id list must contain every waiting customer exactly once; partial lists are rejected with INVALID_REORDER_SET and nothing changes.
// @Tags         queue
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ReorderRequest true "New waiting order, first = front"
// @Success      200  {object} dto.ActiveQueueResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/queue/reorder [post]
func (h *QueueHandler) Reorder(c *gin.Context) {
	var req dto.ReorderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ids := make([]uuid.UUID, 0, len(req.CustomerIDs))
	for _, raw := range req.CustomerIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid id: "+raw))
			return
		}
		ids = append(ids, id)
	}
	resp, err := h.svc.Reorder(c.Request.Context(), ids)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListActive godoc
// @Summary      Current active queue
// @Description  Waiting entries in service order plus the entries currently at counters.
// @Tags         queue
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.ActiveQueueResponse
// @Router       /v1/queue [get]
func (h *QueueHandler) ListActive(c *gin.Context) {
	resp, err := h.svc.ListActiveQueue(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary      Fetch one queue entry
// @Tags         queue
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Queue entry UUID"
// @Success      200 {object} dto.QueueEntryResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/queue/{id} [get]
func (h *QueueHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid id"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
