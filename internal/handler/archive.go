package handler

import (
	"net/http"
	"strconv"
	"time"

	"queuedesk/internal/apierror"
	"queuedesk/internal/dto"
	"queuedesk/internal/service"
	"queuedesk/internal/worker"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type ArchiveHandler struct {
	svc service.ResetService
	loc *time.Location
}

func NewArchiveHandler(svc service.ResetService, loc *time.Location) *ArchiveHandler {
	return &ArchiveHandler{svc: svc, loc: loc}
}

// GetDailyArchive godoc
// @Summary      Daily archive for one date
// @Description  A date with no archive yet returns archive:null with 200 — "no report yet" is an expected state, not an error.
// @Tags         archive
// @Produce      json
// @Security     BearerAuth
// @Param        date path string true "Business date YYYY-MM-DD"
// @Success      200  {object} dto.ArchiveLookupResponse
// @Router       /v1/archive/{date} [get]
func (h *ArchiveHandler) GetDailyArchive(c *gin.Context) {
	date, err := time.ParseInLocation(dateLayout, c.Param("date"), time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid date, expected YYYY-MM-DD"))
		return
	}
	resp, err := h.svc.GetDailyArchive(c.Request.Context(), date)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ArchiveLookupResponse{Date: date.Format(dateLayout), Archive: resp})
}

// ListResetLogs godoc
// @Summary      Recent reset runs, newest first
// @Tags         archive
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Max rows (default 30)"
// @Success      200   {array} dto.ResetLogResponse
// @Router       /v1/reset/logs [get]
func (h *ArchiveHandler) ListResetLogs(c *gin.Context) {
	limit := 30
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "limit must be 1-100"))
			return
		}
		limit = n
	}
	resp, err := h.svc.ListResetLogs(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RunReset godoc
// @Summary      Trigger the daily reset manually
// @Description  Same guarantees as the scheduled run: at most one successful reset per date, failed runs may be retried. Defaults to the current business date.
// @Tags         archive
// @Produce      json
// @Security     BearerAuth
// @Param        date query string false "Business date YYYY-MM-DD (default: today)"
// @Success      200  {object} dto.ResetLogResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/reset/run [post]
func (h *ArchiveHandler) RunReset(c *gin.Context) {
	date := worker.ClosingDate(time.Now().In(h.loc))
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid date, expected YYYY-MM-DD"))
			return
		}
		date = parsed
	}
	resp, err := h.svc.Run(c.Request.Context(), date, "manual")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
