package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/service"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/response"
)

// ExportJobHandler exposes asynchronous export rendering for large runs.
type ExportJobHandler struct {
	service *service.ExportJobService
}

// NewExportJobHandler constructs the handler.
func NewExportJobHandler(svc *service.ExportJobService) *ExportJobHandler {
	return &ExportJobHandler{service: svc}
}

// Request queues a run export and returns the job id to poll.
func (h *ExportJobHandler) Request(c *gin.Context) {
	var req dto.ExportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export request"))
		return
	}
	result, err := h.service.Request(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Status reports a queued job's progress.
func (h *ExportJobHandler) Status(c *gin.Context) {
	result, err := h.service.Status(c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download streams a rendered export for a valid signed token.
func (h *ExportJobHandler) Download(c *gin.Context) {
	file, err := h.service.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()
	c.Header("Content-Disposition", "attachment")
	http.ServeContent(c.Writer, c.Request, file.Name(), time.Time{}, file)
}
