package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/service"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/export"
	"github.com/noah-isme/timetable-engine/pkg/response"
)

type timetableOrchestrator interface {
	Generate(ctx context.Context, req dto.GenerateRunRequest) (*dto.GenerateRunResponse, error)
	GetProposal(ctx context.Context, proposalID string) (*dto.GenerateRunResponse, error)
	Commit(ctx context.Context, req dto.CommitRunRequest) (*dto.CommitRunResponse, error)
	List(ctx context.Context, query dto.RunQuery) ([]models.Run, error)
	Analysis(ctx context.Context, runID string) (*dto.RunAnalysisResponse, error)
	Sections(ctx context.Context, runID string) ([]models.RunSection, error)
	Import(ctx context.Context, termID string, r io.Reader) (*dto.ImportRequestsResponse, error)
}

// TimetableHandler exposes the scheduling engine's HTTP surface.
type TimetableHandler struct {
	service timetableOrchestrator
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate runs the engine against a term's stored inputs and caches the
// outcome as a reviewable proposal.
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GetProposal fetches a cached proposal by id.
func (h *TimetableHandler) GetProposal(c *gin.Context) {
	result, err := h.service.GetProposal(c.Request.Context(), c.Param("proposalId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Commit persists a cached proposal as a COMMITTED run.
func (h *TimetableHandler) Commit(c *gin.Context) {
	req := dto.CommitRunRequest{ProposalID: c.Param("proposalId")}
	result, err := h.service.Commit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List returns runs for a term.
func (h *TimetableHandler) List(c *gin.Context) {
	query := dto.RunQuery{TermID: c.Query("termId")}
	runs, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, nil)
}

// Analysis returns request resolution statistics for a run.
func (h *TimetableHandler) Analysis(c *gin.Context) {
	result, err := h.service.Analysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportCSV renders a run's committed sections as CSV.
func (h *TimetableHandler) ExportCSV(c *gin.Context) {
	runID := c.Param("id")
	sections, err := h.service.Sections(c.Request.Context(), runID)
	if err != nil {
		response.Error(c, err)
		return
	}
	csvBytes, err := export.RunSectionsCSV(sections)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export"))
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\"run-"+runID+".csv\"")
	c.Data(http.StatusOK, "text/csv", csvBytes)
}

// ExportPDF renders a run's analysis report as PDF.
func (h *TimetableHandler) ExportPDF(c *gin.Context) {
	runID := c.Param("id")
	analysis, err := h.service.Analysis(c.Request.Context(), runID)
	if err != nil {
		response.Error(c, err)
		return
	}
	pdfBytes, err := export.RunAnalysisPDF(runID, analysis)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export"))
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\"run-"+runID+".pdf\"")
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// Import bulk-replaces a term's student course requests from an uploaded
// students.csv file.
func (h *TimetableHandler) Import(c *gin.Context) {
	var req dto.ImportRequestsRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	result, err := h.service.Import(c.Request.Context(), req.TermID, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
