package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skul-exams-api/internal/models"
	"github.com/noah-isme/skul-exams-api/internal/service"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
	"github.com/noah-isme/skul-exams-api/pkg/response"
)

// ConsolidatedReportHandler exposes cross-exam consolidation.
type ConsolidatedReportHandler struct {
	consolidation *service.ConsolidationService
}

// NewConsolidatedReportHandler constructs handler.
func NewConsolidatedReportHandler(consolidation *service.ConsolidationService) *ConsolidatedReportHandler {
	return &ConsolidatedReportHandler{consolidation: consolidation}
}

// Generate godoc
// @Summary Run the term consolidation for the caller's school
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body service.GenerateConsolidationRequest true "Run scope"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /consolidated-reports/generate [post]
func (h *ConsolidatedReportHandler) Generate(c *gin.Context) {
	schoolID, err := schoolScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.GenerateConsolidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	count, err := h.consolidation.Generate(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"status": "generated", "count": count}, nil)
}

// List godoc
// @Summary List consolidated reports
// @Tags Reports
// @Produce json
// @Param classId query string false "Filter by class"
// @Param studentId query string false "Filter by student"
// @Param term query string false "Filter by term"
// @Param academicYear query string false "Filter by academic year"
// @Param published query bool false "Filter by published flag"
// @Success 200 {object} response.Envelope
// @Router /consolidated-reports [get]
func (h *ConsolidatedReportHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := models.ConsolidatedReportFilter{
		ClassID:      c.Query("classId"),
		StudentID:    c.Query("studentId"),
		Term:         c.Query("term"),
		AcademicYear: c.Query("academicYear"),
		Published:    parseBoolPtr(c, "published"),
		Page:         page,
		PageSize:     pageSize,
	}
	listing, err := h.consolidation.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing.Reports, paginationMeta(page, pageSize, listing.Total))
}

// Publish godoc
// @Summary Publish one consolidated report
// @Tags Reports
// @Produce json
// @Param id path string true "Consolidated report ID"
// @Success 200 {object} response.Envelope
// @Router /consolidated-reports/{id}/publish [post]
func (h *ConsolidatedReportHandler) Publish(c *gin.Context) {
	if err := h.consolidation.Publish(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "published"}, nil)
}

// ListRules godoc
// @Summary List the school's consolidation rules
// @Tags Rules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /consolidation-rules [get]
func (h *ConsolidatedReportHandler) ListRules(c *gin.Context) {
	schoolID, err := schoolScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rules, err := h.consolidation.ListRules(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// CreateRule godoc
// @Summary Create a consolidation rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param payload body service.CreateRuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /consolidation-rules [post]
func (h *ConsolidatedReportHandler) CreateRule(c *gin.Context) {
	schoolID, err := schoolScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.consolidation.CreateRule(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// UpdateRule godoc
// @Summary Update a consolidation rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param payload body service.UpdateRuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Router /consolidation-rules/{id} [put]
func (h *ConsolidatedReportHandler) UpdateRule(c *gin.Context) {
	schoolID, err := schoolScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.consolidation.UpdateRule(c.Request.Context(), schoolID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}
