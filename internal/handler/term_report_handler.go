package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skul-exams-api/internal/models"
	"github.com/noah-isme/skul-exams-api/internal/service"
	"github.com/noah-isme/skul-exams-api/pkg/response"
)

// TermReportHandler exposes term report queries and publishing.
type TermReportHandler struct {
	reports *service.TermReportService
}

// NewTermReportHandler constructs handler.
func NewTermReportHandler(reports *service.TermReportService) *TermReportHandler {
	return &TermReportHandler{reports: reports}
}

// List godoc
// @Summary List term reports
// @Tags Reports
// @Produce json
// @Param classId query string false "Filter by class"
// @Param studentId query string false "Filter by student"
// @Param term query string false "Filter by term"
// @Param academicYear query string false "Filter by academic year"
// @Param published query bool false "Filter by published flag"
// @Success 200 {object} response.Envelope
// @Router /term-reports [get]
func (h *TermReportHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := models.TermReportFilter{
		ClassID:      c.Query("classId"),
		StudentID:    c.Query("studentId"),
		Term:         c.Query("term"),
		AcademicYear: c.Query("academicYear"),
		Published:    parseBoolPtr(c, "published"),
		Page:         page,
		PageSize:     pageSize,
	}
	listing, err := h.reports.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing.Reports, paginationMeta(page, pageSize, listing.Total))
}

// Publish godoc
// @Summary Publish one term report
// @Tags Reports
// @Produce json
// @Param id path string true "Term report ID"
// @Success 200 {object} response.Envelope
// @Router /term-reports/{id}/publish [post]
func (h *TermReportHandler) Publish(c *gin.Context) {
	if err := h.reports.Publish(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "published"}, nil)
}
