package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skul-exams-api/internal/models"
	"github.com/noah-isme/skul-exams-api/internal/service"
	"github.com/noah-isme/skul-exams-api/pkg/response"
)

// ExamHandler exposes exam endpoints.
type ExamHandler struct {
	exams       *service.ExamService
	termReports *service.TermReportService
}

// NewExamHandler constructs handler.
func NewExamHandler(exams *service.ExamService, termReports *service.TermReportService) *ExamHandler {
	return &ExamHandler{exams: exams, termReports: termReports}
}

// List godoc
// @Summary List exams
// @Tags Exams
// @Produce json
// @Param classId query string false "Filter by class"
// @Param examTypeId query string false "Filter by exam type"
// @Param term query string false "Filter by term"
// @Param academicYear query string false "Filter by academic year"
// @Param published query bool false "Filter by published flag"
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	schoolID, err := schoolScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pageSize := parsePagination(c)
	filter := models.ExamFilter{
		SchoolID:     schoolID,
		ClassID:      c.Query("classId"),
		ExamTypeID:   c.Query("examTypeId"),
		Term:         c.Query("term"),
		AcademicYear: c.Query("academicYear"),
		Published:    parseBoolPtr(c, "published"),
		Page:         page,
		PageSize:     pageSize,
	}
	exams, total, err := h.exams.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, paginationMeta(page, pageSize, total))
}

// Get godoc
// @Summary Get one exam with its derived status
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	exam, err := h.exams.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Terms godoc
// @Summary List distinct term and year pairs with exams
// @Tags Exams
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exams/terms [get]
func (h *ExamHandler) Terms(c *gin.Context) {
	schoolID, err := schoolScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	options, err := h.exams.Terms(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Stats godoc
// @Summary Summarise the school's exams
// @Tags Exams
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exams/stats [get]
func (h *ExamHandler) Stats(c *gin.Context) {
	schoolID, err := schoolScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.exams.Stats(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Publish godoc
// @Summary Publish an exam and cascade to its subjects
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/publish [post]
func (h *ExamHandler) Publish(c *gin.Context) {
	if err := h.exams.Publish(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "published"}, nil)
}

// ListSubjects godoc
// @Summary List an exam's subjects
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/subjects [get]
func (h *ExamHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.exams.ListSubjects(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// PublishSubject godoc
// @Summary Publish a single exam subject
// @Tags Exams
// @Produce json
// @Param id path string true "Exam subject ID"
// @Success 200 {object} response.Envelope
// @Router /exam-subjects/{id}/publish [post]
func (h *ExamHandler) PublishSubject(c *gin.Context) {
	if err := h.exams.PublishSubject(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "published"}, nil)
}

// GenerateTermReport godoc
// @Summary Generate term reports from one exam's results
// @Tags Reports
// @Produce json
// @Param id path string true "Exam ID"
// @Success 201 {object} response.Envelope
// @Router /exams/{id}/generate_term_report [post]
func (h *ExamHandler) GenerateTermReport(c *gin.Context) {
	count, err := h.termReports.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"status": "generated", "count": count}, nil)
}
