package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skul-exams-api/internal/models"
	"github.com/noah-isme/skul-exams-api/internal/service"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
	"github.com/noah-isme/skul-exams-api/pkg/response"
)

// ExamResultHandler exposes result recording and subject statistics.
type ExamResultHandler struct {
	results *service.ResultService
}

// NewExamResultHandler constructs handler.
func NewExamResultHandler(results *service.ResultService) *ExamResultHandler {
	return &ExamResultHandler{results: results}
}

// Create godoc
// @Summary Record one exam result
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.CreateResultRequest true "Result payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /exam-results [post]
func (h *ExamResultHandler) Create(c *gin.Context) {
	var req service.CreateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.results.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Update an exam result and re-derive its grade
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param payload body service.UpdateResultRequest true "Result payload"
// @Success 200 {object} response.Envelope
// @Router /exam-results/{id} [put]
func (h *ExamResultHandler) Update(c *gin.Context) {
	var req service.UpdateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.results.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get one exam result
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Router /exam-results/{id} [get]
func (h *ExamResultHandler) Get(c *gin.Context) {
	result, err := h.results.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List exam results
// @Tags Results
// @Produce json
// @Param examSubjectId query string false "Filter by exam subject"
// @Param studentId query string false "Filter by student"
// @Param examId query string false "Filter by exam"
// @Success 200 {object} response.Envelope
// @Router /exam-results [get]
func (h *ExamResultHandler) List(c *gin.Context) {
	filter := models.ExamResultFilter{
		ExamSubjectID: c.Query("examSubjectId"),
		StudentID:     c.Query("studentId"),
		ExamID:        c.Query("examId"),
	}
	results, err := h.results.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Bulk godoc
// @Summary Record a marksheet of results for one subject
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.BulkResultRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /exam-results/bulk [post]
func (h *ExamResultHandler) Bulk(c *gin.Context) {
	var req service.BulkResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	count, err := h.results.BulkRecord(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "recorded", "count": count}, nil)
}

// SubjectStatistics godoc
// @Summary Average score and pass rate for one exam subject
// @Tags Results
// @Produce json
// @Param id path string true "Exam subject ID"
// @Success 200 {object} response.Envelope
// @Router /exam-subjects/{id}/statistics [get]
func (h *ExamResultHandler) SubjectStatistics(c *gin.Context) {
	stats, err := h.results.SubjectStatistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
