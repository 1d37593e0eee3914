package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skul-exams-api/internal/service"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
	"github.com/noah-isme/skul-exams-api/pkg/response"
)

// GradingHandler exposes grading system configuration.
type GradingHandler struct {
	grading *service.GradingService
}

// NewGradingHandler constructs handler.
func NewGradingHandler(grading *service.GradingService) *GradingHandler {
	return &GradingHandler{grading: grading}
}

// ListSystems godoc
// @Summary List the school's grading systems
// @Tags Grading
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grading-systems [get]
func (h *GradingHandler) ListSystems(c *gin.Context) {
	schoolID, err := schoolScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	systems, err := h.grading.ListSystems(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, systems, nil)
}

// CreateSystem godoc
// @Summary Create a grading system
// @Tags Grading
// @Accept json
// @Produce json
// @Param payload body service.CreateGradingSystemRequest true "System payload"
// @Success 201 {object} response.Envelope
// @Router /grading-systems [post]
func (h *GradingHandler) CreateSystem(c *gin.Context) {
	schoolID, err := schoolScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateGradingSystemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	system, err := h.grading.CreateSystem(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, system)
}

// SetDefault godoc
// @Summary Make one grading system the school default
// @Tags Grading
// @Produce json
// @Param id path string true "Grading system ID"
// @Success 200 {object} response.Envelope
// @Router /grading-systems/{id}/default [post]
func (h *GradingHandler) SetDefault(c *gin.Context) {
	schoolID, err := schoolScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.grading.SetDefault(c.Request.Context(), schoolID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "default set"}, nil)
}

// ListRanges godoc
// @Summary List a grading system's ranges in lookup order
// @Tags Grading
// @Produce json
// @Param id path string true "Grading system ID"
// @Success 200 {object} response.Envelope
// @Router /grading-systems/{id}/ranges [get]
func (h *GradingHandler) ListRanges(c *gin.Context) {
	ranges, err := h.grading.ListRanges(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranges, nil)
}

// CreateRange godoc
// @Summary Add a grade range to a grading system
// @Tags Grading
// @Accept json
// @Produce json
// @Param id path string true "Grading system ID"
// @Param payload body service.CreateGradeRangeRequest true "Range payload"
// @Success 201 {object} response.Envelope
// @Router /grading-systems/{id}/ranges [post]
func (h *GradingHandler) CreateRange(c *gin.Context) {
	var req service.CreateGradeRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.GradingSystemID = c.Param("id")
	gr, err := h.grading.CreateRange(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gr)
}
