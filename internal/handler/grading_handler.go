package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elimuhub/elimu-api/internal/service"
	appErrors "github.com/elimuhub/elimu-api/pkg/errors"
	"github.com/elimuhub/elimu-api/pkg/response"
)

// GradingHandler exposes grading system configuration endpoints.
type GradingHandler struct {
	grading *service.GradingService
}

// NewGradingHandler constructs handler.
func NewGradingHandler(grading *service.GradingService) *GradingHandler {
	return &GradingHandler{grading: grading}
}

// ListSystems godoc
// @Summary List grading systems
// @Tags Grading
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grading-systems [get]
func (h *GradingHandler) ListSystems(c *gin.Context) {
	systems, err := h.grading.ListSystems(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, systems, nil)
}

// GetSystem godoc
// @Summary Get grading system with its scales
// @Tags Grading
// @Produce json
// @Param id path string true "Grading system ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grading-systems/{id} [get]
func (h *GradingHandler) GetSystem(c *gin.Context) {
	system, err := h.grading.GetSystem(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, system, nil)
}

// CreateSystem godoc
// @Summary Create grading system
// @Tags Grading
// @Accept json
// @Produce json
// @Param payload body service.GradingSystemRequest true "Grading system payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grading-systems [post]
func (h *GradingHandler) CreateSystem(c *gin.Context) {
	var req service.GradingSystemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	system, err := h.grading.CreateSystem(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, system)
}

// UpdateSystem godoc
// @Summary Update grading system
// @Tags Grading
// @Accept json
// @Produce json
// @Param id path string true "Grading system ID"
// @Param payload body service.GradingSystemRequest true "Grading system payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grading-systems/{id} [put]
func (h *GradingHandler) UpdateSystem(c *gin.Context) {
	var req service.GradingSystemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	system, err := h.grading.UpdateSystem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, system, nil)
}

// SetDefault godoc
// @Summary Mark a grading system as the school-wide default
// @Tags Grading
// @Produce json
// @Param id path string true "Grading system ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grading-systems/{id}/default [post]
func (h *GradingHandler) SetDefault(c *gin.Context) {
	if err := h.grading.SetDefault(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "default set"}, nil)
}

// ReplaceScales godoc
// @Summary Replace the grade bands of a grading system
// @Tags Grading
// @Accept json
// @Produce json
// @Param id path string true "Grading system ID"
// @Param payload body []service.GradeScaleRequest true "Bands payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grading-systems/{id}/scales [put]
func (h *GradingHandler) ReplaceScales(c *gin.Context) {
	var reqs []service.GradeScaleRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	scales, err := h.grading.ReplaceScales(c.Request.Context(), c.Param("id"), reqs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scales, nil)
}
