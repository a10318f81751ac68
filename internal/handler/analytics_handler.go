package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elimuhub/elimu-api/internal/middleware"
	"github.com/elimuhub/elimu-api/internal/service"
	appErrors "github.com/elimuhub/elimu-api/pkg/errors"
	"github.com/elimuhub/elimu-api/pkg/response"
)

// AnalyticsHandler exposes exam analysis endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// ExamAnalysis godoc
// @Summary Exam analysis for a class
// @Description Grade distribution, subject performance, and merit list for one exam and class
// @Tags Analytics
// @Produce json
// @Param exam_id query string true "Exam ID"
// @Param class_id query string true "Class ID"
// @Param stream_id query string false "Restrict to one class stream"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /analytics/exams [get]
func (h *AnalyticsHandler) ExamAnalysis(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	examID := c.Query("exam_id")
	classID := c.Query("class_id")
	if examID == "" || classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exam_id and class_id required"))
		return
	}
	streamID := c.Query("stream_id")

	start := time.Now()
	analysis, cacheHit, err := h.analytics.Analyze(c.Request.Context(), examID, classID, streamID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, analysis, nil, meta)
}

// System godoc
// @Summary Instrumentation snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	metrics := h.analytics.SystemMetrics()
	response.JSON(c, http.StatusOK, metrics, nil)
}
