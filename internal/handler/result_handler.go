package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elimuhub/elimu-api/internal/models"
	"github.com/elimuhub/elimu-api/internal/service"
	appErrors "github.com/elimuhub/elimu-api/pkg/errors"
	"github.com/elimuhub/elimu-api/pkg/response"
)

// ResultHandler exposes marks-entry and result listing endpoints.
type ResultHandler struct {
	results *service.ResultService
}

// NewResultHandler constructs handler.
func NewResultHandler(results *service.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// batchPayload is the wire shape of one marks-entry submission. A nil
// paper maximum in out_of marks that paper inactive for the whole batch.
// An empty stream_id submits for the whole class.
type batchPayload struct {
	ExamID    string                        `json:"exam_id" binding:"required"`
	ClassID   string                        `json:"class_id" binding:"required"`
	StreamID  string                        `json:"stream_id"`
	SubjectID string                        `json:"subject_id" binding:"required"`
	Scores    map[string]models.PaperScores `json:"scores" binding:"required"`
	OutOf     outOfPayload                  `json:"out_of"`
}

type outOfPayload struct {
	Score float64  `json:"score"`
	P1    *float64 `json:"P1"`
	P2    *float64 `json:"P2"`
	P3    *float64 `json:"P3"`
}

func (p outOfPayload) paperConfig() models.PaperConfig {
	cfg := models.PaperConfig{OutOfScore: p.Score}
	if p.P1 != nil {
		cfg.HasP1 = true
		cfg.OutOfP1 = *p.P1
	}
	if p.P2 != nil {
		cfg.HasP2 = true
		cfg.OutOfP2 = *p.P2
	}
	if p.P3 != nil {
		cfg.HasP3 = true
		cfg.OutOfP3 = *p.P3
	}
	return cfg
}

// SaveBatch godoc
// @Summary Submit a batch of marks
// @Description Computes composite scores and grades, then upserts all rows atomically
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body batchPayload true "Batch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /results [post]
func (h *ResultHandler) SaveBatch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload batchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}

	summary, err := h.results.SaveBatch(c.Request.Context(), service.BatchSaveRequest{
		ExamID:     payload.ExamID,
		ClassID:    payload.ClassID,
		StreamID:   payload.StreamID,
		SubjectID:  payload.SubjectID,
		Config:     payload.OutOf.paperConfig(),
		Scores:     payload.Scores,
		RecordedBy: claims.UserID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// List godoc
// @Summary List results
// @Tags Results
// @Produce json
// @Param exam_id query string false "Filter by exam"
// @Param class_id query string false "Filter by class"
// @Param stream_id query string false "Filter by stream"
// @Param subject_id query string false "Filter by subject"
// @Param student_id query string false "Filter by student"
// @Success 200 {object} response.Envelope
// @Router /results [get]
func (h *ResultHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.ResultFilter{
		ExamID:    c.Query("exam_id"),
		ClassID:   c.Query("class_id"),
		StreamID:  c.Query("stream_id"),
		SubjectID: c.Query("subject_id"),
		StudentID: c.Query("student_id"),
	}
	results, err := h.results.List(c.Request.Context(), filter, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Delete godoc
// @Summary Soft delete a result
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Param exam_id query string true "Exam ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /results/{id} [delete]
func (h *ResultHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	examID := c.Query("exam_id")
	if examID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exam_id required"))
		return
	}
	if err := h.results.Delete(c.Request.Context(), c.Param("id"), examID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
