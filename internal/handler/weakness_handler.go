package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepdesk/prepdesk-backend/internal/middleware"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/response"
	"github.com/prepdesk/prepdesk-backend/internal/service"
	"github.com/prepdesk/prepdesk-backend/internal/validator"
)

// WeaknessHandler handles weak topic endpoints.
type WeaknessHandler struct {
	weaknessService *service.WeaknessService
}

// NewWeaknessHandler creates a new WeaknessHandler.
func NewWeaknessHandler(weaknessService *service.WeaknessService) *WeaknessHandler {
	return &WeaknessHandler{weaknessService: weaknessService}
}

// ReportWeakness godoc
// POST /api/v1/weaknesses
// Enqueues topic occurrences from the mistake-analysis flow.
func (h *WeaknessHandler) ReportWeakness(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.ReportWeaknessRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.weaknessService.Report(c.Request.Context(), claims.UserID, req.Topics); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{})
}

// ListWeaknesses godoc
// GET /api/v1/weaknesses
// Returns the user's weak topics, most frequent first.
func (h *WeaknessHandler) ListWeaknesses(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	topics, err := h.weaknessService.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"weaknesses": topics})
}
