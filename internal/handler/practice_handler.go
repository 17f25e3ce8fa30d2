package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepdesk/prepdesk-backend/internal/middleware"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/response"
	"github.com/prepdesk/prepdesk-backend/internal/service"
	"github.com/prepdesk/prepdesk-backend/internal/session"
	"github.com/prepdesk/prepdesk-backend/internal/validator"
)

// PracticeHandler handles practice session endpoints.
type PracticeHandler struct {
	practiceService *service.PracticeService
}

// NewPracticeHandler creates a new PracticeHandler.
func NewPracticeHandler(practiceService *service.PracticeService) *PracticeHandler {
	return &PracticeHandler{practiceService: practiceService}
}

// CreateSession godoc
// POST /api/v1/sessions
// Creates a practice session in the NotStarted state.
func (h *PracticeHandler) CreateSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.practiceService.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": snap})
}

// StartSession godoc
// POST /api/v1/sessions/:id/start
// Starts the countdown. Idempotent: starting an active session is a no-op.
func (h *PracticeHandler) StartSession(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	sess.Start()
	response.Success(c, http.StatusOK, gin.H{"session": sess.Snapshot()})
}

// GetSession godoc
// GET /api/v1/sessions/:id
// Returns the current session snapshot.
func (h *PracticeHandler) GetSession(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess.Snapshot()})
}

// GetActiveSession godoc
// GET /api/v1/sessions/active
// Returns the ID of the user's active session, if any.
func (h *PracticeHandler) GetActiveSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := h.practiceService.ActiveSessionID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session_id": id})
}

// SubmitAnswer godoc
// POST /api/v1/sessions/:id/answer
// Answers the current question. Ignored outside the Active state or while a
// feedback window is open.
func (h *PracticeHandler) SubmitAnswer(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess.SubmitAnswer(req.Value)
	response.Success(c, http.StatusOK, gin.H{"session": sess.Snapshot()})
}

// Navigate godoc
// POST /api/v1/sessions/:id/navigate
// Jumps to a question index; target equal to the question count finishes.
func (h *PracticeHandler) Navigate(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess.Navigate(*req.Target)
	response.Success(c, http.StatusOK, gin.H{"session": sess.Snapshot()})
}

// MarkForReview godoc
// POST /api/v1/sessions/:id/review
// Toggles the review mark on the current question and advances.
func (h *PracticeHandler) MarkForReview(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	sess.MarkForReview()
	response.Success(c, http.StatusOK, gin.H{"session": sess.Snapshot()})
}

// ClearAnswer godoc
// POST /api/v1/sessions/:id/clear
// Clears the current question's answer.
func (h *PracticeHandler) ClearAnswer(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	sess.ClearAnswer()
	response.Success(c, http.StatusOK, gin.H{"session": sess.Snapshot()})
}

// FinishSession godoc
// POST /api/v1/sessions/:id/finish
// Ends the session early and grades it locally if an answer key is present.
func (h *PracticeHandler) FinishSession(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	sess.Finish()
	response.Success(c, http.StatusOK, gin.H{"session": sess.Snapshot()})
}

// GetResult godoc
// GET /api/v1/sessions/:id/result
// Returns the finished session's result, live or persisted.
func (h *PracticeHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.practiceService.Result(c.Request.Context(), id, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFinished):
			response.Fail(c, http.StatusConflict, response.ErrSessionNotFinished)
		case errors.Is(err, service.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// ListResults godoc
// GET /api/v1/results?page=1&per_page=10
// Returns the user's persisted results, newest first.
func (h *PracticeHandler) ListResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	results, total, err := h.practiceService.History(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	})
}

// AIGrade godoc
// POST /api/v1/sessions/:id/ai-grade
// Runs the external grading flow against an answer-key photo.
func (h *PracticeHandler) AIGrade(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AIGradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	analysis, err := h.practiceService.AIGrade(c.Request.Context(), id, claims.UserID, req.AnswerKeyImage)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		case errors.Is(err, service.ErrSessionNotFinished):
			response.Fail(c, http.StatusConflict, response.ErrSessionNotFinished)
		case errors.Is(err, service.ErrAIGradeInProgress):
			response.Fail(c, http.StatusConflict, response.ErrAIGradingInProgress)
		default:
			response.Fail(c, http.StatusBadGateway, response.ErrAIGradingFailed)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"analysis": analysis})
}

// lookup parses the session ID, checks ownership, and writes the error
// response on failure.
func (h *PracticeHandler) lookup(c *gin.Context) (*session.Session, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	sess, err := h.practiceService.Get(id, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return nil, false
	}

	return sess, true
}
