package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/toefl-quiz-backend/internal/config"
	"github.com/stemsi/toefl-quiz-backend/internal/middleware"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
	"github.com/stemsi/toefl-quiz-backend/internal/response"
	"github.com/stemsi/toefl-quiz-backend/internal/service"
	"github.com/stemsi/toefl-quiz-backend/internal/validator"
)

// QuizGenerator creates quizzes. Satisfied by *service.GenerationService.
type QuizGenerator interface {
	Generate(ctx context.Context, caller model.Caller, req model.GenerateQuizRequest) (*service.GenerationResult, error)
}

// QuizSubmitter grades quizzes. Satisfied by *service.SubmissionService.
type QuizSubmitter interface {
	Submit(ctx context.Context, caller model.Caller, quizID uuid.UUID, answers []model.SubmitAnswer, timeSpent int) (*model.SubmitQuizResponse, error)
}

// QuizReader loads quizzes. Satisfied by *service.QuizReadService.
type QuizReader interface {
	Get(ctx context.Context, caller model.Caller, quizID uuid.UUID) (*model.QuizDetail, error)
}

// QuizHandler handles quiz generation, submission and retrieval.
type QuizHandler struct {
	generator QuizGenerator
	submitter QuizSubmitter
	reader    QuizReader
	cfg       *config.Config
	log       zerolog.Logger
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(generator QuizGenerator, submitter QuizSubmitter, reader QuizReader, cfg *config.Config, log zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		generator: generator,
		submitter: submitter,
		reader:    reader,
		cfg:       cfg,
		log:       log.With().Str("component", "quiz_handler").Logger(),
	}
}

// GenerateQuiz godoc
// POST /api/v1/quizzes/generate
// Members spend one daily slot; guests are limited per address and receive a
// session token in the body and as a cookie.
func (h *QuizHandler) GenerateQuiz(c *gin.Context) {
	var req model.GenerateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.generator.Generate(c.Request.Context(), middleware.GetCaller(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	if res.Admission != nil && res.Admission.Window != nil {
		setRateLimitHeaders(c, res.Admission.Window.Limit, res.Admission.Window.Remaining, res.Admission.Window.ResetAt.UnixMilli())
	}
	if res.Quiz.SessionToken != "" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cfg.SessionCookieName, res.Quiz.SessionToken, int(h.cfg.GuestQuizTTL.Seconds()), "/", "", h.cfg.IsProduction(), true)
	}

	response.Success(c, http.StatusOK, res.Quiz)
}

// SubmitQuiz godoc
// POST /api/v1/quizzes/submit
// Grades the answers and completes the quiz. Guest quizzes need the session token.
func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	var req model.SubmitQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quizID, err := uuid.Parse(req.QuizID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	res, err := h.submitter.Submit(c.Request.Context(), middleware.GetCaller(c), quizID, req.Answers, *req.TimeSpent)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// GetQuiz godoc
// GET /api/v1/quizzes/:quiz_id
// Returns the quiz and its questions to the owner.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	detail, err := h.reader.Get(c.Request.Context(), middleware.GetCaller(c), quizID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

// fail maps service errors onto the response envelope.
func (h *QuizHandler) fail(c *gin.Context, err error) {
	var limited *service.RateLimitedError
	switch {
	case errors.As(err, &limited):
		reset := limited.Result.ResetAt
		setRateLimitHeaders(c, limited.Result.Limit, 0, reset.UnixMilli())
		c.Header("Retry-After", strconv.Itoa(int(limited.ResetIn.Seconds())+1))
		response.FailWithDetails(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded, map[string]interface{}{
			"resetIn": limited.ResetInMinutes(),
		})
	case errors.Is(err, service.ErrQuotaExceeded):
		response.Fail(c, http.StatusTooManyRequests, response.ErrDailyLimitReached)
	case errors.Is(err, service.ErrQuizNotFound), errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrQuizExpired):
		response.Fail(c, http.StatusGone, response.ErrQuizExpired)
	case errors.Is(err, service.ErrAlreadyCompleted):
		response.Fail(c, http.StatusBadRequest, response.ErrQuizAlreadyCompleted)
	case errors.Is(err, service.ErrGenerationFailed):
		response.Fail(c, http.StatusInternalServerError, response.ErrGenerationFailed)
	case errors.Is(err, service.ErrPersistenceFailed):
		response.Fail(c, http.StatusInternalServerError, response.ErrPersistenceFailed)
	default:
		h.log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Unhandled quiz error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func setRateLimitHeaders(c *gin.Context, limit, remaining int, resetMillis int64) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(resetMillis, 10))
}
