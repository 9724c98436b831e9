package quiz_http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dongjiahong/qa-system/internal/domain"
	"github.com/dongjiahong/qa-system/internal/usecase"
)

type Handler struct {
	questions  usecase.QuestionPipeline
	drill      usecase.DrillUsecase
	fragments  domain.FragmentRepository
	enrichment usecase.EnrichmentAdmin
}

func NewHandler(
	questions usecase.QuestionPipeline,
	drill usecase.DrillUsecase,
	fragments domain.FragmentRepository,
	enrichment usecase.EnrichmentAdmin,
) *Handler {
	return &Handler{
		questions:  questions,
		drill:      drill,
		fragments:  fragments,
		enrichment: enrichment,
	}
}

// RegisterRoutes attaches the quiz API to the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/health", h.Health)

	e.POST("/v1/quiz/:kb/questions", h.GenerateQuestion)
	e.POST("/v1/quiz/:kb/attempts", h.SubmitAttempt)
	e.GET("/v1/quiz/:kb/history", h.History)
	e.GET("/v1/quiz/:kb/stats", h.Stats)

	e.POST("/internal/quiz/:kb/enrich", h.EnqueueEnrichment)
}

func (h *Handler) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type generateQuestionRequest struct {
	Difficulty string `json:"difficulty"`
	Strategy   string `json:"strategy"`
	Count      int    `json:"count"`
}

// GenerateQuestion produces one question, or a batch when count > 1.
// (POST /v1/quiz/:kb/questions)
func (h *Handler) GenerateQuestion(ctx echo.Context) error {
	kbName := ctx.Param("kb")

	var req generateQuestionRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	difficulty, err := domain.ParseDifficulty(req.Difficulty)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	strategy, err := domain.ParseStrategy(req.Strategy)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if req.Count > 1 {
		batch, err := h.drill.GenerateBatch(ctx.Request().Context(), kbName, req.Count, difficulty, strategy)
		if err != nil {
			return h.mapError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]interface{}{"questions": batch})
	}

	question, err := h.questions.Generate(ctx.Request().Context(), kbName, difficulty, strategy)
	if err != nil {
		return h.mapError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, question)
}

type submitAttemptRequest struct {
	Question   *domain.Question `json:"question"`
	UserAnswer string           `json:"user_answer"`
}

// SubmitAttempt grades an answer and records the attempt.
// (POST /v1/quiz/:kb/attempts)
func (h *Handler) SubmitAttempt(ctx echo.Context) error {
	kbName := ctx.Param("kb")

	var req submitAttemptRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Question == nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "question is required"})
	}
	if req.Question.KBName != kbName {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "question does not belong to this knowledge base"})
	}

	record, err := h.drill.RecordAttempt(ctx.Request().Context(), req.Question, req.UserAnswer)
	if err != nil {
		return h.mapError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, record)
}

// History returns recent drill records.
// (GET /v1/quiz/:kb/history)
func (h *Handler) History(ctx echo.Context) error {
	kbName := ctx.Param("kb")

	limit := 20
	if v := ctx.QueryParam("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 200 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be in 1..200"})
		}
		limit = parsed
	}

	records, err := h.drill.History(ctx.Request().Context(), kbName, limit)
	if err != nil {
		return h.mapError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{"records": records})
}

// Stats aggregates drill outcomes and content counts.
// (GET /v1/quiz/:kb/stats)
func (h *Handler) Stats(ctx echo.Context) error {
	kbName := ctx.Param("kb")

	history, err := h.drill.Statistics(ctx.Request().Context(), kbName)
	if err != nil {
		return h.mapError(ctx, err)
	}
	content, err := h.fragments.Stats(ctx.Request().Context(), kbName)
	if err != nil {
		return h.mapError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"kb_name": kbName,
		"content": content,
		"history": history,
	})
}

// EnqueueEnrichment queues annotation jobs for every fragment of a
// knowledge base.
// (POST /internal/quiz/:kb/enrich)
func (h *Handler) EnqueueEnrichment(ctx echo.Context) error {
	kbName := ctx.Param("kb")

	enqueued, err := h.enrichment.EnqueueKnowledgeBase(ctx.Request().Context(), kbName)
	if err != nil {
		return h.mapError(ctx, err)
	}

	return ctx.JSON(http.StatusAccepted, map[string]interface{}{
		"kb_name":  kbName,
		"enqueued": enqueued,
	})
}

func (h *Handler) mapError(ctx echo.Context, err error) error {
	var genErr *domain.QuestionGenerationError
	switch {
	case errors.Is(err, domain.ErrKnowledgeBaseNotFound):
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrEmptyKnowledgeBase):
		return ctx.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.As(err, &genErr):
		return ctx.JSON(http.StatusBadGateway, map[string]interface{}{
			"error":    "question generation failed, please retry",
			"kb_name":  genErr.KBName,
			"attempts": genErr.Attempts,
		})
	case errors.Is(err, domain.ErrModelUnavailable):
		return ctx.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
