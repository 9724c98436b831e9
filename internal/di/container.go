package di

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/dongjiahong/qa-system/internal/adapter/ollama"
	"github.com/dongjiahong/qa-system/internal/adapter/quiz_http"
	"github.com/dongjiahong/qa-system/internal/adapter/repository"
	"github.com/dongjiahong/qa-system/internal/domain"
	"github.com/dongjiahong/qa-system/internal/infra/config"
	"github.com/dongjiahong/qa-system/internal/infra/httpclient"
	"github.com/dongjiahong/qa-system/internal/usecase"
	"github.com/dongjiahong/qa-system/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Repositories
	FragmentRepo domain.FragmentRepository
	MetadataRepo domain.MetadataIndex
	HistoryRepo  domain.HistoryRepository
	JobRepo      domain.EnrichmentJobRepository

	// Usecases
	Questions  usecase.QuestionPipeline
	Evaluation usecase.EvaluationPipeline
	Drill      usecase.DrillUsecase
	Enrichment usecase.EnrichmentAdmin

	// Worker
	Worker *worker.EnrichmentWorker

	// HTTP handler
	Handler *quiz_http.Handler
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) (*ApplicationComponents, error) {
	// Repositories
	fragmentRepo := repository.NewFragmentRepository(pool)
	metadataRepo := repository.NewMetadataRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	jobRepo := repository.NewEnrichmentJobRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	// Model clients over a shared connection pool. The generator's deadlines
	// come from the pipeline contexts, so its client carries no timeout.
	generatorHTTP := httpclient.NewPooledClient(0)
	generator := ollama.NewGenerator(cfg.OllamaURL, cfg.GenerationModel, generatorHTTP)
	embedder := ollama.NewEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, cfg.EmbeddingTimeout)

	// One limiter across generation, evaluation and enrichment keeps total
	// model pressure bounded.
	var limiter *rate.Limiter
	if cfg.LLMRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.LLMRateLimit), 1)
	}

	genCfg := usecase.DefaultGenerationConfig()
	genCfg.MaxRetries = cfg.MaxRetries
	genCfg.Temperature = cfg.GenTemperature
	genCfg.MaxContextLength = cfg.MaxContextLength
	genCfg.CallTimeout = time.Duration(cfg.CallTimeoutSec) * time.Second

	evalCfg := usecase.DefaultEvaluationConfig()
	evalCfg.MaxRetries = cfg.MaxRetries
	evalCfg.Temperature = cfg.EvalTemperature
	evalCfg.MaxContextLength = cfg.MaxContextLength
	evalCfg.TopK = cfg.EvalTopK
	evalCfg.CorrectThreshold = cfg.CorrectThreshold
	evalCfg.CallTimeout = time.Duration(cfg.CallTimeoutSec) * time.Second

	selector, err := usecase.NewContentSelector(fragmentRepo, metadataRepo, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build content selector: %w", err)
	}

	prompts := usecase.NewQuizPromptBuilder()

	questions, err := usecase.NewQuestionPipeline(selector, prompts, generator, metadataRepo, limiter, genCfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build question pipeline: %w", err)
	}

	evaluation, err := usecase.NewEvaluationPipeline(fragmentRepo, embedder, generator, prompts, limiter, evalCfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build evaluation pipeline: %w", err)
	}

	drill := usecase.NewDrillUsecase(questions, evaluation, historyRepo, log)

	// Worker
	extractor := usecase.NewMetadataExtractor(metadataRepo, generator, limiter, genCfg.CallTimeout, log)
	enrichmentWorker := worker.NewEnrichmentWorker(
		jobRepo, fragmentRepo, extractor,
		time.Duration(cfg.WorkerPollInterval)*time.Second, log,
	)

	enrichment := usecase.NewEnrichmentAdmin(fragmentRepo, jobRepo, txManager, log)

	handler := quiz_http.NewHandler(questions, drill, fragmentRepo, enrichment)

	return &ApplicationComponents{
		FragmentRepo: fragmentRepo,
		MetadataRepo: metadataRepo,
		HistoryRepo:  historyRepo,
		JobRepo:      jobRepo,
		Questions:    questions,
		Evaluation:   evaluation,
		Drill:        drill,
		Enrichment:   enrichment,
		Worker:       enrichmentWorker,
		Handler:      handler,
	}, nil
}
