package bootstrap

import (
	"context"
	"log"
	"os"
	"strings"

	"city-inspect-be/internal/config"
	"city-inspect-be/internal/controller"
	"city-inspect-be/internal/pkg/logger"
	"city-inspect-be/internal/repository/implementation"
	"city-inspect-be/internal/service"
	"city-inspect-be/pkg/database"
	"city-inspect-be/pkg/embedding"
	"city-inspect-be/pkg/llm/factory"
	"city-inspect-be/pkg/rerank"
	"city-inspect-be/pkg/retrieval"
	"city-inspect-be/pkg/session"
	"city-inspect-be/pkg/taskqueue"
	"city-inspect-be/pkg/vision"

	pktNats "city-inspect-be/pkg/nats"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	InspectController controller.IInspectController
	TaskController    controller.ITaskController
	UploadController  controller.IUploadController
	HealthController  controller.IHealthController

	// Background infrastructure (exposed for main.go lifecycle)
	Queue         *taskqueue.Queue
	NatsPublisher *pktNats.Publisher
	AuditService  service.IAuditService
	Logger        logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	ragLogger := log.New(os.Stdout, "", log.LstdFlags)

	// 2. Model providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.CallTimeout)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewArkProvider(cfg.Keys.Ark, cfg.Ai.ArkBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.CallTimeout)
		log.Printf("[INFO] Using Embedding Provider: ARK (%s)", cfg.Ai.EmbeddingModel)
	}

	var analyzer vision.VisionAnalyzer
	if cfg.Ai.VisionProvider == "gemini" {
		// Comma-separated keys rotate through the keyring on quota
		// errors.
		keys := strings.Split(cfg.Keys.Gemini, ",")
		analyzer = vision.NewGeminiAnalyzer(keys, cfg.Ai.VisionModel, cfg.Ai.CallTimeout)
	} else {
		analyzer = vision.NewArkAnalyzer(cfg.Keys.Ark, cfg.Ai.ArkBaseURL, cfg.Ai.VisionModel, cfg.Ai.CallTimeout)
	}
	log.Printf("[INFO] Using Vision Provider: %s (%s)", cfg.Ai.VisionProvider, cfg.Ai.VisionModel)

	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LanguageProvider, factory.Settings{
		Model:         cfg.Ai.LanguageModel,
		ArkApiKey:     cfg.Keys.Ark,
		ArkBaseURL:    cfg.Ai.ArkBaseURL,
		GeminiApiKey:  cfg.Keys.Gemini,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		Timeout:       cfg.Ai.CallTimeout,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LanguageProvider, cfg.Ai.LanguageModel)

	// 3. Retrieval pipeline
	chunkRepo := implementation.NewDocumentChunkRepository(db)
	engine := retrieval.NewEngine(embeddingProvider, chunkRepo, ragLogger)
	retrievalCfg := retrieval.Config{
		TopK:             cfg.Retrieval.TopK,
		OversampleFactor: cfg.Retrieval.OversampleFactor,
		TextWeight:       cfg.Retrieval.TextWeight,
		ImageWeight:      cfg.Retrieval.ImageWeight,
		TextCollection:   cfg.Retrieval.TextCollection,
		ImageCollection:  cfg.Retrieval.ImageCollection,
	}

	var scorer rerank.Scorer = rerank.NewLexicalScorer()
	var fallback rerank.Scorer
	if cfg.Ai.RerankProvider == "jina" && cfg.Keys.Jina != "" {
		scorer = rerank.NewJinaScorer(cfg.Keys.Jina, cfg.Ai.CallTimeout)
		fallback = rerank.NewLexicalScorer()
	}
	reranker := rerank.NewReranker(scorer, fallback, cfg.Retrieval.EvidenceCount, ragLogger)

	// 4. Session store
	var sessions session.Store
	if cfg.Session.Backend == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		sessions = session.NewRedisStore(rdb, cfg.Session.TTL)
	} else {
		sessions = session.NewMemoryStore(cfg.Session.TTL, cfg.Session.SweepInterval)
	}

	// 5. Event bus + task queue
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	var auditService service.IAuditService
	if natsPub != nil {
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			auditService = service.NewAuditService(natsSub, sysLogger)
		}
	}

	queue := taskqueue.NewQueue(taskqueue.Config{
		Workers:      cfg.Queue.Workers,
		RetryBudget:  cfg.Queue.RetryBudget,
		RetryBackoff: taskqueue.DefaultConfig().RetryBackoff,
		ResultTTL:    cfg.Queue.ResultTTL,
		Topic:        taskqueue.DefaultConfig().Topic,
	}, natsPub, ragLogger)

	// 6. Services
	inspectService := service.NewInspectService(
		sessions,
		queue,
		engine,
		reranker,
		analyzer,
		llmProvider,
		retrievalCfg,
		cfg.Session.TTL,
		cfg.Queue.WaitTimeout,
	)
	uploadService := service.NewUploadService(cfg.App.UploadDir, cfg.App.BaseURL)

	// 7. Controllers
	pingDB := func(ctx context.Context) error {
		return database.Ping(ctx, cfg.Database.Connection)
	}

	return &Container{
		InspectController: controller.NewInspectController(inspectService),
		TaskController:    controller.NewTaskController(inspectService),
		UploadController:  controller.NewUploadController(uploadService),
		HealthController:  controller.NewHealthController(pingDB),
		Queue:             queue,
		NatsPublisher:     natsPub,
		AuditService:      auditService,
		Logger:            sysLogger,
	}
}
