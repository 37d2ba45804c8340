package bootstrap

import (
	"context"
	"log"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docchat-be/internal/config"
	"docchat-be/internal/controller"
	"docchat-be/internal/pkg/logger"
	"docchat-be/internal/repository/implementation"
	"docchat-be/internal/service"
	"docchat-be/pkg/embedding"
	"docchat-be/pkg/llm/factory"
	"docchat-be/pkg/metrics"
	pktNats "docchat-be/pkg/nats"
	"docchat-be/pkg/rag/clarify"
	"docchat-be/pkg/rag/memory"
	"docchat-be/pkg/rag/quality"
	"docchat-be/pkg/rag/retrieval"
	"docchat-be/pkg/ratelimit"
	"docchat-be/pkg/respcache"
)

type Container struct {
	// Controllers
	QueryController controller.IQueryController

	// Background Services (Exposed for main.go to run)
	PostProcessService service.IPostProcessService

	// Observability
	Metrics *metrics.PipelineMetrics
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Infrastructure
	rdb := newRedisClient(cfg)

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// 4. AI providers
	embeddingProvider := newEmbeddingProvider(cfg)
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OpenAIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 5. Repositories
	chunkRepo := implementation.NewDocumentChunkRepository(db)
	turnRepo := implementation.NewConversationTurnRepository(db)
	usageRepo := implementation.NewUsageRecordRepository(db)

	// 6. Pipeline components
	limiter := newLimiter(cfg, rdb, sysLogger)
	cache := newResponseCache(cfg, rdb, sysLogger)
	memoryStore := memory.NewStore()

	retriever := retrieval.NewRetriever(
		embeddingProvider,
		service.NewChunkVectorSearcher(chunkRepo),
		service.NewChunkLexicalSearcher(chunkRepo),
		retrieval.Config{
			SemanticWeight:   cfg.Retrieval.SemanticWeight,
			LexicalWeight:    cfg.Retrieval.LexicalWeight,
			FactualSemWeight: cfg.Retrieval.FactualSemWeight,
			SemanticFloor:    cfg.Retrieval.SemanticFloor,
			LexicalFloor:     cfg.Retrieval.LexicalFloor,
			TopK:             cfg.Retrieval.TopK,
			SearchTimeout:    cfg.Retrieval.SearchTimeout,
		},
		sysLogger,
	)

	analyzer := clarify.NewAnalyzer(clarify.Config{
		LowConfidence:  cfg.Clarify.LowConfidence,
		ZeroConfidence: cfg.Clarify.ZeroConfidence,
		ShortQueryLen:  cfg.Clarify.ShortQueryLen,
	}, sysLogger)

	pipelineMetrics := metrics.NewPipelineMetrics()

	var publisher service.EventPublisher
	if natsPub != nil {
		publisher = natsPub
	}

	// 7. Services
	queryService := service.NewQueryService(
		limiter,
		cache,
		retriever,
		analyzer,
		quality.NewGate(quality.DefaultConfig()),
		llmProvider,
		memoryStore,
		service.NewUnconfiguredArtifactGenerator(),
		pubSub,
		publisher,
		pipelineMetrics,
		sysLogger,
		cfg.Retrieval.GenerationTimeout,
	)

	postProcessService := service.NewPostProcessService(
		pubSub,
		service.TopicQueryAnswered,
		cache,
		memoryStore,
		turnRepo,
		usageRepo,
		publisher,
		sysLogger,
	)

	// 8. Controllers
	queryController := controller.NewQueryController(queryService)

	return &Container{
		QueryController:    queryController,
		PostProcessService: postProcessService,
		Metrics:            pipelineMetrics,
	}
}

func newRedisClient(cfg *config.Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	return rdb
}

func newEmbeddingProvider(cfg *config.Config) embedding.EmbeddingProvider {
	if cfg.Ai.EmbeddingProvider == "openai" {
		log.Printf("[INFO] Using Embedding Provider: OPENAI")
		return embedding.NewOpenAIProvider(cfg.Ai.OpenAIKey)
	}
	log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
}

// newLimiter wires the sliding-window limiter. The distributed store is
// primary; the process-local store covers Redis outages.
func newLimiter(cfg *config.Config, rdb *redis.Client, sysLogger logger.ILogger) *ratelimit.Limiter {
	limiterConfig := ratelimit.Config{
		Window: cfg.RateLimit.Window,
		Max:    cfg.RateLimit.Max,
		RoleMultipliers: map[string]float64{
			"pro":   cfg.RateLimit.ProMult,
			"admin": cfg.RateLimit.AdminMult,
		},
		Exempt: strings.Split(cfg.RateLimit.Exempt, ","),
	}

	local := ratelimit.NewLocalStore()
	if cfg.RateLimit.Backend == "local" {
		return ratelimit.NewLimiter(local, ratelimit.NewLocalStore(), limiterConfig, sysLogger)
	}
	return ratelimit.NewLimiter(ratelimit.NewRedisStore(rdb), local, limiterConfig, sysLogger)
}

func newResponseCache(cfg *config.Config, rdb *redis.Client, sysLogger logger.ILogger) *respcache.Cache {
	var store respcache.Store
	if cfg.Cache.Backend == "memory" {
		store = respcache.NewMemoryStore(cfg.Cache.Capacity)
	} else {
		store = respcache.NewRedisStore(rdb)
	}
	return respcache.NewCache(store, cfg.Cache.TTL, sysLogger)
}
