package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"docchat-be/internal/dto"
	"docchat-be/internal/pkg/logger"
	"docchat-be/pkg/events"
	"docchat-be/pkg/llm"
	"docchat-be/pkg/metrics"
	"docchat-be/pkg/rag/clarify"
	"docchat-be/pkg/rag/intent"
	"docchat-be/pkg/rag/memory"
	"docchat-be/pkg/rag/prompt"
	"docchat-be/pkg/rag/quality"
	"docchat-be/pkg/rag/retrieval"
	"docchat-be/pkg/ratelimit"
	"docchat-be/pkg/respcache"
)

// TopicQueryAnswered is the in-process bus topic carrying completed turns to
// the post-process consumer.
const TopicQueryAnswered = "query.answered"

// Searcher is the retrieval contract the orchestrator depends on
type Searcher interface {
	Search(ctx context.Context, query string, opts retrieval.Options) (*retrieval.Result, error)
}

// EventPublisher sends usage events to the external bus
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// QueryOutcome is the result of one query request. Exactly one field is set:
// Direct for clarification and refusal turns, Stream for answer streams.
type QueryOutcome struct {
	Direct *dto.QueryAnswerResponse
	Stream <-chan dto.StreamEvent
}

// IQueryService defines the query pipeline interface
type IQueryService interface {
	StreamQuery(ctx context.Context, userId uuid.UUID, role string, request *dto.QueryRequest) (*QueryOutcome, error)
	InvalidateSessionCache(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.InvalidateCacheResponse, error)
}

// queryAnsweredPayload travels over the in-process bus to the post-process
// consumer.
type queryAnsweredPayload struct {
	UserId         uuid.UUID       `json:"user_id"`
	SessionId      uuid.UUID       `json:"session_id"`
	Question       string          `json:"question"`
	Answer         string          `json:"answer"`
	Intent         string          `json:"intent"`
	Strategy       string          `json:"strategy"`
	Confidence     float64         `json:"confidence"`
	Sources        []dto.SourceDTO `json:"sources,omitempty"`
	Incomplete     bool            `json:"incomplete"`
	CacheNamespace string          `json:"cache_namespace"`
	CacheKey       string          `json:"cache_key"`
}

// queryService walks a request through rate limiting, cache lookup, intent
// classification, hybrid retrieval, clarification, the quality gate, prompt
// assembly and streamed generation.
type queryService struct {
	limiter    *ratelimit.Limiter
	cache      *respcache.Cache
	classifier *intent.Classifier
	retriever  Searcher
	analyzer   *clarify.Analyzer
	gate       *quality.Gate
	llm        llm.LLMProvider
	memory     *memory.Store
	artifacts  ArtifactGenerator
	pubSub     *gochannel.GoChannel
	publisher  EventPublisher
	metrics    *metrics.PipelineMetrics
	logger     logger.ILogger

	generationTimeout time.Duration
}

// NewQueryService creates the query pipeline with all collaborators
func NewQueryService(
	limiter *ratelimit.Limiter,
	cache *respcache.Cache,
	retriever Searcher,
	analyzer *clarify.Analyzer,
	gate *quality.Gate,
	llmProvider llm.LLMProvider,
	memoryStore *memory.Store,
	artifacts ArtifactGenerator,
	pubSub *gochannel.GoChannel,
	publisher EventPublisher,
	pipelineMetrics *metrics.PipelineMetrics,
	log logger.ILogger,
	generationTimeout time.Duration,
) IQueryService {
	if generationTimeout <= 0 {
		generationTimeout = 120 * time.Second
	}
	return &queryService{
		limiter:           limiter,
		cache:             cache,
		classifier:        intent.NewClassifier(),
		retriever:         retriever,
		analyzer:          analyzer,
		gate:              gate,
		llm:               llmProvider,
		memory:            memoryStore,
		artifacts:         artifacts,
		pubSub:            pubSub,
		publisher:         publisher,
		metrics:           pipelineMetrics,
		logger:            log,
		generationTimeout: generationTimeout,
	}
}

func cacheNamespace(sessionId uuid.UUID) string {
	return "conv:" + sessionId.String()
}

func (s *queryService) StreamQuery(ctx context.Context, userId uuid.UUID, role string, request *dto.QueryRequest) (*QueryOutcome, error) {
	question := strings.TrimSpace(request.Question)

	// Admission
	decision := s.limiter.Admit(ctx, userId.String(), role)
	if !decision.Allowed {
		s.metrics.ObserveRateLimitRejection(role)
		s.publishRejected(ctx, userId, request.SessionId, "rate_limit")
		return nil, &dto.RateLimitError{
			Limit:     decision.Limit,
			Remaining: decision.Remaining,
			ResetAt:   decision.ResetAt,
		}
	}

	// Session ownership
	conv := s.memory.LoadOrCreate(userId.String(), request.SessionId.String())
	if conv.UserID != userId.String() {
		return nil, &dto.AuthError{Forbidden: true, Message: "session does not belong to this user"}
	}

	// Cache short path: a hit streams the stored answer without touching
	// retrieval or generation
	namespace := cacheNamespace(request.SessionId)
	key := respcache.Key(userId.String(), question)
	if cached, ok := s.cache.Get(ctx, namespace, key); ok {
		s.metrics.ObserveCacheLookup(true)
		s.metrics.ObserveQuery(metrics.OutcomeCached)
		return &QueryOutcome{Stream: s.streamCached(ctx, cached)}, nil
	}
	s.metrics.ObserveCacheLookup(false)

	// Intent
	hasHistory := conv.HasHistory()
	lastAnswer := conv.LastAnswer()
	classification := s.classifier.Classify(question, hasHistory, len([]rune(lastAnswer)))

	// Retrieval, with contextual rewrite against the previous turn
	searchCtx := withSearchUser(ctx, userId)
	searchQuery := question
	rewritten := false
	if hasHistory {
		searchQuery, rewritten = rewriteQuestion(question, conv.LastQuestion())
	}

	started := time.Now()
	result, err := s.retriever.Search(searchCtx, searchQuery, retrieval.Options{Intent: classification.Intent})
	if err != nil {
		s.metrics.ObserveQuery(metrics.OutcomeError)
		s.logger.Error("QueryService", "Retrieval unavailable", map[string]interface{}{
			"session_id": request.SessionId.String(),
			"error":      err.Error(),
		})
		return s.refusalOutcome(ctx, userId, request.SessionId,
			"I can't search your documents right now. Please try again in a moment.", "retrieval_unavailable"), nil
	}
	s.metrics.ObserveRetrieval(string(result.Strategy), time.Since(started), len(result.Results), result.Confidence)

	// When the rewrite changed the query, retrieve the literal question too
	// so the analyzer can measure divergence
	var literalResults []retrieval.Candidate
	if rewritten {
		if literal, litErr := s.retriever.Search(searchCtx, question, retrieval.Options{Intent: classification.Intent}); litErr == nil {
			literalResults = literal.Results
		} else {
			rewritten = false
		}
	}

	// Clarification
	clarifyDecision := s.analyzer.Analyze(clarify.Input{
		Question:       question,
		Results:        result.Results,
		Confidence:     result.Confidence,
		Strategy:       result.Strategy,
		HasHistory:     hasHistory,
		WasRewritten:   rewritten,
		LiteralResults: literalResults,
	})
	if clarifyDecision.NeedsClarification {
		s.metrics.ObserveQuery(metrics.OutcomeClarification)
		s.publishRejected(ctx, userId, request.SessionId, "clarification_"+clarifyDecision.Type)
		return &QueryOutcome{Direct: &dto.QueryAnswerResponse{
			SessionId: request.SessionId,
			Answer:    clarifyDecision.Message,
			Kind:      "clarification",
			CreatedAt: time.Now(),
		}}, nil
	}

	// Quality gate
	verdict := s.gate.Evaluate(quality.Input{
		ContextSize:      len(result.Results),
		Confidence:       result.Confidence,
		TopScore:         topScore(result),
		Intent:           classification.Intent,
		HasPriorArtifact: lastAnswer != "",
	})
	if verdict.IsLow && !verdict.AllowOverride {
		s.metrics.ObserveQuery(metrics.OutcomeRefusal)
		return s.refusalOutcome(ctx, userId, request.SessionId,
			refusalMessage(result.Suggestions), "low_quality"), nil
	}

	// Prompt assembly and streamed generation
	history := historyMessages(conv.History(6))
	promptText := prompt.NewContextualBuilder(question, classification.Intent, result.Results, history, lastAnswer).Build()

	out := make(chan dto.StreamEvent, 8)
	go s.generate(ctx, generateArgs{
		events:         out,
		userId:         userId,
		sessionId:      request.SessionId,
		question:       question,
		promptText:     promptText,
		classification: classification,
		result:         result,
		namespace:      namespace,
		cacheKey:       key,
	})
	return &QueryOutcome{Stream: out}, nil
}

func (s *queryService) InvalidateSessionCache(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.InvalidateCacheResponse, error) {
	conv := s.memory.LoadOrCreate(userId.String(), sessionId.String())
	if conv.UserID != userId.String() {
		return nil, &dto.AuthError{Forbidden: true, Message: "session does not belong to this user"}
	}

	if err := s.cache.InvalidateNamespace(ctx, cacheNamespace(sessionId)); err != nil {
		return nil, fmt.Errorf("invalidate session cache: %w", err)
	}
	s.memory.Delete(sessionId.String())

	return &dto.InvalidateCacheResponse{SessionId: sessionId, Cleared: true}, nil
}

type generateArgs struct {
	events         chan dto.StreamEvent
	userId         uuid.UUID
	sessionId      uuid.UUID
	question       string
	promptText     string
	classification intent.Classification
	result         *retrieval.Result
	namespace      string
	cacheKey       string
}

// generate is the stream producer. It owns the events channel and always
// closes it.
func (s *queryService) generate(ctx context.Context, args generateArgs) {
	defer close(args.events)

	genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	sources := toSourceDTOs(args.result.Results)
	if !s.emit(ctx, args.events, dto.StreamEvent{Type: dto.StreamEventSources, Sources: sources}) {
		return
	}

	stream, err := s.llm.GenerateStream(genCtx, args.promptText, generationOptions(args.classification.Intent)...)
	if err != nil {
		s.metrics.ObserveQuery(metrics.OutcomeError)
		s.emit(ctx, args.events, dto.StreamEvent{Type: dto.StreamEventError, Error: "generation failed"})
		s.logger.Error("QueryService", "Generation start failed", map[string]interface{}{
			"session_id": args.sessionId.String(),
			"error":      err.Error(),
		})
		return
	}

	var answer strings.Builder
	incomplete := false
	for chunk := range stream {
		if chunk.Err != nil {
			incomplete = true
			s.emit(ctx, args.events, dto.StreamEvent{Type: dto.StreamEventError, Error: "generation interrupted"})
			s.logger.Error("QueryService", "Generation stream failed", map[string]interface{}{
				"session_id": args.sessionId.String(),
				"error":      chunk.Err.Error(),
			})
			break
		}
		answer.WriteString(chunk.Content)
		s.metrics.ObserveStreamChunk()
		if !s.emit(ctx, args.events, dto.StreamEvent{Type: dto.StreamEventChunk, Chunk: chunk.Content}) {
			incomplete = true
			break
		}
	}
	if genCtx.Err() != nil {
		incomplete = true
	}

	if args.classification.Intent == intent.IntentGenerateDocument && !incomplete {
		s.emitDocument(genCtx, args, answer.String())
	}

	if !incomplete {
		s.emit(ctx, args.events, dto.StreamEvent{
			Type:    dto.StreamEventComplete,
			Answer:  answer.String(),
			Sources: sources,
		})
		s.metrics.ObserveQuery(metrics.OutcomeAnswered)
	} else {
		s.metrics.ObserveQuery(metrics.OutcomeError)
	}

	s.publishAnswered(queryAnsweredPayload{
		UserId:         args.userId,
		SessionId:      args.sessionId,
		Question:       args.question,
		Answer:         answer.String(),
		Intent:         args.classification.Intent,
		Strategy:       string(args.result.Strategy),
		Confidence:     args.result.Confidence,
		Sources:        sources,
		Incomplete:     incomplete,
		CacheNamespace: args.namespace,
		CacheKey:       args.cacheKey,
	})
}

func (s *queryService) emitDocument(ctx context.Context, args generateArgs, content string) {
	format := args.classification.DocumentFormat
	fileName := fmt.Sprintf("generated-%d.%s", time.Now().Unix(), format)

	doc, err := s.artifacts.Generate(ctx, format, fileName, content)
	if err != nil {
		s.emit(ctx, args.events, dto.StreamEvent{
			Type:  dto.StreamEventDocumentError,
			Error: fmt.Sprintf("could not render %s document", format),
		})
		s.logger.Warn("QueryService", "Artifact generation failed", map[string]interface{}{
			"format": format,
			"error":  err.Error(),
		})
		return
	}
	s.emit(ctx, args.events, dto.StreamEvent{Type: dto.StreamEventDocument, Document: doc})
}

// streamCached replays a cache hit through the same event shape as a live
// answer
func (s *queryService) streamCached(ctx context.Context, cached *respcache.CachedAnswer) <-chan dto.StreamEvent {
	out := make(chan dto.StreamEvent, 3)
	go func() {
		defer close(out)
		sources := decodeSources(cached.Sources)
		if !s.emit(ctx, out, dto.StreamEvent{Type: dto.StreamEventSources, Sources: sources, Cached: true}) {
			return
		}
		if !s.emit(ctx, out, dto.StreamEvent{Type: dto.StreamEventChunk, Chunk: cached.Answer, Cached: true}) {
			return
		}
		s.emit(ctx, out, dto.StreamEvent{
			Type:    dto.StreamEventComplete,
			Answer:  cached.Answer,
			Sources: sources,
			Cached:  true,
		})
	}()
	return out
}

func (s *queryService) emit(ctx context.Context, out chan dto.StreamEvent, event dto.StreamEvent) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *queryService) refusalOutcome(ctx context.Context, userId, sessionId uuid.UUID, message, reason string) *QueryOutcome {
	s.publishRejected(ctx, userId, sessionId, reason)
	return &QueryOutcome{Direct: &dto.QueryAnswerResponse{
		SessionId: sessionId,
		Answer:    message,
		Kind:      "refusal",
		CreatedAt: time.Now(),
	}}
}

func (s *queryService) publishAnswered(payload queryAnsweredPayload) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("QueryService", "Failed to encode post-process payload", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), raw)
	if err := s.pubSub.Publish(TopicQueryAnswered, msg); err != nil {
		s.logger.Error("QueryService", "Failed to publish post-process message", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// publishRejected fires a best-effort usage event for turns that never reach
// generation
func (s *queryService) publishRejected(ctx context.Context, userId, sessionId uuid.UUID, reason string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewQueryRejected(userId.String(), sessionId.String(), reason)); err != nil {
		s.logger.Warn("QueryService", "Usage event publish failed", map[string]interface{}{
			"reason": reason,
			"error":  err.Error(),
		})
	}
}

// maxAnswerTokens bounds a single generated answer
const maxAnswerTokens = 2048

// generationOptions keeps grounded lookups close to the source text and
// leaves synthesis room to paraphrase
func generationOptions(intentName string) []llm.Option {
	temperature := 0.7
	switch intentName {
	case intent.IntentBasicFactual, intent.IntentRetrieveFromDocs:
		temperature = 0.2
	}
	return []llm.Option{
		llm.WithTemperature(temperature),
		llm.WithMaxTokens(maxAnswerTokens),
	}
}

func refusalMessage(suggestions []string) string {
	var b strings.Builder
	b.WriteString("I couldn't find enough relevant material in your documents to answer that confidently.")
	if len(suggestions) > 0 {
		b.WriteString(" You could try:\n")
		for i, suggestion := range suggestions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, suggestion)
		}
	}
	return b.String()
}

func topScore(result *retrieval.Result) float64 {
	if len(result.Results) == 0 {
		return 0
	}
	return result.Results[0].FusedScore
}

func toSourceDTOs(candidates []retrieval.Candidate) []dto.SourceDTO {
	sources := make([]dto.SourceDTO, 0, len(candidates))
	for _, c := range candidates {
		documentId, err := uuid.Parse(c.DocumentID)
		if err != nil {
			continue
		}
		sources = append(sources, dto.SourceDTO{
			DocumentId:    documentId,
			DocumentTitle: c.DocumentTitle,
			Author:        c.DocumentAuthor,
			Score:         c.FusedScore,
		})
	}
	return sources
}

func decodeSources(v interface{}) []dto.SourceDTO {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out []dto.SourceDTO
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func historyMessages(turns []memory.Turn) []llm.Message {
	var messages []llm.Message
	for _, t := range turns {
		if t.Incomplete {
			continue
		}
		messages = append(messages,
			llm.Message{Role: "user", Content: t.Question},
			llm.Message{Role: "assistant", Content: t.Answer},
		)
	}
	return messages
}
