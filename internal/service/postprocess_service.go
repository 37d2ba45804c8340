package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"docchat-be/internal/entity"
	"docchat-be/internal/pkg/logger"
	"docchat-be/internal/repository/contract"
	"docchat-be/pkg/events"
	"docchat-be/pkg/rag/memory"
	"docchat-be/pkg/respcache"
)

// IPostProcessService consumes completed turns off the in-process bus
type IPostProcessService interface {
	Consume(ctx context.Context) error
}

// postProcessService runs the best-effort tail of the pipeline: cache write,
// turn persistence, conversation memory update, usage accounting. Failures
// are logged and never surfaced to the user, who already has the answer.
type postProcessService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	cache     *respcache.Cache
	memory    *memory.Store
	turnRepo  contract.ConversationTurnRepository
	usageRepo contract.UsageRecordRepository
	publisher EventPublisher
	logger    logger.ILogger
}

func NewPostProcessService(
	pubSub *gochannel.GoChannel,
	topicName string,
	cache *respcache.Cache,
	memoryStore *memory.Store,
	turnRepo contract.ConversationTurnRepository,
	usageRepo contract.UsageRecordRepository,
	publisher EventPublisher,
	log logger.ILogger,
) IPostProcessService {
	return &postProcessService{
		pubSub:    pubSub,
		topicName: topicName,
		cache:     cache,
		memory:    memoryStore,
		turnRepo:  turnRepo,
		usageRepo: usageRepo,
		publisher: publisher,
		logger:    log,
	}
}

func (ps *postProcessService) Consume(ctx context.Context) error {
	messages, err := ps.pubSub.Subscribe(ctx, ps.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ps.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (ps *postProcessService) processMessage(ctx context.Context, msg *message.Message) {
	var payload queryAnsweredPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		ps.logger.Error("PostProcess", "Failed to unmarshal message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	// The turn is persisted in every case; an interrupted generation keeps
	// its partial answer only because the marker says so
	turn := &entity.ConversationTurn{
		Id:         uuid.New(),
		SessionId:  payload.SessionId,
		UserId:     payload.UserId,
		Question:   payload.Question,
		Answer:     payload.Answer,
		Intent:     payload.Intent,
		Strategy:   payload.Strategy,
		Confidence: payload.Confidence,
		Incomplete: payload.Incomplete,
		CreatedAt:  time.Now(),
	}
	if err := ps.turnRepo.Create(ctx, turn); err != nil {
		ps.logger.Error("PostProcess", "Failed to persist turn", map[string]interface{}{
			"session_id": payload.SessionId.String(),
			"error":      err.Error(),
		})
	}

	if payload.Incomplete {
		msg.Ack()
		return
	}

	// Cache write, exact-match key computed upstream
	if err := ps.cache.Set(ctx, payload.CacheNamespace, payload.CacheKey, &respcache.CachedAnswer{
		Answer:    payload.Answer,
		Sources:   payload.Sources,
		CreatedAt: time.Now(),
	}); err != nil {
		ps.logger.Warn("PostProcess", "Cache write failed", map[string]interface{}{
			"session_id": payload.SessionId.String(),
			"error":      err.Error(),
		})
	}

	// Conversation memory feeds the next turn's classifier signals
	conv := ps.memory.LoadOrCreate(payload.UserId.String(), payload.SessionId.String())
	conv.Record(memory.Turn{
		Question: payload.Question,
		Answer:   payload.Answer,
		At:       time.Now(),
	})
	ps.memory.Save(conv)

	// Usage ledger plus the external usage event
	record := &entity.UsageRecord{
		Id:          uuid.New(),
		UserId:      payload.UserId,
		SessionId:   payload.SessionId,
		Kind:        "answered",
		AnswerChars: len(payload.Answer),
		CreatedAt:   time.Now(),
	}
	if err := ps.usageRepo.Create(ctx, record); err != nil {
		ps.logger.Warn("PostProcess", "Usage record write failed", map[string]interface{}{
			"user_id": payload.UserId.String(),
			"error":   err.Error(),
		})
	}

	if ps.publisher != nil {
		event := events.NewQueryAnswered(
			payload.UserId.String(),
			payload.SessionId.String(),
			payload.Intent,
			payload.Strategy,
			false,
			len(payload.Answer),
		)
		if err := ps.publisher.Publish(ctx, event); err != nil {
			ps.logger.Warn("PostProcess", "Usage event publish failed", map[string]interface{}{
				"user_id": payload.UserId.String(),
				"error":   err.Error(),
			})
		}
	}

	msg.Ack()
}
