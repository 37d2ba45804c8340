package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"docchat-be/internal/entity"
	"docchat-be/pkg/rag/memory"
	"docchat-be/pkg/respcache"
)

type fakeTurnRepo struct {
	mu    sync.Mutex
	turns []*entity.ConversationTurn
}

func (f *fakeTurnRepo) Create(ctx context.Context, turn *entity.ConversationTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turn)
	return nil
}

func (f *fakeTurnRepo) FindBySession(ctx context.Context, sessionId uuid.UUID, limit int) ([]*entity.ConversationTurn, error) {
	return nil, nil
}

func (f *fakeTurnRepo) CountBySession(ctx context.Context, sessionId uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.turns)), nil
}

func (f *fakeTurnRepo) persisted() []*entity.ConversationTurn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*entity.ConversationTurn(nil), f.turns...)
}

type fakeUsageRepo struct {
	mu      sync.Mutex
	records []*entity.UsageRecord
}

func (f *fakeUsageRepo) Create(ctx context.Context, record *entity.UsageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

func (f *fakeUsageRepo) CountByUserSince(ctx context.Context, userId uuid.UUID, kind string, sinceDays int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.records)), nil
}

func (f *fakeUsageRepo) persisted() []*entity.UsageRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*entity.UsageRecord(nil), f.records...)
}

func publishPayload(t *testing.T, pubSub *gochannel.GoChannel, payload queryAnsweredPayload) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := pubSub.Publish(TopicQueryAnswered, message.NewMessage(watermill.NewUUID(), raw)); err != nil {
		t.Fatalf("publish payload: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPostProcessCompleteTurn(t *testing.T) {
	log := noopLogger{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	cache := respcache.NewCache(respcache.NewMemoryStore(10), time.Hour, log)
	memStore := memory.NewStore()
	turnRepo := &fakeTurnRepo{}
	usageRepo := &fakeUsageRepo{}
	publisher := &fakePublisher{}

	ps := NewPostProcessService(pubSub, TopicQueryAnswered, cache, memStore, turnRepo, usageRepo, publisher, log)
	if err := ps.Consume(context.Background()); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	userId := uuid.New()
	sessionId := uuid.New()
	payload := queryAnsweredPayload{
		UserId:         userId,
		SessionId:      sessionId,
		Question:       "What happened to revenue?",
		Answer:         "Revenue grew 14 percent.",
		Intent:         "retrieve_from_docs",
		Strategy:       "hybrid",
		Confidence:     0.78,
		CacheNamespace: cacheNamespace(sessionId),
		CacheKey:       respcache.Key(userId.String(), "What happened to revenue?"),
	}
	publishPayload(t, pubSub, payload)

	waitFor(t, "turn persistence", func() bool { return len(turnRepo.persisted()) == 1 })

	turn := turnRepo.persisted()[0]
	if turn.Answer != payload.Answer || turn.Incomplete {
		t.Errorf("persisted turn = %+v", turn)
	}

	waitFor(t, "cache write", func() bool {
		_, ok := cache.Get(context.Background(), payload.CacheNamespace, payload.CacheKey)
		return ok
	})
	waitFor(t, "usage record", func() bool { return len(usageRepo.persisted()) == 1 })
	if usageRepo.persisted()[0].Kind != "answered" {
		t.Errorf("usage kind = %q", usageRepo.persisted()[0].Kind)
	}

	conv := memStore.LoadOrCreate(userId.String(), sessionId.String())
	if conv.LastAnswer() != payload.Answer {
		t.Errorf("memory LastAnswer = %q", conv.LastAnswer())
	}
}

func TestPostProcessIncompleteTurnPersistsButSkipsSideEffects(t *testing.T) {
	log := noopLogger{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	cache := respcache.NewCache(respcache.NewMemoryStore(10), time.Hour, log)
	memStore := memory.NewStore()
	turnRepo := &fakeTurnRepo{}
	usageRepo := &fakeUsageRepo{}

	ps := NewPostProcessService(pubSub, TopicQueryAnswered, cache, memStore, turnRepo, usageRepo, nil, log)
	if err := ps.Consume(context.Background()); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	userId := uuid.New()
	sessionId := uuid.New()
	payload := queryAnsweredPayload{
		UserId:         userId,
		SessionId:      sessionId,
		Question:       "What happened to revenue?",
		Answer:         "Revenue gr",
		Incomplete:     true,
		CacheNamespace: cacheNamespace(sessionId),
		CacheKey:       respcache.Key(userId.String(), "What happened to revenue?"),
	}
	publishPayload(t, pubSub, payload)

	waitFor(t, "turn persistence", func() bool { return len(turnRepo.persisted()) == 1 })
	if !turnRepo.persisted()[0].Incomplete {
		t.Error("persisted turn must carry the incomplete marker")
	}

	// Give the consumer time to run past the marker check, then verify the
	// side effects never happened
	time.Sleep(100 * time.Millisecond)
	if _, ok := cache.Get(context.Background(), payload.CacheNamespace, payload.CacheKey); ok {
		t.Error("partial answer must not be cached")
	}
	if len(usageRepo.persisted()) != 0 {
		t.Error("partial answer must not be counted as usage")
	}
	if memStore.LoadOrCreate(userId.String(), sessionId.String()).HasHistory() {
		t.Error("partial answer must not enter conversation memory")
	}
}
