package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"knowledge-race/internal/app"
	"knowledge-race/internal/domain"
)

// QuestionRepository caches generated question sets in Redis and falls back
// to a loader on cache miss. Sets are stored as JSON under
// questions:set:{count} so every instance replays the same set within the TTL.
// A zero TTL stores nothing and only collapses concurrent loads.
type QuestionRepository struct {
	client *redis.Client
	loader app.QuestionProvider
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader app.QuestionProvider, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) Questions(ctx context.Context, count int) ([]domain.Question, error) {
	key := r.setKey(count)
	if questions, ok := r.cached(ctx, key, count); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := r.cached(ctx, key, count); ok {
			return questions, nil
		}

		questions, err := r.loader.Questions(ctx, count)
		if err != nil {
			return nil, err
		}
		if len(questions) < count || domain.ValidateQuestions(questions) != nil {
			return questions, nil
		}

		ttl := r.ttlWithJitter()
		if ttl <= 0 {
			return questions, nil
		}
		data, err := json.Marshal(questions)
		if err != nil {
			return questions, nil
		}
		if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache question set")
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) cached(ctx context.Context, key string, count int) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil || len(questions) < count {
		return nil, false
	}
	return questions, true
}

func (r *QuestionRepository) setKey(count int) string {
	return "questions:set:" + strconv.Itoa(count)
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
