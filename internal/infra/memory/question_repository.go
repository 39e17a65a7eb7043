package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"knowledge-race/internal/app"
	"knowledge-race/internal/domain"
)

// QuestionRepository collapses concurrent loads of the same set size and,
// with a positive TTL, replays a loaded set until it expires. A zero TTL
// caches nothing.
type QuestionRepository struct {
	loader app.QuestionProvider
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int]cachedSet
}

type cachedSet struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader app.QuestionProvider, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int]cachedSet),
	}
}

func (r *QuestionRepository) Questions(ctx context.Context, count int) ([]domain.Question, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[count]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return copySet(entry.questions), nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(strconv.Itoa(count), func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[count]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.loader.Questions(ctx, count)
		if err != nil {
			return nil, err
		}
		// Only playable sets are worth replaying.
		if len(questions) < count || domain.ValidateQuestions(questions) != nil {
			return questions, nil
		}

		r.mu.Lock()
		if ttl := r.ttlWithJitter(); ttl > 0 {
			r.cache[count] = cachedSet{
				questions: questions,
				expiresAt: now.Add(ttl),
			}
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return copySet(result.([]domain.Question)), nil
}

// ttlWithJitter must be called with r.mu held; rnd is not safe for concurrent use.
func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func copySet(questions []domain.Question) []domain.Question {
	return append([]domain.Question(nil), questions...)
}

// StaticProvider is a simple provider backed by a fixed list (useful for tests/demos).
type StaticProvider struct {
	questions []domain.Question
}

func NewStaticProvider(questions []domain.Question) *StaticProvider {
	return &StaticProvider{questions: questions}
}

func (p *StaticProvider) Questions(_ context.Context, count int) ([]domain.Question, error) {
	if len(p.questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	if count > len(p.questions) {
		count = len(p.questions)
	}
	return copySet(p.questions[:count]), nil
}
