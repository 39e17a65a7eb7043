package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"knowledge-race/internal/domain"
)

// DefaultQuestionCount is how many questions a match plays.
const DefaultQuestionCount = 5

// DefaultProviderTimeout bounds a single provider call.
const DefaultProviderTimeout = 20 * time.Second

// QuestionProvider supplies question sets (generator API, question bank, cache).
type QuestionProvider interface {
	Questions(ctx context.Context, count int) ([]domain.Question, error)
}

// LoadQuestions asks the provider for count questions. Any failure,
// including a short or malformed set, is replaced by the fallback set and
// reported through the offline flag instead of an error.
func LoadQuestions(ctx context.Context, provider QuestionProvider, count int, timeout time.Duration) ([]domain.Question, bool) {
	if count <= 0 {
		count = DefaultQuestionCount
	}
	questions, err := fetchQuestions(ctx, provider, count, timeout)
	if err != nil {
		log.Warn().Err(err).Int("count", count).Msg("using offline question set")
		return domain.FallbackQuestions(), true
	}
	return questions, false
}

func fetchQuestions(ctx context.Context, provider QuestionProvider, count int, timeout time.Duration) ([]domain.Question, error) {
	if provider == nil {
		return nil, domain.ErrProviderUnavailable
	}
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	questions, err := provider.Questions(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	if len(questions) < count {
		return nil, fmt.Errorf("%w: wanted %d questions, got %d", domain.ErrMalformedQuestion, count, len(questions))
	}
	questions = questions[:count]
	if err := domain.ValidateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}
