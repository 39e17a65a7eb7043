package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"

	"knowledge-race/internal/domain"
)

// QuestionRow is the bun model of the questions table.
type QuestionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID       string          `bun:"id,pk"`
	Category string          `bun:"category,notnull"`
	Data     json.RawMessage `bun:"data,type:jsonb,notnull"`
}

// SeedQuestions upserts the given questions into the bank. Malformed
// questions are rejected before anything is written.
func SeedQuestions(ctx context.Context, db *bun.DB, questions []domain.Question) (int, error) {
	if err := domain.ValidateQuestions(questions); err != nil {
		return 0, err
	}
	if len(questions) == 0 {
		return 0, nil
	}
	rows := make([]QuestionRow, 0, len(questions))
	for _, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			return 0, fmt.Errorf("marshal question %s: %w", q.ID, err)
		}
		rows = append(rows, QuestionRow{ID: q.ID, Category: string(q.Category), Data: data})
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("category = EXCLUDED.category").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed questions: %w", err)
	}
	return len(rows), nil
}
