package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-quiz/internal/domain"
)

// QuestionBank serves questions stored as JSONB in question_bank.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) FetchQuestions(ctx context.Context, amount int, difficulty domain.Difficulty) ([]domain.Question, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT data FROM question_bank WHERE difficulty=$1 ORDER BY random() LIMIT $2`,
		string(difficulty), amount)
	if err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("query question bank: %w", err)}
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, &domain.FetchError{Err: err}
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, &domain.FetchError{Err: fmt.Errorf("unmarshal question: %w", err)}
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.FetchError{Err: err}
	}
	if len(questions) == 0 {
		return nil, &domain.FetchError{Err: domain.ErrNoQuestions}
	}
	return questions, nil
}

// AddQuestions stores questions in the bank, keyed by their difficulty.
// Prompts already in the bank are skipped; the count of new rows is returned.
func (b *QuestionBank) AddQuestions(ctx context.Context, questions []domain.Question) (int, error) {
	added := 0
	for _, q := range questions {
		q.PresentedAnswers = nil
		data, err := json.Marshal(q)
		if err != nil {
			return added, err
		}
		tag, err := b.pool.Exec(ctx,
			`INSERT INTO question_bank (difficulty, data) VALUES ($1, $2::jsonb)
			ON CONFLICT ((data->>'question')) DO NOTHING`,
			q.Difficulty, string(data))
		if err != nil {
			return added, fmt.Errorf("insert question: %w", err)
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}
