package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trivia-quiz/internal/domain"
)

// QuestionSource supplies a finite ordered set of questions (HTTP API, question bank, etc).
// Failures are reported as *domain.FetchError.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, amount int, difficulty domain.Difficulty) ([]domain.Question, error)
}

// QuestionSink stores questions for later sessions and reports how many were new.
type QuestionSink interface {
	AddQuestions(ctx context.Context, questions []domain.Question) (int, error)
}

// Shuffler permutes n elements through swap. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// PrepareQuestions drops unusable questions and freezes the presented answer
// order of the rest. Questions that already carry an order keep it.
func PrepareQuestions(questions []domain.Question, shuffler Shuffler) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if !usable(q) {
			continue
		}
		q.Distractors = append([]string(nil), q.Distractors...)
		if len(q.PresentedAnswers) == 0 {
			answers := q.Choices()
			if shuffler != nil {
				shuffler.Shuffle(len(answers), func(i, j int) {
					answers[i], answers[j] = answers[j], answers[i]
				})
			}
			q.PresentedAnswers = answers
		} else {
			q.PresentedAnswers = append([]string(nil), q.PresentedAnswers...)
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return out, nil
}

func usable(q domain.Question) bool {
	return strings.TrimSpace(q.Prompt) != "" && q.CorrectAnswer != ""
}

// SeedQuestions fetches amount questions per difficulty from source and stores
// the usable ones in sink, waiting pause between fetches. It returns how many
// questions were added.
func SeedQuestions(ctx context.Context, source QuestionSource, sink QuestionSink, amount int, difficulties []domain.Difficulty, pause time.Duration) (int, error) {
	added := 0
	for i, difficulty := range difficulties {
		if i > 0 && pause > 0 {
			select {
			case <-ctx.Done():
				return added, ctx.Err()
			case <-time.After(pause):
			}
		}

		questions, err := source.FetchQuestions(ctx, amount, difficulty)
		if err != nil {
			return added, fmt.Errorf("seed %s questions: %w", difficulty, err)
		}
		keep := make([]domain.Question, 0, len(questions))
		for _, q := range questions {
			if usable(q) {
				q.PresentedAnswers = nil
				keep = append(keep, q)
			}
		}
		n, err := sink.AddQuestions(ctx, keep)
		added += n
		if err != nil {
			return added, fmt.Errorf("store %s questions: %w", difficulty, err)
		}
	}
	return added, nil
}
