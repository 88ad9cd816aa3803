package memory

import (
	"context"
	"errors"
	"sync"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
)

// StaticSource serves questions from a fixed in-memory bank (useful for tests/demos/offline play).
// Successive fetches rotate through the bank so back-to-back sessions differ.
type StaticSource struct {
	mu      sync.Mutex
	bank    []domain.Question
	cursors map[domain.Difficulty]int
}

func NewStaticSource(bank []domain.Question) *StaticSource {
	return &StaticSource{
		bank:    bank,
		cursors: make(map[domain.Difficulty]int),
	}
}

func (s *StaticSource) FetchQuestions(ctx context.Context, amount int, difficulty domain.Difficulty) ([]domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.FetchError{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matching := make([]domain.Question, 0, len(s.bank))
	for _, q := range s.bank {
		if q.Difficulty == "" || q.Difficulty == string(difficulty) {
			matching = append(matching, q)
		}
	}
	if len(matching) == 0 {
		return nil, &domain.FetchError{Err: domain.ErrNoQuestions}
	}
	if amount <= 0 || amount > len(matching) {
		amount = len(matching)
	}

	start := s.cursors[difficulty] % len(matching)
	out := make([]domain.Question, 0, amount)
	for i := 0; i < amount; i++ {
		out = append(out, matching[(start+i)%len(matching)])
	}
	s.cursors[difficulty] = start + amount
	return out, nil
}

// AddQuestions appends questions whose prompt is not in the bank yet.
func (s *StaticSource) AddQuestions(_ context.Context, questions []domain.Question) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(s.bank))
	for _, q := range s.bank {
		seen[q.Prompt] = struct{}{}
	}
	added := 0
	for _, q := range questions {
		if _, ok := seen[q.Prompt]; ok {
			continue
		}
		seen[q.Prompt] = struct{}{}
		q.PresentedAnswers = nil
		s.bank = append(s.bank, q)
		added++
	}
	return added, nil
}

// FlakySource fails a fixed number of fetches before delegating, mimicking an
// unreliable network. It exists for tests of the retry paths and is never
// wired into a command.
type FlakySource struct {
	mu       sync.Mutex
	next     app.QuestionSource
	failures int
	calls    int
}

func NewFlakySource(next app.QuestionSource, failures int) *FlakySource {
	return &FlakySource{next: next, failures: failures}
}

func (s *FlakySource) FetchQuestions(ctx context.Context, amount int, difficulty domain.Difficulty) ([]domain.Question, error) {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mu.Unlock()
	if fail {
		return nil, &domain.FetchError{StatusCode: 503, Err: errors.New("service unavailable")}
	}
	return s.next.FetchQuestions(ctx, amount, difficulty)
}

// Calls reports how many fetches were attempted.
func (s *FlakySource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// SampleQuestions provides a small built-in bank for the static source.
func SampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Category:      "Science & Nature",
			Type:          "multiple",
			Difficulty:    "medium",
			Prompt:        "What is the chemical symbol for gold?",
			CorrectAnswer: "Au",
			Distractors:   []string{"Ag", "Gd", "Go"},
		},
		{
			Category:      "Geography",
			Type:          "multiple",
			Difficulty:    "medium",
			Prompt:        "Which river flows through Budapest?",
			CorrectAnswer: "Danube",
			Distractors:   []string{"Rhine", "Vistula", "Elbe"},
		},
		{
			Category:      "Science: Computers",
			Type:          "multiple",
			Difficulty:    "medium",
			Prompt:        "In what year was the Go programming language announced?",
			CorrectAnswer: "2009",
			Distractors:   []string{"2007", "2011", "2012"},
		},
		{
			Category:      "History",
			Type:          "multiple",
			Difficulty:    "medium",
			Prompt:        "Which empire built Machu Picchu?",
			CorrectAnswer: "Inca",
			Distractors:   []string{"Aztec", "Maya", "Olmec"},
		},
		{
			Category:      "Entertainment: Music",
			Type:          "multiple",
			Difficulty:    "easy",
			Prompt:        "How many strings does a standard guitar have?",
			CorrectAnswer: "6",
			Distractors:   []string{"4", "5", "7"},
		},
		{
			Category:      "Mathematics",
			Type:          "multiple",
			Difficulty:    "hard",
			Prompt:        "What is the smallest perfect number?",
			CorrectAnswer: "6",
			Distractors:   []string{"1", "28", "12"},
		},
	}
}
