package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/memory"
)

func TestSetQuestionsInitialShape(t *testing.T) {
	store := newTestStore(t, memory.NewStateStore())
	if err := store.SetQuestions(sampleQuestions(3)); err != nil {
		t.Fatalf("set questions: %v", err)
	}
	_, _ = store.AnswerQuestion("A0")
	_ = store.NextQuestion()

	if err := store.ResetQuiz(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := store.Snapshot(); got.State() != domain.StateEmpty || len(got.Questions) != 0 {
		t.Fatalf("expected empty session after reset, got %+v", got)
	}

	if err := store.SetQuestions(sampleQuestions(4)); err != nil {
		t.Fatalf("set questions: %v", err)
	}
	got := store.Snapshot()
	if got.CurrentIndex != 0 || got.Score != 0 || got.IsFinished || !got.HasActiveSession {
		t.Fatalf("unexpected initial session shape: %+v", got)
	}
	if got.TimeRemaining != domain.DefaultDuration {
		t.Fatalf("expected %d seconds, got %d", domain.DefaultDuration, got.TimeRemaining)
	}
	if len(got.Answers) != 4 {
		t.Fatalf("expected 4 answer slots, got %d", len(got.Answers))
	}
	for i, a := range got.Answers {
		if a != nil {
			t.Fatalf("expected answer %d unanswered, got %q", i, *a)
		}
	}
	if got.ID == "" {
		t.Fatalf("expected session id to be stamped")
	}
}

func TestScenarioCorrectWrongCorrect(t *testing.T) {
	store := newTestStore(t, memory.NewStateStore())
	_ = store.SetQuestions(sampleQuestions(3))

	for i, answer := range []string{"A0", "wrong", "A2"} {
		res, err := store.AnswerQuestion(answer)
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if res.Index != i {
			t.Fatalf("expected answer recorded at %d, got %d", i, res.Index)
		}
		if err := store.NextQuestion(); err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
	}

	got := store.Snapshot()
	if got.Score != 2 {
		t.Fatalf("expected score 2, got %d", got.Score)
	}
	want := []string{"A0", "wrong", "A2"}
	for i, a := range got.Answers {
		if a == nil || *a != want[i] {
			t.Fatalf("answer %d: expected %q, got %v", i, want[i], a)
		}
	}
	if !got.IsFinished || got.HasActiveSession {
		t.Fatalf("expected finished session, got %+v", got)
	}
	if got.CurrentIndex != 2 {
		t.Fatalf("expected index to stay on last question, got %d", got.CurrentIndex)
	}
}

func TestAnswerDoesNotAdvance(t *testing.T) {
	store := newTestStore(t, memory.NewStateStore())
	_ = store.SetQuestions(sampleQuestions(2))

	res, err := store.AnswerQuestion("A0")
	if err != nil || !res.Correct {
		t.Fatalf("expected correct answer, got %+v err=%v", res, err)
	}
	if got := store.Snapshot(); got.CurrentIndex != 0 || got.Score != 1 {
		t.Fatalf("expected index 0 score 1, got index %d score %d", got.CurrentIndex, got.Score)
	}
}

func TestReansweringRecomputesScore(t *testing.T) {
	store := newTestStore(t, memory.NewStateStore())
	_ = store.SetQuestions(sampleQuestions(2))

	_, _ = store.AnswerQuestion("A0")
	_, _ = store.AnswerQuestion("A0")
	if got := store.Snapshot().Score; got != 1 {
		t.Fatalf("expected repeated correct answer to count once, got %d", got)
	}
	_, _ = store.AnswerQuestion("nope")
	if got := store.Snapshot().Score; got != 0 {
		t.Fatalf("expected overwrite with wrong answer to drop score, got %d", got)
	}
}

func TestScoreMatchesAnswersForAllSequences(t *testing.T) {
	// Every answer pattern over four questions, with and without skipping answers.
	for mask := 0; mask < 1<<8; mask++ {
		store := newTestStore(t, nil)
		questions := sampleQuestions(4)
		_ = store.SetQuestions(questions)
		lastIndex := 0
		for i := range questions {
			switch (mask >> (2 * i)) & 3 {
			case 0:
				_, _ = store.AnswerQuestion(questions[i].CorrectAnswer)
			case 1:
				_, _ = store.AnswerQuestion("wrong")
			case 2:
				// left unanswered
			case 3:
				_, _ = store.AnswerQuestion("wrong")
				_, _ = store.AnswerQuestion(questions[i].CorrectAnswer)
			}
			snap := store.Snapshot()
			if snap.CurrentIndex < lastIndex || snap.CurrentIndex > len(questions)-1 {
				t.Fatalf("mask %b: index %d out of order", mask, snap.CurrentIndex)
			}
			lastIndex = snap.CurrentIndex
			_ = store.NextQuestion()
		}
		snap := store.Snapshot()
		if snap.Score != snap.CountCorrect() {
			t.Fatalf("mask %b: score %d, expected %d", mask, snap.Score, snap.CountCorrect())
		}
		if !snap.IsFinished {
			t.Fatalf("mask %b: expected finished", mask)
		}
	}
}

func TestNextQuestionAtLastIndexFinishes(t *testing.T) {
	store := newTestStore(t, memory.NewStateStore())
	_ = store.SetQuestions(sampleQuestions(1))

	if err := store.NextQuestion(); err != nil {
		t.Fatalf("next: %v", err)
	}
	got := store.Snapshot()
	if !got.IsFinished || got.HasActiveSession {
		t.Fatalf("expected finished session, got %+v", got)
	}
	// Reconfirming the terminal state is a no-op.
	if err := store.NextQuestion(); err != nil {
		t.Fatalf("next on finished: %v", err)
	}
	if got := store.Snapshot(); got.CurrentIndex != 0 {
		t.Fatalf("expected index unchanged, got %d", got.CurrentIndex)
	}
}

func TestInvalidTransitionsAreGuarded(t *testing.T) {
	store := newTestStore(t, memory.NewStateStore())

	if _, err := store.AnswerQuestion("A0"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on empty session, got %v", err)
	}
	if err := store.NextQuestion(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition for next on empty, got %v", err)
	}
	if err := store.UpdateTimeRemaining(10); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition for time on empty, got %v", err)
	}
	if err := store.SetQuestions(nil); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected no questions error, got %v", err)
	}

	_ = store.SetQuestions(sampleQuestions(1))
	_ = store.FinishQuiz()
	if _, err := store.AnswerQuestion("A0"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on finished session, got %v", err)
	}
	if got := store.Snapshot(); got.Answers[0] != nil {
		t.Fatalf("expected finished session answers untouched")
	}
}

func TestUpdateTimeRemaining(t *testing.T) {
	store := newTestStore(t, memory.NewStateStore())
	_ = store.SetQuestions(sampleQuestions(2))

	if err := store.UpdateTimeRemaining(120); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := store.Snapshot(); got.IsFinished || got.TimeRemaining != 120 {
		t.Fatalf("expected active session at 120s, got %+v", got)
	}
	if err := store.UpdateTimeRemaining(200); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected time increase to be refused, got %v", err)
	}

	if err := store.UpdateTimeRemaining(0); err != nil {
		t.Fatalf("update 0: %v", err)
	}
	got := store.Snapshot()
	if !got.IsFinished || got.HasActiveSession || got.TimeRemaining != 0 {
		t.Fatalf("expected timeout to finish session, got %+v", got)
	}
	if err := store.UpdateTimeRemaining(0); err != nil {
		t.Fatalf("update 0 again should be idempotent: %v", err)
	}
	if err := store.FinishQuiz(); err != nil {
		t.Fatalf("finish after timeout should be a no-op: %v", err)
	}
}

func TestNegativeTimeClampsToZero(t *testing.T) {
	store := newTestStore(t, nil)
	_ = store.SetQuestions(sampleQuestions(2))
	_ = store.UpdateTimeRemaining(-5)
	if got := store.Snapshot(); got.TimeRemaining != 0 || !got.IsFinished {
		t.Fatalf("expected clamp to 0 and finish, got %+v", got)
	}
}

func TestScopedMutationsIgnoreStaleSessions(t *testing.T) {
	store := newTestStore(t, memory.NewStateStore())
	_ = store.SetQuestions(sampleQuestions(3))
	oldID := store.SessionID()

	_ = store.ResetQuiz()
	_ = store.SetQuestions(sampleQuestions(3))

	if err := store.AdvanceFrom(oldID, 0); !errors.Is(err, domain.ErrStaleSession) {
		t.Fatalf("expected stale advance, got %v", err)
	}
	if err := store.SyncTime(oldID, 10); !errors.Is(err, domain.ErrStaleSession) {
		t.Fatalf("expected stale sync, got %v", err)
	}
	if err := store.Expire(oldID); !errors.Is(err, domain.ErrStaleSession) {
		t.Fatalf("expected stale expire, got %v", err)
	}
	got := store.Snapshot()
	if got.CurrentIndex != 0 || got.TimeRemaining != domain.DefaultDuration || got.IsFinished {
		t.Fatalf("expected new session untouched, got %+v", got)
	}

	id := store.SessionID()
	if err := store.AdvanceFrom(id, 1); !errors.Is(err, domain.ErrStaleSession) {
		t.Fatalf("expected wrong-index advance to be stale, got %v", err)
	}
	if err := store.AdvanceFrom(id, 0); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got := store.Snapshot().CurrentIndex; got != 1 {
		t.Fatalf("expected index 1, got %d", got)
	}
}

func TestStoreResumesPersistedSession(t *testing.T) {
	repo := memory.NewStateStore()
	store := newTestStore(t, repo)
	_ = store.SetQuestions(sampleQuestions(3))
	_, _ = store.AnswerQuestion("A0")
	_ = store.NextQuestion()
	_ = store.UpdateTimeRemaining(187)

	restored := app.NewQuizStore(context.Background(), repo)
	got := restored.Snapshot()
	if got.State() != domain.StateActive {
		t.Fatalf("expected active session restored, got %s", got.State())
	}
	if got.CurrentIndex != 1 || got.TimeRemaining != 187 || got.Score != 1 {
		t.Fatalf("unexpected restored session: index=%d time=%d score=%d", got.CurrentIndex, got.TimeRemaining, got.Score)
	}
	if got.ID != store.SessionID() {
		t.Fatalf("expected session id preserved")
	}
	if len(got.Questions[0].PresentedAnswers) != 4 {
		t.Fatalf("expected presented answers to survive persistence, got %v", got.Questions[0].PresentedAnswers)
	}
}

func TestStoreWritesThroughOnEveryMutation(t *testing.T) {
	repo := memory.NewStateStore()
	store := newTestStore(t, repo)

	_ = store.SetQuestions(sampleQuestions(2))
	_, _ = store.AnswerQuestion("A0")
	_ = store.NextQuestion()
	_ = store.UpdateTimeRemaining(100)
	_ = store.FinishQuiz()
	_ = store.ResetQuiz()
	if repo.Saves() != 6 {
		t.Fatalf("expected 6 writes, got %d", repo.Saves())
	}

	// Guarded no-ops do not write.
	_, _ = store.AnswerQuestion("A0")
	_ = store.FinishQuiz()
	if repo.Saves() != 7 {
		t.Fatalf("expected finish on empty session to write once more, got %d", repo.Saves())
	}
	_ = store.FinishQuiz()
	if repo.Saves() != 7 {
		t.Fatalf("expected repeated finish to skip writing, got %d", repo.Saves())
	}
}

func TestStoreFailsSafeOnMalformedState(t *testing.T) {
	cases := map[string]string{
		"garbage":          `not json`,
		"version mismatch": `{"state":{"questions":[],"answers":[],"timeRemaining":300},"version":7}`,
		"null state":       `{"state":null,"version":1}`,
		"answers mismatch": `{"state":{"questions":[{"question":"q","correct_answer":"a"}],"answers":[],"hasActiveQuiz":true,"timeRemaining":10},"version":1}`,
		"index overflow":   `{"state":{"questions":[],"answers":[],"currentQuestionIndex":4,"timeRemaining":10},"version":1}`,
		"finished active":  `{"state":{"questions":[{"question":"q","correct_answer":"a"}],"answers":[null],"isFinished":true,"hasActiveQuiz":true,"timeRemaining":10},"version":1}`,
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := memory.NewStateStore()
			_ = repo.Save(ctx, app.QuizStateKey, []byte(blob))

			store := app.NewQuizStore(ctx, repo)
			if got := store.Snapshot(); got.State() != domain.StateEmpty || len(got.Questions) != 0 {
				t.Fatalf("expected empty session, got %+v", got)
			}
			if _, err := repo.Load(ctx, app.QuizStateKey); !errors.Is(err, domain.ErrStateNotFound) {
				t.Fatalf("expected malformed record discarded, got %v", err)
			}
		})
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	store := newTestStore(t, nil)
	ch, cancel := store.Subscribe()
	defer cancel()

	if initial := <-ch; initial.State() != domain.StateEmpty {
		t.Fatalf("expected empty initial snapshot, got %s", initial.State())
	}
	_ = store.SetQuestions(sampleQuestions(1))
	if update := <-ch; update.State() != domain.StateActive {
		t.Fatalf("expected active snapshot, got %s", update.State())
	}
}

func TestConfiguredDuration(t *testing.T) {
	store := app.NewQuizStore(context.Background(), memory.NewStateStore(), app.WithDuration(90))
	if got := store.Snapshot().TimeRemaining; got != 90 {
		t.Fatalf("expected empty session at 90s, got %d", got)
	}
	_ = store.SetQuestions(sampleQuestions(2))
	if got := store.Snapshot().TimeRemaining; got != 90 {
		t.Fatalf("expected new session at 90s, got %d", got)
	}
	_ = store.UpdateTimeRemaining(30)
	_ = store.ResetQuiz()
	if got := store.Snapshot().TimeRemaining; got != 90 {
		t.Fatalf("expected reset session at 90s, got %d", got)
	}
}

func newTestStore(t *testing.T, repo app.StateRepository) *app.QuizStore {
	t.Helper()
	n := 0
	return app.NewQuizStore(context.Background(), repo, app.WithSessionIDs(func() string {
		n++
		return fmt.Sprintf("session-%d", n)
	}))
}

// sampleQuestions builds n questions whose correct answer is "A<i>".
func sampleQuestions(n int) []domain.Question {
	out := make([]domain.Question, n)
	for i := range out {
		correct := fmt.Sprintf("A%d", i)
		out[i] = domain.Question{
			Category:         "General Knowledge",
			Type:             "multiple",
			Difficulty:       "medium",
			Prompt:           fmt.Sprintf("Question %d?", i),
			CorrectAnswer:    correct,
			Distractors:      []string{"x", "y", "z"},
			PresentedAnswers: []string{"x", correct, "y", "z"},
		}
	}
	return out
}
