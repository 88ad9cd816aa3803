package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
)

func TestStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")
	store, err := NewStateStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if _, err := store.Load(ctx, "quiz-storage"); !errors.Is(err, domain.ErrStateNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Save(ctx, "quiz-storage", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "quiz-storage", []byte(`{"version":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, err := store.Load(ctx, "quiz-storage")
	if err != nil || string(data) != `{"version":2}` {
		t.Fatalf("expected latest record, got %s err=%v", data, err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected temp files cleaned up, found %d entries", len(entries))
	}

	if err := store.Delete(ctx, "quiz-storage"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "quiz-storage"); err != nil {
		t.Fatalf("delete missing should succeed: %v", err)
	}
}

func TestStateStoreRejectsPathKeys(t *testing.T) {
	store, _ := NewStateStore(t.TempDir())
	if err := store.Save(context.Background(), "../escape", []byte("x")); err == nil {
		t.Fatalf("expected path key rejected")
	}
}

func TestQuizStoreResumesFromDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo, _ := NewStateStore(dir)

	store := app.NewQuizStore(ctx, repo)
	_ = store.SetQuestions([]domain.Question{
		{Prompt: "2 + 2?", CorrectAnswer: "4", Distractors: []string{"3", "5"}, PresentedAnswers: []string{"3", "4", "5"}},
		{Prompt: "3 + 3?", CorrectAnswer: "6", Distractors: []string{"5", "7"}, PresentedAnswers: []string{"7", "5", "6"}},
	})
	_, _ = store.AnswerQuestion("4")
	_ = store.NextQuestion()
	_ = store.UpdateTimeRemaining(200)

	// A new process reopens the same directory.
	reopened, _ := NewStateStore(dir)
	got := app.NewQuizStore(ctx, reopened).Snapshot()
	if got.State() != domain.StateActive || got.CurrentIndex != 1 || got.TimeRemaining != 200 || got.Score != 1 {
		t.Fatalf("unexpected resumed session %+v", got)
	}
}

func TestQuizStoreDiscardsCorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, app.QuizStateKey+".json"), []byte("{corrupt"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	repo, _ := NewStateStore(dir)

	got := app.NewQuizStore(ctx, repo).Snapshot()
	if got.State() != domain.StateEmpty {
		t.Fatalf("expected empty session, got %s", got.State())
	}
	if _, err := os.Stat(filepath.Join(dir, app.QuizStateKey+".json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected corrupt file removed, got %v", err)
	}
}
