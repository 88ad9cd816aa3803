package domain

import (
	"errors"
	"testing"
)

func TestSummarizeCountsAnswers(t *testing.T) {
	right, wrong := "a", "x"
	s := Session{
		Questions: []Question{
			{CorrectAnswer: "a"},
			{CorrectAnswer: "b"},
			{CorrectAnswer: "c"},
		},
		Answers: []*string{&right, &wrong, nil},
	}
	got := Summarize(s)
	want := Summary{Total: 3, Correct: 1, Wrong: 1, Unanswered: 1, Percent: 33}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if Summarize(EmptySession()).Percent != 0 {
		t.Fatalf("expected 0%% for an empty session")
	}
}

func TestSessionStateAndClone(t *testing.T) {
	answer := "a"
	s := Session{
		Questions:        []Question{{CorrectAnswer: "a", PresentedAnswers: []string{"a", "b"}}},
		Answers:          []*string{&answer},
		HasActiveSession: true,
	}
	if s.State() != StateActive {
		t.Fatalf("expected active, got %s", s.State())
	}
	clone := s.Clone()
	*clone.Answers[0] = "changed"
	clone.Questions[0].PresentedAnswers[0] = "z"
	if *s.Answers[0] != "a" || s.Questions[0].PresentedAnswers[0] != "a" {
		t.Fatalf("expected clone to be independent")
	}

	s.IsFinished = true
	if s.State() != StateFinished {
		t.Fatalf("expected finished to win, got %s", s.State())
	}
}

func TestParseDifficulty(t *testing.T) {
	if d, err := ParseDifficulty("hard"); err != nil || d != DifficultyHard {
		t.Fatalf("expected hard, got %q err=%v", d, err)
	}
	if _, err := ParseDifficulty("extreme"); !errors.Is(err, ErrInvalidDifficulty) {
		t.Fatalf("expected invalid difficulty, got %v", err)
	}
}

func TestFetchErrorMatchesSentinel(t *testing.T) {
	err := error(&FetchError{StatusCode: 500, Err: errors.New("boom")})
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected FetchError to match ErrFetchFailed")
	}
	if err.Error() != "fetch questions: status 500: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[int]string{300: "05 : 00", 59: "00 : 59", 0: "00 : 00", -3: "00 : 00", 605: "10 : 05"}
	for in, want := range cases {
		if got := FormatClock(in); got != want {
			t.Fatalf("FormatClock(%d) = %q, want %q", in, got, want)
		}
	}
}
