package domain

import (
	"fmt"
	"math"
)

// DefaultDuration is the length of a quiz session in seconds.
const DefaultDuration = 300

// Difficulty is the question difficulty requested from a question source.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty validates a raw difficulty string.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(raw); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", ErrInvalidDifficulty
}

// Question models a multiple choice trivia question.
// PresentedAnswers is frozen at ingestion so re-rendering never reshuffles.
type Question struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Prompt           string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	Distractors      []string `json:"incorrect_answers"`
	PresentedAnswers []string `json:"answers,omitempty"`
}

// Choices returns the answers in presentation order, falling back to
// distractors followed by the correct answer when nothing was frozen.
func (q Question) Choices() []string {
	if len(q.PresentedAnswers) > 0 {
		return append([]string(nil), q.PresentedAnswers...)
	}
	out := make([]string, 0, len(q.Distractors)+1)
	out = append(out, q.Distractors...)
	return append(out, q.CorrectAnswer)
}

// SessionState is the coarse state of a quiz session.
type SessionState int

const (
	StateEmpty SessionState = iota
	StateActive
	StateFinished
)

func (s SessionState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return "empty"
	}
}

// Session is one run-through of a fixed set of questions.
// A nil entry in Answers marks an unanswered question.
type Session struct {
	ID               string     `json:"id,omitempty"`
	Questions        []Question `json:"questions"`
	CurrentIndex     int        `json:"currentQuestionIndex"`
	Score            int        `json:"score"`
	Answers          []*string  `json:"answers"`
	IsFinished       bool       `json:"isFinished"`
	TimeRemaining    int        `json:"timeRemaining"`
	HasActiveSession bool       `json:"hasActiveQuiz"`
}

// EmptySession returns the initial session shape used at start-up and after a reset.
func EmptySession() Session {
	return Session{
		Questions:     []Question{},
		Answers:       []*string{},
		TimeRemaining: DefaultDuration,
	}
}

// State derives the coarse session state.
func (s Session) State() SessionState {
	switch {
	case s.IsFinished:
		return StateFinished
	case s.HasActiveSession:
		return StateActive
	default:
		return StateEmpty
	}
}

// Current returns the question at CurrentIndex.
func (s Session) Current() (Question, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// CountCorrect counts answers matching their question's correct answer.
func (s Session) CountCorrect() int {
	correct := 0
	for i, a := range s.Answers {
		if a != nil && i < len(s.Questions) && *a == s.Questions[i].CorrectAnswer {
			correct++
		}
	}
	return correct
}

// Clone returns a deep copy so callers never share slices with the store.
func (s Session) Clone() Session {
	out := s
	out.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Distractors = append([]string(nil), q.Distractors...)
		q.PresentedAnswers = append([]string(nil), q.PresentedAnswers...)
		out.Questions[i] = q
	}
	out.Answers = make([]*string, len(s.Answers))
	for i, a := range s.Answers {
		if a != nil {
			v := *a
			out.Answers[i] = &v
		}
	}
	return out
}

// Summary is the result screen view of a session.
type Summary struct {
	Total      int `json:"total"`
	Correct    int `json:"correct"`
	Wrong      int `json:"wrong"`
	Unanswered int `json:"unanswered"`
	Percent    int `json:"percent"`
}

// Summarize counts correct, wrong and unanswered questions.
func Summarize(s Session) Summary {
	sum := Summary{Total: len(s.Questions), Correct: s.CountCorrect()}
	for i, a := range s.Answers {
		if a != nil && i < len(s.Questions) && *a != s.Questions[i].CorrectAnswer {
			sum.Wrong++
		}
	}
	sum.Unanswered = sum.Total - sum.Correct - sum.Wrong
	if sum.Total > 0 {
		sum.Percent = int(math.Round(float64(sum.Correct) / float64(sum.Total) * 100))
	}
	return sum
}

// AnswerResult summarizes the outcome of one answer.
type AnswerResult struct {
	Index         int    `json:"index"`
	Answer        string `json:"answer"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	Score         int    `json:"score"`
}

// AuthUser is the persisted login state.
type AuthUser struct {
	Username   string `json:"username"`
	IsLoggedIn bool   `json:"isLoggedIn"`
}

// FormatClock renders seconds as the "MM : SS" countdown display.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d : %02d", seconds/60, seconds%60)
}
