package app

import (
	"context"
	"encoding/json"
	"fmt"

	"trivia-quiz/internal/domain"
)

const (
	// QuizStateKey namespaces the persisted session record.
	QuizStateKey = "quiz-storage"
	// QuizStateVersion is bumped whenever the session record layout changes.
	QuizStateVersion = 1

	// AuthStateKey namespaces the persisted login record.
	AuthStateKey = "auth-storage"
	// AuthStateVersion is bumped whenever the login record layout changes.
	AuthStateVersion = 0
)

// StateRepository abstracts durable key/value storage for persisted records (file, Redis, Postgres, etc).
// Load returns domain.ErrStateNotFound when nothing is stored under key.
type StateRepository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

func encodeRecord(version int, state any) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{State: raw, Version: version})
}

// decodeRecord unpacks an envelope; every failure is reported as domain.ErrMalformedState.
func decodeRecord(data []byte, version int, into any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedState, err)
	}
	if env.Version != version {
		return fmt.Errorf("%w: version %d, want %d", domain.ErrMalformedState, env.Version, version)
	}
	if len(env.State) == 0 || string(env.State) == "null" {
		return fmt.Errorf("%w: empty state", domain.ErrMalformedState)
	}
	if err := json.Unmarshal(env.State, into); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedState, err)
	}
	return nil
}

// validateSession checks the invariants a hydrated session must hold.
func validateSession(s domain.Session) error {
	n := len(s.Questions)
	switch {
	case len(s.Answers) != n:
		return fmt.Errorf("%w: %d answers for %d questions", domain.ErrMalformedState, len(s.Answers), n)
	case s.CurrentIndex < 0 || s.CurrentIndex > n:
		return fmt.Errorf("%w: index %d out of range", domain.ErrMalformedState, s.CurrentIndex)
	case s.TimeRemaining < 0:
		return fmt.Errorf("%w: negative time remaining", domain.ErrMalformedState)
	case s.IsFinished && s.HasActiveSession:
		return fmt.Errorf("%w: finished session marked active", domain.ErrMalformedState)
	case s.HasActiveSession && (n == 0 || s.CurrentIndex >= n):
		return fmt.Errorf("%w: active session without a current question", domain.ErrMalformedState)
	}
	return nil
}
