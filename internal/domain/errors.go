package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an operation does not apply to the current session state.
	ErrInvalidTransition = errors.New("invalid quiz transition")
	// ErrStaleSession is returned when a deferred mutation targets a session that was replaced or reset.
	ErrStaleSession = errors.New("stale quiz session")
	// ErrMalformedState indicates a persisted record that cannot be decoded or has the wrong version.
	ErrMalformedState = errors.New("malformed persisted state")
	// ErrStateNotFound indicates no record is stored under a key.
	ErrStateNotFound = errors.New("persisted state not found")
	// ErrNoQuestions indicates a question source returned nothing usable.
	ErrNoQuestions = errors.New("no questions available")
	// ErrFetchFailed is matched by every FetchError.
	ErrFetchFailed = errors.New("fetch questions failed")
	// ErrNotLoggedIn gates the quiz screen.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrInvalidUsername rejects an empty login.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidDifficulty rejects an unknown difficulty.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)

// FetchError reports a question source failure. StatusCode is zero when no
// HTTP response was received.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch questions: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch questions: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrFetchFailed) match any FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }
