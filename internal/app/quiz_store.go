package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"trivia-quiz/internal/domain"
)

// errUnchanged marks a mutation that resolved to a no-op; it is never returned to callers.
var errUnchanged = errors.New("unchanged")

// QuizStore owns the authoritative quiz session. Every successful mutation is
// written through to the StateRepository before the call returns.
type QuizStore struct {
	repo        StateRepository
	newID       func() string
	saveTimeout time.Duration
	duration    int

	mu          sync.RWMutex
	session     domain.Session
	subscribers map[chan domain.Session]struct{}
}

// StoreOption customizes a QuizStore.
type StoreOption func(*QuizStore)

// WithSessionIDs overrides how session identities are generated (tests).
func WithSessionIDs(next func() string) StoreOption {
	return func(s *QuizStore) { s.newID = next }
}

// WithDuration sets the session length in seconds.
func WithDuration(seconds int) StoreOption {
	return func(s *QuizStore) {
		if seconds > 0 {
			s.duration = seconds
		}
	}
}

// WithSaveTimeout bounds each persistence write.
func WithSaveTimeout(d time.Duration) StoreOption {
	return func(s *QuizStore) { s.saveTimeout = d }
}

// NewQuizStore restores the persisted session from repo, falling back to the
// empty session when nothing usable is stored.
func NewQuizStore(ctx context.Context, repo StateRepository, opts ...StoreOption) *QuizStore {
	s := &QuizStore{
		repo:        repo,
		newID:       uuid.NewString,
		saveTimeout: 2 * time.Second,
		duration:    domain.DefaultDuration,
		subscribers: make(map[chan domain.Session]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.session = s.emptySession()
	s.hydrate(ctx)
	return s
}

func (s *QuizStore) hydrate(ctx context.Context) {
	if s.repo == nil {
		return
	}
	data, err := s.repo.Load(ctx, QuizStateKey)
	if errors.Is(err, domain.ErrStateNotFound) {
		return
	}
	if err != nil {
		log.Printf("load quiz state: %v", err)
		return
	}

	var restored domain.Session
	if err := decodeRecord(data, QuizStateVersion, &restored); err == nil {
		err = validateSession(restored)
		if err == nil {
			restored.Score = restored.CountCorrect()
			s.session = restored
			return
		}
		log.Printf("discarding quiz state: %v", err)
	} else {
		log.Printf("discarding quiz state: %v", err)
	}
	if err := s.repo.Delete(ctx, QuizStateKey); err != nil {
		log.Printf("delete malformed quiz state: %v", err)
	}
}

// Snapshot returns a deep copy of the current session.
func (s *QuizStore) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Clone()
}

// SessionID returns the identity of the installed session, empty when none.
func (s *QuizStore) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.ID
}

// SetQuestions starts a brand-new session, discarding whatever was installed.
func (s *QuizStore) SetQuestions(questions []domain.Question) error {
	if len(questions) == 0 {
		return domain.ErrNoQuestions
	}
	return s.mutate(func(sess *domain.Session) error {
		next := domain.Session{
			ID:               s.newID(),
			Questions:        make([]domain.Question, len(questions)),
			Answers:          make([]*string, len(questions)),
			TimeRemaining:    s.duration,
			HasActiveSession: true,
		}
		copy(next.Questions, questions)
		*sess = next.Clone()
		return nil
	})
}

// AnswerQuestion records answer for the current question without advancing.
func (s *QuizStore) AnswerQuestion(answer string) (domain.AnswerResult, error) {
	var result domain.AnswerResult
	err := s.mutate(func(sess *domain.Session) error {
		if sess.State() != domain.StateActive || sess.CurrentIndex >= len(sess.Questions) {
			log.Printf("answer ignored: session %s at %d/%d", sess.State(), sess.CurrentIndex, len(sess.Questions))
			return domain.ErrInvalidTransition
		}
		i := sess.CurrentIndex
		value := answer
		sess.Answers[i] = &value
		// Recount rather than increment so re-answering an index stays consistent.
		sess.Score = sess.CountCorrect()

		q := sess.Questions[i]
		result = domain.AnswerResult{
			Index:         i,
			Answer:        answer,
			Correct:       answer == q.CorrectAnswer,
			CorrectAnswer: q.CorrectAnswer,
			Score:         sess.Score,
		}
		return nil
	})
	return result, err
}

// NextQuestion advances by one, finishing the session on the last question.
func (s *QuizStore) NextQuestion() error {
	return s.mutate(nextQuestion)
}

// AdvanceFrom advances only while session id still sits on index. It backs
// the deferred transition after an answer.
func (s *QuizStore) AdvanceFrom(id string, index int) error {
	return s.mutate(func(sess *domain.Session) error {
		if sess.ID != id {
			return domain.ErrStaleSession
		}
		if sess.State() == domain.StateFinished {
			return errUnchanged
		}
		if sess.CurrentIndex != index {
			return domain.ErrStaleSession
		}
		return nextQuestion(sess)
	})
}

func nextQuestion(sess *domain.Session) error {
	switch sess.State() {
	case domain.StateFinished:
		return errUnchanged
	case domain.StateEmpty:
		return domain.ErrInvalidTransition
	}
	if sess.CurrentIndex >= len(sess.Questions)-1 {
		finish(sess)
		return nil
	}
	sess.CurrentIndex++
	return nil
}

// UpdateTimeRemaining stores the authoritative countdown; zero finishes the session.
func (s *QuizStore) UpdateTimeRemaining(seconds int) error {
	return s.mutate(func(sess *domain.Session) error {
		return updateTime(sess, seconds)
	})
}

// SyncTime is UpdateTimeRemaining scoped to session id.
func (s *QuizStore) SyncTime(id string, seconds int) error {
	return s.mutate(func(sess *domain.Session) error {
		if sess.ID != id {
			return domain.ErrStaleSession
		}
		return updateTime(sess, seconds)
	})
}

func updateTime(sess *domain.Session, seconds int) error {
	switch sess.State() {
	case domain.StateFinished:
		return errUnchanged
	case domain.StateEmpty:
		return domain.ErrInvalidTransition
	}
	if seconds < 0 {
		seconds = 0
	}
	if seconds > sess.TimeRemaining {
		log.Printf("time update ignored: %d above remaining %d", seconds, sess.TimeRemaining)
		return domain.ErrInvalidTransition
	}
	if seconds == sess.TimeRemaining && seconds > 0 {
		return errUnchanged
	}
	sess.TimeRemaining = seconds
	if seconds == 0 {
		finish(sess)
	}
	return nil
}

// FinishQuiz terminates the session regardless of index or time.
func (s *QuizStore) FinishQuiz() error {
	return s.mutate(func(sess *domain.Session) error {
		if sess.IsFinished {
			return errUnchanged
		}
		finish(sess)
		return nil
	})
}

// Expire is FinishQuiz scoped to session id.
func (s *QuizStore) Expire(id string) error {
	return s.mutate(func(sess *domain.Session) error {
		if sess.ID != id {
			return domain.ErrStaleSession
		}
		if sess.IsFinished {
			return errUnchanged
		}
		finish(sess)
		return nil
	})
}

func finish(sess *domain.Session) {
	sess.IsFinished = true
	sess.HasActiveSession = false
}

// ResetQuiz restores the empty initial session.
func (s *QuizStore) ResetQuiz() error {
	return s.mutate(func(sess *domain.Session) error {
		*sess = s.emptySession()
		return nil
	})
}

func (s *QuizStore) emptySession() domain.Session {
	sess := domain.EmptySession()
	sess.TimeRemaining = s.duration
	return sess
}

// Subscribe returns a channel that receives a snapshot after every mutation.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizStore) Subscribe() (<-chan domain.Session, func()) {
	ch := make(chan domain.Session, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.session.Clone()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// mutate applies fn under the lock, then persists and broadcasts the result.
// fn must validate before it writes so a returned error leaves the session untouched.
func (s *QuizStore) mutate(fn func(*domain.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(&s.session); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	s.persistLocked()
	s.broadcastLocked()
	return nil
}

func (s *QuizStore) persistLocked() {
	if s.repo == nil {
		return
	}
	data, err := encodeRecord(QuizStateVersion, s.session)
	if err != nil {
		log.Printf("encode quiz state: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()
	if err := s.repo.Save(ctx, QuizStateKey, data); err != nil {
		log.Printf("persist quiz state: %v", err)
	}
}

func (s *QuizStore) broadcastLocked() {
	snap := s.session.Clone()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest pending snapshot so a slow reader never blocks a mutation.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
