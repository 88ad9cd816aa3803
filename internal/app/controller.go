package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-quiz/internal/domain"
)

// Phase is what the quiz screen should show.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseLoading  Phase = "loading"
	PhaseError    Phase = "error"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Status is a point-in-time view for the presentation layer.
type Status struct {
	Phase     Phase
	Session   domain.Session
	Remaining int
	Err       error
}

// ControllerConfig holds the session parameters.
type ControllerConfig struct {
	Amount        int
	Difficulty    domain.Difficulty
	FeedbackDelay time.Duration
}

// Scheduler runs fn after d; cancel reports whether fn was prevented from running.
type Scheduler func(d time.Duration, fn func()) (cancel func() bool)

func afterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// Controller wires the question source, the QuizStore and the Timer together.
type Controller struct {
	store    *QuizStore
	timer    *Timer
	source   QuestionSource
	cfg      ControllerConfig
	shuffler Shuffler
	gate     AuthGate
	schedule Scheduler
	sf       singleflight.Group

	mu       sync.Mutex
	loading  bool
	fetchErr error
	pending  *pendingAdvance
	closed   bool
}

type pendingAdvance struct {
	sessionID string
	index     int
	cancel    func() bool
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithShuffler sets how presented answers are ordered at ingestion.
func WithShuffler(s Shuffler) ControllerOption {
	return func(c *Controller) { c.shuffler = s }
}

// WithAuthGate refuses Start while the gate reports logged out.
func WithAuthGate(g AuthGate) ControllerOption {
	return func(c *Controller) { c.gate = g }
}

// WithScheduler replaces time.AfterFunc for the post-answer delay.
func WithScheduler(s Scheduler) ControllerOption {
	return func(c *Controller) { c.schedule = s }
}

func NewController(store *QuizStore, timer *Timer, source QuestionSource, cfg ControllerConfig, opts ...ControllerOption) *Controller {
	if cfg.Amount <= 0 {
		cfg.Amount = 10
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = domain.DifficultyMedium
	}
	c := &Controller{
		store:    store,
		timer:    timer,
		source:   source,
		cfg:      cfg,
		schedule: afterFunc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store exposes the session store for observers.
func (c *Controller) Store() *QuizStore { return c.store }

// Timer exposes the countdown for displays.
func (c *Controller) Timer() *Timer { return c.timer }

// Start resumes a persisted session or fetches questions for a new one.
func (c *Controller) Start(ctx context.Context) error {
	if c.gate != nil && !c.gate.IsLoggedIn() {
		return domain.ErrNotLoggedIn
	}
	c.mu.Lock()
	c.syncTimerLocked()
	c.mu.Unlock()
	return c.load(ctx)
}

// Retry re-runs a failed fetch. Fetches are never retried automatically.
func (c *Controller) Retry(ctx context.Context) error {
	return c.load(ctx)
}

// needsQuestions gates fetching so re-entry and resumed sessions never refetch.
func needsQuestions(s domain.Session) bool {
	return !s.HasActiveSession && len(s.Questions) == 0 && !s.IsFinished
}

func (c *Controller) load(ctx context.Context) error {
	if !needsQuestions(c.store.Snapshot()) {
		return nil
	}

	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	v, err, _ := c.sf.Do("questions", func() (interface{}, error) {
		questions, err := c.source.FetchQuestions(ctx, c.cfg.Amount, c.cfg.Difficulty)
		if err != nil {
			return nil, err
		}
		return PrepareQuestions(questions, c.shuffler)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.fetchErr = err
	if err != nil {
		log.Printf("fetch questions: %v", err)
		return err
	}
	if c.closed || !needsQuestions(c.store.Snapshot()) {
		return nil
	}
	if err := c.store.SetQuestions(v.([]domain.Question)); err != nil {
		c.fetchErr = err
		return err
	}
	c.syncTimerLocked()
	return nil
}

// Answer records answer and schedules the move to the next question after
// the feedback delay. Answering the same question again while the move is
// pending only overwrites the answer.
func (c *Controller) Answer(answer string) (domain.AnswerResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.AnswerResult{}, domain.ErrInvalidTransition
	}

	result, err := c.store.AnswerQuestion(answer)
	if err != nil {
		return result, err
	}
	id := c.store.SessionID()
	if p := c.pending; p != nil && p.sessionID == id && p.index == result.Index {
		return result, nil
	}
	c.cancelPendingLocked()

	p := &pendingAdvance{sessionID: id, index: result.Index}
	c.pending = p
	p.cancel = c.schedule(c.cfg.FeedbackDelay, func() { c.advance(p) })
	return result, nil
}

func (c *Controller) advance(p *pendingAdvance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != p {
		return
	}
	c.pending = nil
	if err := c.store.AdvanceFrom(p.sessionID, p.index); err != nil {
		log.Printf("deferred advance suppressed: %v", err)
		return
	}
	c.syncTimerLocked()
}

func (c *Controller) cancelPendingLocked() {
	if c.pending == nil {
		return
	}
	if c.pending.cancel != nil {
		c.pending.cancel()
	}
	c.pending = nil
}

// NewSession discards the current session and fetches a fresh one.
func (c *Controller) NewSession(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	c.cancelPendingLocked()
	if err := c.store.ResetQuiz(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.fetchErr = nil
	c.syncTimerLocked()
	c.mu.Unlock()
	return c.load(ctx)
}

// syncTimerLocked feeds the store snapshot into the timer. The callbacks are
// bound to the session id so a late tick never lands on a newer session.
func (c *Controller) syncTimerLocked() {
	snap := c.store.Snapshot()
	id := snap.ID
	active := snap.State() == domain.StateActive && len(snap.Questions) > 0

	c.timer.Start(id, snap.TimeRemaining, active,
		func() {
			if err := c.store.Expire(id); err != nil {
				log.Printf("timer expiry ignored: %v", err)
			}
		},
		func(seconds int) {
			if err := c.store.SyncTime(id, seconds); err != nil && !errors.Is(err, domain.ErrStaleSession) {
				log.Printf("timer sync ignored: %v", err)
			}
		},
	)
}

// Status reports the phase the presentation layer should render.
func (c *Controller) Status() Status {
	c.mu.Lock()
	loading, fetchErr := c.loading, c.fetchErr
	c.mu.Unlock()

	snap := c.store.Snapshot()
	st := Status{Session: snap, Remaining: snap.TimeRemaining, Err: fetchErr}
	if live, ok := c.timer.RemainingFor(snap.ID); ok {
		st.Remaining = live
	}
	switch {
	case snap.State() == domain.StateActive:
		st.Phase = PhasePlaying
	case snap.State() == domain.StateFinished:
		st.Phase = PhaseFinished
	case loading:
		st.Phase = PhaseLoading
	case fetchErr != nil:
		st.Phase = PhaseError
	default:
		st.Phase = PhaseIdle
	}
	return st
}

// Close suppresses the pending advance, pushes the live countdown into the
// store one last time and stops the timer.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.cancelPendingLocked()
	c.mu.Unlock()

	c.timer.Flush()
	c.timer.Stop()
}
