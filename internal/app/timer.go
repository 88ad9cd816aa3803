package app

import (
	"sync"
	"time"
)

// TickerFunc starts a periodic ticker; stop releases it.
type TickerFunc func(d time.Duration) (ticks <-chan time.Time, stop func())

func systemTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Timer drives the one-second quiz countdown independently of the QuizStore.
// It owns the live value; the store only receives it through the tick callback.
//
// At most one countdown task runs at a time. Each task carries a generation
// number, and a task whose generation is no longer current exits without
// touching the countdown.
type Timer struct {
	interval  time.Duration
	newTicker TickerFunc

	subMu       sync.Mutex
	subscribers map[chan int]struct{}
	published   bool
	last        int

	mu        sync.Mutex
	key       string
	remaining int
	ticked    bool
	active    bool
	expired   bool
	onExpire  func()
	onTick    func(int)
	gen       uint64
	stop      chan struct{}
	done      chan struct{}
}

// TimerOption customizes a Timer.
type TimerOption func(*Timer)

// WithTicker replaces the system ticker, letting tests drive ticks by hand.
func WithTicker(fn TickerFunc) TimerOption {
	return func(t *Timer) { t.newTicker = fn }
}

// WithInterval changes the tick period.
func WithInterval(d time.Duration) TimerOption {
	return func(t *Timer) { t.interval = d }
}

func NewTimer(opts ...TimerOption) *Timer {
	t := &Timer{
		interval:    time.Second,
		newTicker:   systemTicker,
		subscribers: make(map[chan int]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start installs the callbacks, reconciles initialSeconds with the live
// countdown and applies active. It is safe to call repeatedly with the same
// arguments and returns the displayed value.
//
// A key different from the current one (a new session) reseeds the countdown
// and re-arms onExpire. For the same key the countdown only moves up when
// initialSeconds is strictly greater and the countdown has not ticked yet.
func (t *Timer) Start(key string, initialSeconds int, active bool, onExpire func(), onTick func(int)) int {
	t.mu.Lock()
	t.onExpire = onExpire
	t.onTick = onTick
	reseeded := t.reconcileLocked(key, initialSeconds)
	t.setActiveLocked(active, reseeded)
	remaining := t.remaining
	t.mu.Unlock()

	t.publish(remaining)
	return remaining
}

func (t *Timer) reconcileLocked(key string, seconds int) bool {
	if seconds < 0 {
		seconds = 0
	}
	if key != t.key {
		t.key = key
		t.remaining = seconds
		t.ticked = false
		t.expired = false
		return true
	}
	if seconds > t.remaining && !t.ticked {
		t.remaining = seconds
		t.expired = false
	}
	return false
}

// SetActive suspends or resumes the countdown without touching its value.
func (t *Timer) SetActive(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setActiveLocked(active, false)
}

func (t *Timer) setActiveLocked(active, restart bool) {
	t.active = active
	running := t.stop != nil
	switch {
	case !active || t.expired:
		t.cancelLocked()
	case !running || restart:
		t.cancelLocked()
		t.launchLocked()
	}
}

func (t *Timer) launchLocked() {
	t.gen++
	gen := t.gen
	stop := make(chan struct{})
	done := make(chan struct{})
	t.stop, t.done = stop, done

	ticks, release := t.newTicker(t.interval)
	go t.run(gen, ticks, release, stop, done)
}

func (t *Timer) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.gen++
}

func (t *Timer) run(gen uint64, ticks <-chan time.Time, release func(), stop <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer release()
	for {
		select {
		case <-stop:
			return
		case <-ticks:
			if !t.tick(gen) {
				return
			}
		}
	}
}

// tick decrements once and reports whether the task should keep running.
func (t *Timer) tick(gen uint64) bool {
	t.mu.Lock()
	if gen != t.gen || !t.active || t.expired {
		t.mu.Unlock()
		return false
	}
	decremented := false
	if t.remaining > 0 {
		t.remaining--
		t.ticked = true
		decremented = true
	}
	value := t.remaining
	expire := value == 0
	if expire {
		t.expired = true
		t.stop = nil
	}
	onTick, onExpire := t.onTick, t.onExpire
	t.mu.Unlock()

	if decremented {
		t.publish(value)
		if onTick != nil {
			onTick(value)
		}
	}
	if expire && onExpire != nil {
		onExpire()
	}
	return !expire
}

// Remaining returns the live countdown value.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// RemainingFor returns the live value if the countdown belongs to key.
func (t *Timer) RemainingFor(key string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining, key == t.key
}

// Active reports whether the countdown is currently decrementing.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active && !t.expired
}

// Subscribe returns a channel of displayed values, starting with the last
// one shown. Each subscriber buffers only its latest value, so a slow reader skips
// stale seconds without holding back the others. The caller must invoke the
// returned cancel function to avoid leaks.
func (t *Timer) Subscribe() (<-chan int, func()) {
	ch := make(chan int, 1)

	t.subMu.Lock()
	initial := t.last
	if !t.published {
		initial = t.Remaining()
	}
	ch <- initial
	t.subscribers[ch] = struct{}{}
	t.subMu.Unlock()

	cancel := func() {
		t.subMu.Lock()
		if _, ok := t.subscribers[ch]; ok {
			delete(t.subscribers, ch)
			close(ch)
		}
		t.subMu.Unlock()
	}
	return ch, cancel
}

// publish fans v out to subscribers, skipping repeats of the last value.
func (t *Timer) publish(v int) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	if t.published && v == t.last {
		return
	}
	t.published, t.last = true, v
	for ch := range t.subscribers {
		select {
		case ch <- v:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Flush pushes the live value through the tick callback once. It is the
// final synchronization before the process goes away.
func (t *Timer) Flush() {
	t.mu.Lock()
	if !t.active || t.expired || t.onTick == nil {
		t.mu.Unlock()
		return
	}
	value, onTick := t.remaining, t.onTick
	t.mu.Unlock()
	onTick(value)
}

// Stop cancels the countdown task and waits for it to exit.
// It must not be called from a timer callback.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.active = false
	t.cancelLocked()
	done := t.done
	t.mu.Unlock()
	if done != nil {
		<-done
	}
}
