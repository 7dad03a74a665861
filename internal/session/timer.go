package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults applied when a zero duration is configured.
const (
	DefaultWindow   = 5 * time.Minute
	DefaultInterval = time.Second
)

// CredentialClearer forgets the stored credentials on expiry.
type CredentialClearer interface {
	Clear(ctx context.Context) error
}

// Recorder observes timer activity.
type Recorder interface {
	ObserveSessionExpired()
	SetSessionRemaining(seconds int)
}

// Timer logs the user out after a fixed window without qualifying activity. Activity slides the
// window. Expiry clears credentials and calls the logout callback once. The callback must not
// call Stop.
type Timer struct {
	window   time.Duration
	interval time.Duration
	now      func() time.Time

	clearer  CredentialClearer
	onLogout func()
	logger   *zap.Logger
	recorder Recorder

	mu           sync.Mutex
	lastActivity time.Time
	expired      bool
	stopped      bool
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
	expiring     sync.WaitGroup
}

// NewTimer builds an idle timer; Start begins the periodic check. A nil clock uses time.Now.
func NewTimer(window, interval time.Duration, now func() time.Time, clearer CredentialClearer, onLogout func(), logger *zap.Logger, recorder Recorder) *Timer {
	if window <= 0 {
		window = DefaultWindow
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Timer{
		window:       window,
		interval:     interval,
		now:          now,
		clearer:      clearer,
		onLogout:     onLogout,
		logger:       logger,
		recorder:     recorder,
		lastActivity: now(),
	}
}

// Start resets the window and launches the periodic check.
func (t *Timer) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running || t.stopped || t.expired {
		t.mu.Unlock()
		return
	}
	t.lastActivity = t.now()
	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true
	done := t.done
	t.mu.Unlock()

	go t.loop(loopCtx, done)
}

func (t *Timer) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(done)
			return
		case <-ticker.C:
			if t.advance() {
				t.expire()
				close(done)
				return
			}
		}
	}
}

// Touch records qualifying activity and restarts the window. It has no effect after expiry or Stop.
func (t *Timer) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expired || t.stopped {
		return
	}
	t.lastActivity = t.now()
}

// Check evaluates the window against the clock and expires the session when it has elapsed.
// It reports whether the session is expired after the call.
func (t *Timer) Check() bool {
	if t.advance() {
		t.expire()
		return true
	}
	return t.Expired()
}

// advance reports true exactly once: on the check that first sees the window elapsed.
// The caller must then run expire.
func (t *Timer) advance() bool {
	t.mu.Lock()
	if t.stopped || t.expired {
		t.mu.Unlock()
		return false
	}
	remaining := t.window - t.now().Sub(t.lastActivity)
	if remaining > 0 {
		t.mu.Unlock()
		if t.recorder != nil {
			t.recorder.SetSessionRemaining(ceilSeconds(remaining))
		}
		return false
	}
	t.expired = true
	t.expiring.Add(1)
	t.mu.Unlock()
	return true
}

func (t *Timer) expire() {
	defer t.expiring.Done()
	t.logger.Info("session expired due to inactivity", zap.Duration("window", t.window))
	if t.recorder != nil {
		t.recorder.ObserveSessionExpired()
		t.recorder.SetSessionRemaining(0)
	}
	if t.clearer != nil && !t.isStopped() {
		if err := t.clearer.Clear(context.Background()); err != nil {
			t.logger.Error("failed to clear credentials on expiry", zap.Error(err))
		}
	}
	if t.onLogout != nil && !t.isStopped() {
		t.onLogout()
	}
}

func (t *Timer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Remaining returns the time left in the current window, never negative.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expired {
		return 0
	}
	remaining := t.window - t.now().Sub(t.lastActivity)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingSeconds is Remaining rounded up to whole seconds.
func (t *Timer) RemainingSeconds() int {
	return ceilSeconds(t.Remaining())
}

// Window returns the configured inactivity window.
func (t *Timer) Window() time.Duration {
	return t.window
}

// Expired reports whether the session has timed out.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// Stop cancels the periodic check and waits for it, and for any expiry already under way, to
// finish. Neither Clear nor logout runs after Stop returns.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.stopped = true
	cancel := t.cancel
	done := t.done
	t.running = false
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	t.expiring.Wait()
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
