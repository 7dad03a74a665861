package teacher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/etbur/eschool-portal/internal/auth"
	"github.com/etbur/eschool-portal/internal/models"
	"github.com/etbur/eschool-portal/internal/session"
	"github.com/etbur/eschool-portal/internal/store"
	"github.com/etbur/eschool-portal/pkg/config"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
)

// Credentials is the credential lifecycle the runtime relies on.
type Credentials interface {
	Login(ctx context.Context, creds models.Credentials) error
	Credentials(ctx context.Context) (*models.Credentials, error)
	Clear(ctx context.Context) error
}

// Recorder is the instrumentation shared by the store and the session timer.
type Recorder interface {
	store.DispatchRecorder
	session.Recorder
}

// Runtime hosts at most one signed-in teacher: its provider and its inactivity timer.
// A new login replaces the previous session.
type Runtime struct {
	api       API
	creds     Credentials
	downloads Downloader
	cfg       config.SessionConfig
	now       func() time.Time
	logger    *zap.Logger
	recorder  Recorder

	mu       sync.Mutex
	provider *Provider
	timer    *session.Timer
}

// NewRuntime wires a runtime. recorder may be nil.
func NewRuntime(api API, creds Credentials, downloads Downloader, cfg config.SessionConfig, now func() time.Time, logger *zap.Logger, recorder Recorder) *Runtime {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{
		api:       api,
		creds:     creds,
		downloads: downloads,
		cfg:       cfg,
		now:       now,
		logger:    logger,
		recorder:  recorder,
	}
}

// Login stores creds, checks the teacher role and mounts a fresh provider.
func (r *Runtime) Login(ctx context.Context, creds models.Credentials) (*Provider, error) {
	if err := auth.RequireRole(&creds, models.RoleTeacher); err != nil {
		return nil, err
	}
	r.Logout(ctx)
	if err := r.creds.Login(ctx, creds); err != nil {
		return nil, err
	}
	return r.mount(ctx), nil
}

// Resume mounts a provider for credentials that are already stored, e.g. after a restart.
func (r *Runtime) Resume(ctx context.Context) (*Provider, error) {
	stored, err := r.creds.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireRole(stored, models.RoleTeacher); err != nil {
		return nil, err
	}
	if p, _, err := r.Current(); err == nil {
		return p, nil
	}
	return r.mount(ctx), nil
}

func (r *Runtime) mount(ctx context.Context) *Provider {
	var recorder store.DispatchRecorder
	var sessionRecorder session.Recorder
	if r.recorder != nil {
		recorder = r.recorder
		sessionRecorder = r.recorder
	}

	provider := NewProvider(r.api, r.downloads, r.now, r.logger, recorder)
	var timer *session.Timer
	timer = session.NewTimer(r.cfg.InactivityWindow, r.cfg.CheckInterval, r.now, r.creds, func() {
		r.expire(timer)
	}, r.logger, sessionRecorder)

	r.mu.Lock()
	r.provider = provider
	r.timer = timer
	r.mu.Unlock()

	timer.Start(context.WithoutCancel(ctx))
	provider.Mount(ctx)
	r.logger.Info("teacher session started", zap.Duration("inactivity_window", timer.Window()))
	return provider
}

// expire tears down the session owned by timer, unless a newer session replaced it.
func (r *Runtime) expire(timer *session.Timer) {
	r.mu.Lock()
	if r.timer != timer {
		r.mu.Unlock()
		return
	}
	provider := r.provider
	r.provider = nil
	r.timer = nil
	r.mu.Unlock()

	if provider != nil {
		provider.Unmount()
	}
	r.logger.Info("teacher session closed after inactivity")
}

// Logout ends the current session and forgets the credentials.
func (r *Runtime) Logout(ctx context.Context) {
	r.mu.Lock()
	provider, timer := r.provider, r.timer
	r.provider, r.timer = nil, nil
	r.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if provider != nil {
		provider.Unmount()
	}
	if err := r.creds.Clear(ctx); err != nil {
		r.logger.Warn("failed to clear credentials on logout", zap.Error(err))
	}
}

// Current returns the live provider and timer.
func (r *Runtime) Current() (*Provider, *session.Timer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.provider == nil || r.timer == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "no active session")
	}
	return r.provider, r.timer, nil
}

// Touch records activity on the current session, if any.
func (r *Runtime) Touch() {
	r.mu.Lock()
	timer := r.timer
	r.mu.Unlock()
	if timer != nil {
		timer.Touch()
	}
}

// Close stops the current session without clearing stored credentials.
func (r *Runtime) Close() {
	r.mu.Lock()
	provider, timer := r.provider, r.timer
	r.provider, r.timer = nil, nil
	r.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if provider != nil {
		provider.Unmount()
	}
}
