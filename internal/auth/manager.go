package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/etbur/eschool-portal/internal/models"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
)

// Refresh outcomes reported to the RefreshRecorder.
const (
	RefreshSucceeded = "success"
	RefreshFailed    = "failure"
	RefreshMissing   = "missing"
)

var (
	errNoRefreshToken = appErrors.Clone(appErrors.ErrUnauthorized, "No refresh token available")
	errRefreshExpired = appErrors.Clone(appErrors.ErrUnauthorized, "Refresh token expired")
)

// RefreshRecorder observes refresh attempts.
type RefreshRecorder interface {
	ObserveRefresh(outcome string)
}

// Manager owns the credential lifecycle: login, lookup, refresh and logout.
type Manager struct {
	store      TokenStore
	httpClient *http.Client
	refreshURL string
	logger     *zap.Logger
	recorder   RefreshRecorder
}

// NewManager wires a Manager. refreshURL is the absolute token refresh endpoint.
func NewManager(store TokenStore, httpClient *http.Client, refreshURL string, logger *zap.Logger, recorder RefreshRecorder) *Manager {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:      store,
		httpClient: httpClient,
		refreshURL: refreshURL,
		logger:     logger,
		recorder:   recorder,
	}
}

// Login stores credentials obtained from the school API login flow.
func (m *Manager) Login(ctx context.Context, creds models.Credentials) error {
	if creds.AccessToken == "" {
		return appErrors.Clone(appErrors.ErrValidation, "access token is required")
	}
	if err := m.store.Set(ctx, creds); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store credentials")
	}
	return nil
}

// Credentials returns the stored credentials.
func (m *Manager) Credentials(ctx context.Context) (*models.Credentials, error) {
	return m.store.Get(ctx)
}

// AccessToken returns the current bearer token or ErrNoCredentials.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	creds, err := m.store.Get(ctx)
	if err != nil {
		return "", err
	}
	if creds.AccessToken == "" {
		return "", appErrors.ErrNoCredentials
	}
	return creds.AccessToken, nil
}

// Authenticated reports whether an access token is stored.
func (m *Manager) Authenticated(ctx context.Context) bool {
	_, err := m.AccessToken(ctx)
	return err == nil
}

// Clear forgets every stored credential.
func (m *Manager) Clear(ctx context.Context) error {
	return m.store.Clear(ctx)
}

// Refresh exchanges the refresh token for a new access token and stores it.
// Any failure after a refresh token was found clears the stored credentials.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	creds, err := m.store.Get(ctx)
	if err != nil || creds.RefreshToken == "" {
		m.observe(RefreshMissing)
		return "", errNoRefreshToken
	}

	access, rotated, err := m.exchange(ctx, creds.RefreshToken)
	if err != nil {
		m.observe(RefreshFailed)
		m.logger.Warn("token refresh failed", zap.Error(err))
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Error("failed to clear credentials after refresh failure", zap.Error(clearErr))
		}
		return "", err
	}

	creds.AccessToken = access
	if rotated != "" {
		creds.RefreshToken = rotated
	}
	if err := m.store.Set(ctx, *creds); err != nil {
		m.observe(RefreshFailed)
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store refreshed token")
	}

	m.observe(RefreshSucceeded)
	m.logger.Debug("access token refreshed")
	return access, nil
}

func (m *Manager) exchange(ctx context.Context, refresh string) (string, string, error) {
	body, err := json.Marshal(models.RefreshRequest{Refresh: refresh})
	if err != nil {
		return "", "", fmt.Errorf("marshal refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.refreshURL, bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", "", appErrors.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", errRefreshExpired
	}

	var payload models.RefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrHTTP.Code, resp.StatusCode, "invalid refresh response")
	}
	if payload.Access == "" {
		return "", "", errors.New("refresh response carried no access token")
	}
	return payload.Access, payload.Refresh, nil
}

func (m *Manager) observe(outcome string) {
	if m.recorder != nil {
		m.recorder.ObserveRefresh(outcome)
	}
}
