package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/etbur/eschool-portal/pkg/config"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
	"github.com/etbur/eschool-portal/pkg/middleware/requestid"
)

const (
	teacherScope = "/teacher-self"
	utilsScope   = "/teacher-utils"
)

// CredentialSource yields the bearer token attached to each call.
type CredentialSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Refresher obtains a new access token after the API answered 401.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Recorder observes every request sent to the school API.
type Recorder interface {
	ObserveAPIRequest(method, endpoint string, status int, duration time.Duration)
}

// Client talks to the school REST API on behalf of the signed-in teacher.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	refresher  Refresher
	validate   *validator.Validate
	logger     *zap.Logger
	recorder   Recorder
}

// New builds a Client for cfg.BaseURL. A zero cfg.Timeout leaves requests unbounded.
func New(cfg config.APIConfig, creds CredentialSource, refresher Refresher, logger *zap.Logger, recorder Recorder) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.ResolveBaseURL(cfg.Host, "")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		creds:      creds,
		refresher:  refresher,
		validate:   validator.New(),
		logger:     logger,
		recorder:   recorder,
	}
}

// WithHTTPClient swaps the transport, used by tests against httptest servers.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// BaseURL returns the API root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type call struct {
	method   string
	scope    string
	endpoint string
	query    url.Values
	payload  interface{}
}

// do runs one authenticated call. A 401 triggers exactly one refresh and one retry; when the
// refresh fails the original 401 error is returned.
func (c *Client) do(ctx context.Context, req call) ([]byte, error) {
	token, err := c.creds.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var body []byte
	if req.payload != nil {
		if body, err = json.Marshal(req.payload); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
		}
	}

	status, data, err := c.attempt(ctx, req, body, token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && c.refresher != nil {
		original := statusError(status, data)
		c.logger.Debug("access token rejected, refreshing", zap.String("endpoint", req.endpoint))

		fresh, refreshErr := c.refresher.Refresh(ctx)
		if refreshErr != nil {
			c.logger.Warn("token refresh failed", zap.String("endpoint", req.endpoint), zap.Error(refreshErr))
			return nil, original
		}
		if status, data, err = c.attempt(ctx, req, body, fresh); err != nil {
			return nil, err
		}
	}

	if status < 200 || status > 299 {
		return nil, statusError(status, data)
	}
	return data, nil
}

func (c *Client) attempt(ctx context.Context, req call, body []byte, token string) (int, []byte, error) {
	target := c.baseURL + req.scope + "/" + strings.TrimLeft(req.endpoint, "/")
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, reader)
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set(requestid.Header, requestid.FromContext(ctx))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(req, 0, start)
		c.logger.Debug("school api request failed", zap.String("method", req.method), zap.String("endpoint", req.endpoint), zap.Error(err))
		return 0, nil, appErrors.Network(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.observe(req, resp.StatusCode, start)
	if err != nil {
		return 0, nil, appErrors.Network(err)
	}

	c.logger.Debug("school api request",
		zap.String("method", req.method),
		zap.String("endpoint", req.endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return resp.StatusCode, data, nil
}

func (c *Client) observe(req call, status int, start time.Time) {
	if c.recorder != nil {
		c.recorder.ObserveAPIRequest(req.method, req.scope+"/"+strings.TrimLeft(req.endpoint, "/"), status, time.Since(start))
	}
}

// statusError maps a non-2xx response onto an application error, preferring the server's message.
func statusError(status int, body []byte) *appErrors.Error {
	return appErrors.FromStatus(status, serverMessage(body))
}

func serverMessage(body []byte) string {
	var fields map[string]interface{}
	if len(body) == 0 || json.Unmarshal(body, &fields) != nil {
		return ""
	}
	for _, key := range []string{"message", "error", "detail"} {
		if msg, ok := fields[key].(string); ok && msg != "" {
			return msg
		}
	}
	return ""
}

func (c *Client) getJSON(ctx context.Context, scope, endpoint string, query url.Values, out interface{}) error {
	data, err := c.do(ctx, call{method: http.MethodGet, scope: scope, endpoint: endpoint, query: query})
	if err != nil {
		return err
	}
	return decode(data, out)
}

func (c *Client) sendJSON(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	data, err := c.do(ctx, call{method: method, scope: teacherScope, endpoint: endpoint, payload: payload})
	if err != nil {
		return err
	}
	return decode(data, out)
}

func (c *Client) getBlob(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	return c.do(ctx, call{method: http.MethodGet, scope: teacherScope, endpoint: endpoint, query: query})
}

func decode(data []byte, out interface{}) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return appErrors.Wrap(err, appErrors.ErrHTTP.Code, appErrors.ErrHTTP.Status, fmt.Sprintf("invalid response body: %v", err))
	}
	return nil
}

func (c *Client) check(payload interface{}) error {
	if err := c.validate.Struct(payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return nil
}
