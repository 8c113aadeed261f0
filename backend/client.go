package backend

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

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/emrahtokalak/supportflow/metrics"
	"github.com/emrahtokalak/supportflow/models"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// Client talks to the support API over its HTTP/JSON contract.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
	metrics    *metrics.Recorder
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request. A timeout surfaces as a TransportError.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var resp models.HealthResponse
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	var resp models.ChatResponse
	if err := c.do(ctx, "chat", http.MethodPost, "/chat", req, &resp); err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		return nil, &TransportError{Op: "chat", Err: errors.New("response carried no session_id")}
	}
	return &resp, nil
}

func (c *Client) SessionStatus(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	var resp models.SessionStatusResponse
	path := fmt.Sprintf("/session/%s/status", url.PathEscape(sessionID))
	if err := c.do(ctx, "session_status", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	lastActivity, err := parseTimestamp(resp.LastActivity)
	if err != nil {
		c.log.Debug().Err(err).Str("last_activity", resp.LastActivity).Msg("Unparseable last_activity")
	}
	return &models.SessionSnapshot{
		SessionID:        resp.SessionID,
		IsActive:         resp.IsActive,
		TurnCount:        resp.TurnCount,
		RequiresHuman:    resp.RequiresHuman,
		EscalationReason: resp.EscalationReason,
		DurationMinutes:  resp.SessionDurationMinutes,
		LastActivity:     lastActivity,
	}, nil
}

func (c *Client) Escalate(ctx context.Context, req models.EscalateRequest) (*models.EscalateResponse, error) {
	var resp models.EscalateResponse
	path := fmt.Sprintf("/session/%s/escalate", url.PathEscape(req.SessionID))
	if err := c.do(ctx, "escalate", http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SessionsRequiringHuman(ctx context.Context) (*models.PendingSessionsResponse, error) {
	var resp models.PendingSessionsResponse
	if err := c.do(ctx, "sessions_requiring_human", http.MethodGet, "/admin/sessions/requiring-human", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CleanupSessions(ctx context.Context) (*models.CleanupResponse, error) {
	var resp models.CleanupResponse
	if err := c.do(ctx, "cleanup_sessions", http.MethodPost, "/admin/cleanup-sessions", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveRequest(op, outcome(err), time.Since(start))
	}()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "marshal %s request", op)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "create %s request", op)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	requestID := uuid.New().String()
	httpReq.Header.Set("X-Request-ID", requestID)

	log := c.log.With().Str("op", op).Str("request_id", requestID).Logger()
	log.Debug().Str("method", method).Str("path", path).Msg("Backend request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: op, Err: errors.Wrap(err, "read response")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp models.ErrorResponse
		// A non-JSON error body still counts as a backend answer, just without detail.
		_ = json.Unmarshal(respBody, &errResp)
		log.Debug().Int("status", resp.StatusCode).Str("detail", errResp.Detail).Msg("Backend refused request")
		return &BackendError{Op: op, Status: resp.StatusCode, Detail: errResp.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &TransportError{Op: op, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsBackend(err):
		return "backend_error"
	default:
		return "transport_error"
	}
}

// naive ISO timestamps (no zone) are read as local time
const naiveLayout = "2006-01-02T15:04:05.999999999"

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(naiveLayout, s, time.Local)
	if err != nil {
		return time.Time{}, errors.Errorf("unrecognised timestamp %q", s)
	}
	return t, nil
}
