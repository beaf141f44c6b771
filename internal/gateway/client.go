package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

// Credentials supplies the bearer token for authenticated calls and is told
// when the backend rejects it.
type Credentials interface {
	Token(ctx context.Context) string
	Teardown(ctx context.Context, reason string)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIPrefix  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// Client is a typed wrapper over the helpdesk backend's HTTP API.
type Client struct {
	baseURL    string
	apiPrefix  string
	httpClient *http.Client
	creds      Credentials
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// New builds a client. creds may be nil for anonymous use (login, signup).
func New(opts Options, creds Credentials) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		apiPrefix:  normalizePrefix(opts.APIPrefix),
		httpClient: httpClient,
		creds:      creds,
		logger:     logger.Named("gateway"),
		metrics:    opts.Metrics,
	}
}

// WithCredentials returns a copy of the client bound to other credentials.
func (c *Client) WithCredentials(creds Credentials) *Client {
	clone := *c
	clone.creds = creds
	return &clone
}

// Ping checks that the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewNetworkError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return apperrors.NewServerError(resp.StatusCode, "")
	}
	return nil
}

type request struct {
	operation   string
	method      string
	path        string
	body        io.Reader
	contentType string
	anonymous   bool
}

func (c *Client) ticketPath(path string) string {
	return c.apiPrefix + path
}

// do executes req and decodes a JSON answer into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, req, out)
	outcome := "ok"
	if err != nil {
		outcome = apperrors.ToDomainError(err).Code
		c.logger.Warn("gateway call failed",
			zap.String("operation", req.operation),
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Error(err))
	}
	c.metrics.RecordGatewayCall(req.operation, outcome, time.Since(start))
	return err
}

func (c *Client) roundTrip(ctx context.Context, req request, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, req.body)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if !req.anonymous && c.creds != nil {
		if token := c.creds.Token(ctx); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug("gateway request", zap.String("method", req.method), zap.String("path", req.path))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apperrors.NewNetworkError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewNetworkError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.creds != nil {
			c.creds.Teardown(ctx, req.operation+" rejected credentials")
		}
		return apperrors.NewUnauthorized(errorMessage(payload, "session expired, please log in again"))
	}
	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, payload)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return apperrors.NewServerError(resp.StatusCode, fmt.Sprintf("failed to decode %s response: %v", req.operation, err))
	}
	return nil
}

func statusError(status int, payload []byte) error {
	switch {
	case status >= http.StatusInternalServerError:
		return apperrors.NewServerError(status, errorMessage(payload, ""))
	case status == http.StatusForbidden:
		return apperrors.NewForbidden(errorMessage(payload, "forbidden"))
	case status == http.StatusNotFound:
		return apperrors.NewNotFound("resource", map[string]any{"detail": errorMessage(payload, "not found")})
	default:
		return apperrors.NewValidationError(errorMessage(payload, fmt.Sprintf("request rejected with status %d", status)), nil)
	}
}

// errorMessage extracts a human message from the backend's error shapes:
// {"detail": "..."}, {"detail": [{"msg": "..."}]}, {"message": "..."} and
// {"error": {"message": "..."}}.
func errorMessage(payload []byte, fallback string) string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		if text := strings.TrimSpace(string(payload)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
			return text
		}
		return fallback
	}

	if len(body.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(body.Detail, &detail); err == nil && detail != "" {
			return detail
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(body.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if body.Message != "" {
		return body.Message
	}
	if body.Error != nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return fallback
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || prefix == "/" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return strings.TrimSuffix(prefix, "/")
}
