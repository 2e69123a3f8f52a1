// Package slack is a minimal Slack Web API client covering the surface the
// archiver needs: conversation listing/joining, history and thread reads,
// user and emoji lookup, and authenticated file downloads.
//
// Every call is serialized behind a single rate limiter so the external
// budget holds no matter how many callers share the client. Throttling
// responses are retried internally and never surface to callers.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hmuro/slack-archiver/internal/platform/observability"
)

const (
	defaultMinInterval  = time.Second
	defaultJoinCooldown = 1500 * time.Millisecond
	defaultTimeout      = 30 * time.Second

	// Fallback wait when a throttling response carries no Retry-After.
	rateLimitBackoff = 5 * time.Second

	maxRateLimitRetries = 10
)

type Options struct {
	BaseURL      string
	MinInterval  time.Duration
	JoinCooldown time.Duration
	Timeout      time.Duration
}

type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	limiter      *rate.Limiter
	joinCooldown time.Duration
	logger       *zerolog.Logger
}

func New(token string, opts Options, logger *zerolog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://slack.com/api"
	}

	if opts.MinInterval <= 0 {
		opts.MinInterval = defaultMinInterval
	}

	if opts.JoinCooldown <= 0 {
		opts.JoinCooldown = defaultJoinCooldown
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	l := logger.With().Str("component", "slack").Logger()

	return &Client{
		httpClient:   &http.Client{Timeout: opts.Timeout},
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		token:        token,
		limiter:      rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		joinCooldown: opts.JoinCooldown,
		logger:       &l,
	}
}

// envelope is implemented by all response types so callAPI can inspect the
// ok/error fields after decoding.
type envelope interface {
	ok() bool
	errorCode() string
}

func (e *apiEnvelope) ok() bool          { return e.OK }
func (e *apiEnvelope) errorCode() string { return e.Error }

// callAPI performs one Web API method call, waiting on the shared limiter
// first. A throttling response backs off (honoring Retry-After when sent)
// and retries the same call; any other non-ok response returns *APIError.
func (c *Client) callAPI(ctx context.Context, method string, params url.Values, out envelope) error {
	for attempt := 0; attempt <= maxRateLimitRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		throttled, retryAfter, err := c.doCall(ctx, method, params, out)
		if err != nil {
			observability.APIRequests.WithLabelValues(method, "error").Inc()
			return err
		}

		if !throttled {
			if out.ok() {
				observability.APIRequests.WithLabelValues(method, "ok").Inc()
				return nil
			}

			code := out.errorCode()
			if !isRateLimited(code) {
				observability.APIRequests.WithLabelValues(method, code).Inc()
				return &APIError{Method: method, Code: code}
			}
		}

		observability.APIRetries.WithLabelValues(method).Inc()
		c.logger.Warn().Str("method", method).Dur("wait", retryAfter).Msg("rate limited, backing off")

		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limit backoff: %w", ctx.Err())
		case <-time.After(retryAfter):
		}
	}

	return &APIError{Method: method, Code: CodeRateLimited}
}

// doCall executes a single HTTP round trip. An HTTP 429 is reported as
// throttled without decoding; the returned duration is the backoff to apply
// before retrying (Retry-After when the server sent one).
func (c *Client) doCall(ctx context.Context, method string, params url.Values, out envelope) (bool, time.Duration, error) {
	endpoint := c.baseURL + "/" + method

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return false, 0, fmt.Errorf("create request %s: %w", method, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, 0, fmt.Errorf("execute %s: %w", method, err)
	}
	defer resp.Body.Close()

	retryAfter := rateLimitBackoff
	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, parseErr := strconv.Atoi(header); parseErr == nil && secs >= 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return true, retryAfter, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, 0, fmt.Errorf("decode %s response: %w", method, err)
	}

	return false, retryAfter, nil
}
