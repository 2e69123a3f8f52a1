package slack

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Download streams a private Slack asset using the bot token as bearer
// credential. Asset fetches go through the same limiter as API calls since
// they count against the same external budget. The caller must close the
// returned body.
func (c *Client) Download(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("execute download: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}
