// Package tika extracts plain text from office documents through an Apache
// Tika server (PUT /tika with Accept: text/plain).
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const maxTextBytes = 2 << 20

// Client talks to a Tika server over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// New constructs a Tika client. A zero timeout defaults to 15 seconds.
func New(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "tika").Logger(),
	}
}

// Decode sends the document to Tika and returns the extracted text.
func (c *Client) Decode(ctx context.Context, mime string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build tika request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	if mime != "" {
		req.Header.Set("Content-Type", mime)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("tika request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("tika status %d", resp.StatusCode)
	}

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxTextBytes))
	if err != nil {
		return "", fmt.Errorf("read tika response: %w", err)
	}

	c.logger.Debug().Str("mime", mime).Int("bytes", len(data)).Int("text_bytes", len(text)).Msg("document decoded")
	return string(text), nil
}
