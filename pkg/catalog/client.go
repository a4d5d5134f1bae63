// Package catalog is the HTTP client for the external catalog/streaming
// service: track metadata, lyric text, audio stream and cover URLs, and
// search. The service is consumed, never owned.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "catalog").Logger()

// Track is the catalog's track metadata.
type Track struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album"`
	Duration float64 `json:"duration"`
}

// Client talks to one catalog instance.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	requestTimeout time.Duration
	maxRetries     int
}

func NewClient(baseURL string) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		baseURL:        strings.TrimRight(baseURL, "/"),
		requestTimeout: 5 * time.Second,
		maxRetries:     3,
	}
}

// GetTrack fetches metadata for a track ID.
func (c *Client) GetTrack(ctx context.Context, id string) (Track, error) {
	var track Track
	body, status, err := c.get(ctx, fmt.Sprintf("%s/track/%s", c.baseURL, url.PathEscape(id)))
	if err != nil {
		return track, err
	}
	if status == http.StatusNotFound {
		return track, fmt.Errorf("track %s not found", id)
	}
	if err := json.Unmarshal(body, &track); err != nil {
		return track, fmt.Errorf("failed to decode track response: %w", err)
	}
	return track, nil
}

// GetLyrics fetches raw lyric text for a track ID. A 404 means the track
// simply has no lyrics; that is returned as empty text without an error.
func (c *Client) GetLyrics(ctx context.Context, id string) (string, error) {
	body, status, err := c.get(ctx, fmt.Sprintf("%s/track/%s/lyrics", c.baseURL, url.PathEscape(id)))
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		logger.Info().Str("track_id", id).Msg("No lyrics in catalog")
		return "", nil
	}
	return string(body), nil
}

// Search returns track IDs matching the query.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	body, status, err := c.get(ctx, fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(query)))
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return ids, nil
}

// StreamURL builds the audio stream URL for a track.
func (c *Client) StreamURL(id string) string {
	return fmt.Sprintf("%s/track/%s/stream", c.baseURL, url.PathEscape(id))
}

// CoverURL builds the cover image URL for a track at the given size.
func (c *Client) CoverURL(id string, size int) string {
	return fmt.Sprintf("%s/track/%s/cover/%d", c.baseURL, url.PathEscape(id), size)
}

// DownloadURL builds the download URL for a track.
func (c *Client) DownloadURL(id string) string {
	return fmt.Sprintf("%s/track/%s/download", c.baseURL, url.PathEscape(id))
}

// get performs a GET with retries on transport errors and 5xx responses.
// 404 is a meaningful answer here, never retried.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Info().Int("attempt", attempt).Int("max", c.maxRetries).Str("url", rawURL).Msg("Retrying request")
			select {
			case <-timeoutCtx.Done():
				return nil, 0, timeoutCtx.Err()
			case <-time.After(time.Duration(attempt*500) * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", "lyricd/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Request failed")
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("Server error")
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return body, resp.StatusCode, nil
	}

	return nil, 0, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
