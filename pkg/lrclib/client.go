// Package lrclib queries the public lrclib.net lyric library. It serves as
// the fallback source when the catalog carries no lyrics for a track.
package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "lrclib").Logger()

const DefaultBaseURL = "https://lrclib.net/api"

// Result is one lrclib search hit.
type Result struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	requestTimeout time.Duration
	maxRetries     int
}

func NewClient() *Client {
	return NewClientWithBaseURL(DefaultBaseURL)
}

func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		baseURL:        strings.TrimRight(baseURL, "/"),
		requestTimeout: 5 * time.Second,
		maxRetries:     3,
	}
}

// Search finds lyrics for a title/artist pair, preferring synced lyrics
// and the candidate whose duration is closest to target (seconds, 0 to
// skip the duration filter). An empty result without an error is a clean
// miss.
func (c *Client) Search(ctx context.Context, title, artist string, duration float64) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artist)
	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	var resp *http.Response
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Info().Int("attempt", attempt).Int("max", c.maxRetries).Msg("Retrying search")
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
		}

		req, reqErr := http.NewRequestWithContext(timeoutCtx, http.MethodGet, searchURL, nil)
		if reqErr != nil {
			return "", fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header.Set("User-Agent", "lyricd/1.0")

		resp, err = c.httpClient.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			break
		}
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Search request failed")
		} else {
			logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("Search returned bad status")
			resp.Body.Close()
		}
		if attempt == c.maxRetries {
			if err != nil {
				return "", fmt.Errorf("search failed after %d attempts: %w", attempt+1, err)
			}
			return "", fmt.Errorf("search failed after %d attempts with status %d", attempt+1, resp.StatusCode)
		}
	}
	defer resp.Body.Close()

	var results []Result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}
	logger.Info().Int("results", len(results)).Str("title", title).Str("artist", artist).Msg("Search done")

	if len(results) == 0 {
		return "", nil
	}

	best := bestMatch(results, title, artist, duration)
	if best.SyncedLyrics != "" {
		return best.SyncedLyrics, nil
	}
	if best.PlainLyrics != "" {
		return best.PlainLyrics, nil
	}
	return "", nil
}

// bestMatch narrows candidates by title+artist containment, then title
// alone, then picks the closest duration when a target is given.
func bestMatch(results []Result, title, artist string, duration float64) *Result {
	var exact, titleOnly []*Result
	for i := range results {
		r := &results[i]
		switch {
		case containsIgnoreCase(r.TrackName, title) && containsIgnoreCase(r.ArtistName, artist):
			exact = append(exact, r)
		case containsIgnoreCase(r.TrackName, title):
			titleOnly = append(titleOnly, r)
		}
	}

	pool := exact
	if len(pool) == 0 {
		pool = titleOnly
	}
	if len(pool) == 0 {
		pool = make([]*Result, len(results))
		for i := range results {
			pool[i] = &results[i]
		}
	}

	if duration <= 0 {
		return pool[0]
	}

	const maxDurationDiff = 3.0
	best := pool[0]
	minDiff := absFloat(best.Duration - duration)
	for _, r := range pool {
		diff := absFloat(r.Duration - duration)
		if diff <= maxDurationDiff {
			return r
		}
		if diff < minDiff {
			minDiff = diff
			best = r
		}
	}
	return best
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func containsIgnoreCase(s, substr string) bool {
	a := strings.ReplaceAll(strings.ToLower(s), " ", "")
	b := strings.ReplaceAll(strings.ToLower(substr), " ", "")
	return strings.Contains(a, b) || strings.Contains(b, a)
}
