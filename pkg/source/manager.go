package source

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"lyricd/pkg/catalog"
	"lyricd/pkg/lrclib"
)

var logger = log.With().Str("component", "source-manager").Logger()

// Manager tries sources in priority order until one of them produces
// lyric text.
type Manager struct {
	sources []Source
}

func NewManager(sources []Source) *Manager {
	if len(sources) == 0 {
		logger.Warn().Msg("No lyric sources configured")
		return &Manager{}
	}
	logger.Info().
		Int("source_count", len(sources)).
		Str("primary", sources[0].Name()).
		Msg("Lyric source manager initialized")
	return &Manager{sources: sources}
}

// FetchLyrics asks each source in turn. Empty text with a nil error means
// no source had lyrics, which is a normal outcome. An error is
// returned only when every source failed outright.
func (m *Manager) FetchLyrics(ctx context.Context, track catalog.Track) (string, error) {
	if len(m.sources) == 0 {
		return "", fmt.Errorf("no lyric sources available")
	}

	var lastErr error
	failures := 0
	for i, src := range m.sources {
		logger.Info().
			Str("source", src.Name()).
			Str("track_id", track.ID).
			Int("attempt", i+1).
			Int("total_sources", len(m.sources)).
			Msg("Trying source")

		text, err := src.FetchLyrics(ctx, track)
		if err != nil {
			logger.Warn().Str("source", src.Name()).Err(err).Msg("Source failed")
			lastErr = err
			failures++
			continue
		}
		if text == "" {
			logger.Info().Str("source", src.Name()).Msg("Source has no lyrics for this track")
			continue
		}
		logger.Info().Str("source", src.Name()).Msg("Got lyrics")
		return text, nil
	}

	if failures == len(m.sources) {
		return "", fmt.Errorf("all sources failed, last error: %w", lastErr)
	}
	return "", nil
}

// SourceNames lists the configured sources in priority order.
func (m *Manager) SourceNames() []string {
	names := make([]string, len(m.sources))
	for i, src := range m.sources {
		names[i] = src.Name()
	}
	return names
}

// CatalogSource adapts the catalog client, which looks lyrics up by the
// opaque track ID.
type CatalogSource struct {
	client *catalog.Client
}

func NewCatalogSource(client *catalog.Client) *CatalogSource {
	return &CatalogSource{client: client}
}

func (s *CatalogSource) Name() string { return "catalog" }

func (s *CatalogSource) FetchLyrics(ctx context.Context, track catalog.Track) (string, error) {
	return s.client.GetLyrics(ctx, track.ID)
}

// LRCLibSource adapts the lrclib client, which searches by title, artist
// and duration.
type LRCLibSource struct {
	client *lrclib.Client
}

func NewLRCLibSource(client *lrclib.Client) *LRCLibSource {
	return &LRCLibSource{client: client}
}

func (s *LRCLibSource) Name() string { return "lrclib" }

func (s *LRCLibSource) FetchLyrics(ctx context.Context, track catalog.Track) (string, error) {
	if track.Title == "" {
		return "", fmt.Errorf("track %s has no title to search by", track.ID)
	}
	return s.client.Search(ctx, track.Title, track.Artist, track.Duration)
}
