// Package source fetches lyric text for a track from an ordered list of
// providers, falling through on failure.
package source

import (
	"context"

	"lyricd/pkg/catalog"
)

// Source is one place lyric text can come from. Returning empty text with
// a nil error means this source has no lyrics for the track; an error means
// it could not answer. Either way the next source is tried.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// FetchLyrics returns raw LRC or plain lyric text for a track.
	FetchLyrics(ctx context.Context, track catalog.Track) (string, error)
}
