package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"lyricd/internal/display"
	"lyricd/internal/lyrics"
)

// Daemon-level frame states, on top of the display window's own states.
const (
	stateIdle    = "idle"    // no media player, or nothing playing
	stateLoading = "loading" // lyrics fetch in flight
)

// Frame is what consumers receive: the display selection plus track
// identity, serialized as one JSON object.
type Frame struct {
	Track   string       `json:"track,omitempty"`
	Title   string       `json:"title,omitempty"`
	State   string       `json:"state"`
	Past    *lyrics.Line `json:"past,omitempty"`
	Current *lyrics.Line `json:"current,omitempty"`
	Next    *lyrics.Line `json:"next,omitempty"`
	Gap     *lyrics.Gap  `json:"gap,omitempty"`
}

func frameFromSelection(trackID, title string, sel display.Selection) Frame {
	return Frame{
		Track:   trackID,
		Title:   title,
		State:   string(sel.State),
		Past:    sel.Past,
		Current: sel.Current,
		Next:    sel.Next,
		Gap:     sel.Gap,
	}
}

func (f Frame) encode() []byte {
	data, err := json.Marshal(f)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode frame")
		return []byte(`{}`)
	}
	return data
}
