// Package player reads the system media player through playerctl. It is
// the only place that touches the external playback primitive, and it only
// ever reads from it.
package player

import (
	"os/exec"
	"strconv"
	"strings"
)

// Player samples track identity and the playback clock via playerctl.
// The zero value is ready to use.
type Player struct{}

func New() *Player { return &Player{} }

// CurrentTrack returns the identity of the playing track. The mpris
// trackid is stable across metadata refreshes, which makes it a safe key
// for change detection and stale-fetch guarding.
func (p *Player) CurrentTrack() (string, error) {
	out, err := exec.Command("playerctl", "metadata", "mpris:trackid").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// TrackTitle returns "artist - title" for display and fallback search.
func (p *Player) TrackTitle() (string, error) {
	out, err := exec.Command("playerctl", "metadata", "--format", `{{artist}} - {{title}}`).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Position implements clock.Source.
func (p *Player) Position() float64 {
	out, err := exec.Command("playerctl", "position").Output()
	if err != nil {
		return 0
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0
	}
	return seconds
}

// Duration implements clock.Source. mpris:length is in microseconds and
// only present once the player knows the media metadata.
func (p *Player) Duration() (float64, bool) {
	out, err := exec.Command("playerctl", "metadata", "mpris:length").Output()
	if err != nil {
		return 0, false
	}
	micros, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || micros <= 0 {
		return 0, false
	}
	return micros / 1e6, true
}
