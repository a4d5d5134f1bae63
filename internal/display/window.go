// Package display decides, for a playback position, which lyric lines to
// render: a fixed three-line window (past, current, next) plus an optional
// gap indicator shown during long silences.
package display

import (
	"math"

	"github.com/rs/zerolog/log"

	"lyricd/internal/lyrics"
)

// State classifies what the window is showing at a given tick.
type State string

const (
	// StateNoLyrics means the track has no lyric lines at all; renderers
	// show an explicit placeholder. A normal condition, not a fault.
	StateNoLyrics State = "no_lyrics"
	// StateUnsynchronized means no line carries timing; the first lines
	// are shown for the whole track.
	StateUnsynchronized State = "unsynchronized"
	// StateBeforeFirst means playback has not reached the first timestamp.
	StateBeforeFirst State = "before_first"
	// StateActive means a lyric line is currently active.
	StateActive State = "active"
	// StateInGap means no lyric is active and playback sits inside a
	// detected silence.
	StateInGap State = "in_gap"
)

// Selection is the outcome of one tick: which lines occupy the three
// window slots and whether a gap indicator replaces the current line.
// At most one of Current and Gap is non-nil.
type Selection struct {
	State   State        `json:"state"`
	Past    *lyrics.Line `json:"past,omitempty"`
	Current *lyrics.Line `json:"current,omitempty"`
	Next    *lyrics.Line `json:"next,omitempty"`
	Gap     *lyrics.Gap  `json:"gap,omitempty"`
}

// Equal reports whether two selections would render identically.
func (s Selection) Equal(o Selection) bool {
	if s.State != o.State {
		return false
	}
	lineEq := func(a, b *lyrics.Line) bool {
		if a == nil || b == nil {
			return a == b
		}
		return *a == *b
	}
	gapEq := func(a, b *lyrics.Gap) bool {
		if a == nil || b == nil {
			return a == b
		}
		return *a == *b
	}
	return lineEq(s.Past, o.Past) && lineEq(s.Current, o.Current) &&
		lineEq(s.Next, o.Next) && gapEq(s.Gap, o.Gap)
}

// Options carries the hysteresis thresholds of the window.
type Options struct {
	// MinDwell is how long an active line must have been shown before a
	// following silence may replace it with the gap indicator.
	MinDwell float64
	// ExitLead is how close to the next timestamp the indicator must
	// yield back to the lyrics.
	ExitLead float64
}

// DefaultOptions returns the stock hysteresis tuning.
func DefaultOptions() Options {
	return Options{MinDwell: 3.0, ExitLead: 0.5}
}

// Resolve computes the selection for playback position t. It is a pure
// function of its inputs; no history is carried between ticks.
func Resolve(lines []lyrics.Line, gaps []lyrics.Gap, t float64, opts Options) Selection {
	if len(lines) == 0 {
		return Selection{State: StateNoLyrics}
	}

	if !lyrics.Synchronized(lines) {
		sel := Selection{State: StateUnsynchronized, Current: &lines[0]}
		if len(lines) > 1 {
			sel.Next = &lines[1]
		}
		return sel
	}

	idx := lyrics.ActiveIndex(lines, t)
	if idx < 0 {
		return resolveBeforeFirst(lines, gaps, t, opts)
	}

	sel := Selection{State: StateActive, Current: &lines[idx]}
	if idx > 0 {
		sel.Past = &lines[idx-1]
	}
	if idx+1 < len(lines) {
		sel.Next = &lines[idx+1]
	}

	// Suppression into gap: once the active line has been shown for
	// MinDwell and a detected silence separates it from the next line,
	// the indicator takes the current slot until ExitLead before the
	// next timestamp.
	if sel.Next != nil {
		sinceCurrent := t - sel.Current.Time
		untilNext := sel.Next.Time - t
		for i := range gaps {
			g := gaps[i]
			if g.Start < sel.Current.Time || g.End > sel.Next.Time {
				continue
			}
			if sinceCurrent >= opts.MinDwell && untilNext >= opts.ExitLead && g.Contains(t) {
				sel.Current = nil
				sel.Gap = &gaps[i]
				break
			}
		}
	}
	return sel
}

func resolveBeforeFirst(lines []lyrics.Line, gaps []lyrics.Gap, t float64, opts Options) Selection {
	sel := Selection{State: StateBeforeFirst}
	for i := range lines {
		if lines[i].Time > 0 {
			sel.Next = &lines[i]
			break
		}
	}

	// Inside a leading silence the indicator substitutes for the empty
	// current slot, unless a timestamp is imminent or just passed.
	for i := range gaps {
		if !gaps[i].Contains(t) {
			continue
		}
		if nearTimestamp(lines, t, opts.ExitLead) {
			break
		}
		sel.State = StateInGap
		sel.Gap = &gaps[i]
		break
	}
	return sel
}

func nearTimestamp(lines []lyrics.Line, t, within float64) bool {
	for _, l := range lines {
		if l.Time > 0 && math.Abs(t-l.Time) < within {
			return true
		}
	}
	return false
}

// Window owns the lyric track and gap set for one loaded track and turns
// clock samples into selections. Methods are not safe for concurrent use;
// callers serialize access.
type Window struct {
	opts     Options
	lines    []lyrics.Line
	gaps     []lyrics.Gap
	duration float64
	hasGaps  bool
}

func NewWindow(opts Options) *Window {
	return &Window{opts: opts}
}

// Load replaces the lyric track with freshly parsed text and discards any
// previously computed gaps.
func (w *Window) Load(raw string) {
	w.lines = lyrics.Parse(raw)
	w.gaps = nil
	w.hasGaps = false
	if w.duration > 0 {
		w.computeGaps()
	}
	log.Debug().
		Int("lines", len(w.lines)).
		Bool("synchronized", lyrics.Synchronized(w.lines)).
		Msg("Lyric track loaded")
}

// SetDuration records the track duration once the media metadata is known
// and computes gaps for this load if that has not happened yet.
func (w *Window) SetDuration(d float64) {
	if d <= 0 {
		return
	}
	w.duration = d
	if !w.hasGaps {
		w.computeGaps()
	}
}

func (w *Window) computeGaps() {
	w.gaps = lyrics.DetectGaps(w.lines, w.duration)
	w.hasGaps = true
	log.Debug().Int("gaps", len(w.gaps)).Float64("duration", w.duration).Msg("Gaps computed")
}

// Tick resolves the selection for the sampled playback position.
func (w *Window) Tick(t float64) Selection {
	return Resolve(w.lines, w.gaps, t, w.opts)
}

// Lines exposes the loaded track, mainly for consumers that render full
// lyric sheets.
func (w *Window) Lines() []lyrics.Line { return w.lines }

// Gaps exposes the current gap set.
func (w *Window) Gaps() []lyrics.Gap { return w.gaps }
