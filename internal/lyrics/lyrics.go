package lyrics

import (
	"bufio"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Line is one lyric line and the playback offset at which it becomes active.
type Line struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
}

var tagRe = regexp.MustCompile(`\[(\d{1,2}):(\d{2})(?:\.(\d{1,3}))?\]`)

// Parse converts raw LRC text into lines sorted by time. Text without any
// time tag is treated as plain lyrics: every non-blank line at time 0, in
// file order. Malformed input degrades to an empty slice, never an error.
func Parse(raw string) []Line {
	var result []Line

	if !tagRe.MatchString(raw) {
		scanner := bufio.NewScanner(strings.NewReader(raw))
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text != "" {
				result = append(result, Line{Time: 0, Text: text})
			}
		}
		return result
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		matches := tagRe.FindAllStringSubmatch(line, -1)
		if len(matches) == 0 {
			// No tag on this line: metadata like [ar:Artist], dropped.
			continue
		}
		text := strings.TrimSpace(tagRe.ReplaceAllString(line, ""))
		if text == "" {
			continue
		}
		// A line may carry several tags (karaoke duplicate timing); each
		// tag yields an entry sharing the same text.
		for _, match := range matches {
			min, _ := strconv.Atoi(match[1])
			sec, _ := strconv.Atoi(match[2])
			ms := 0
			if match[3] != "" {
				msStr := match[3]
				ms, _ = strconv.Atoi(msStr)
				// Fractional digits are right-padded to milliseconds.
				switch len(msStr) {
				case 1:
					ms *= 100
				case 2:
					ms *= 10
				}
			}
			timestamp := float64(min*60+sec) + float64(ms)/1000
			result = append(result, Line{Time: timestamp, Text: text})
		}
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Time < result[j].Time })
	return result
}

// Encode renders lines back to LRC text, one [mm:ss.fff] tag per line.
func Encode(lines []Line) string {
	var b strings.Builder
	for _, l := range lines {
		total := int(math.Round(l.Time * 1000))
		fmt.Fprintf(&b, "[%02d:%02d.%03d]%s\n", total/60000, (total/1000)%60, total%1000, l.Text)
	}
	return b.String()
}

// Synchronized reports whether the track carries usable timing. Mixed
// tracks count: any line with a non-zero timestamp is enough.
func Synchronized(lines []Line) bool {
	for _, l := range lines {
		if l.Time > 0 {
			return true
		}
	}
	return false
}

// ActiveIndex returns the index of the last line whose time does not exceed
// t, or -1 when there is none. A line stays active until the next one
// begins; it has no duration of its own.
func ActiveIndex(lines []Line, t float64) int {
	if len(lines) == 0 {
		return -1
	}
	if t < lines[0].Time {
		return -1
	}

	left, right := 0, len(lines)-1
	result := -1
	for left <= right {
		mid := (left + right) / 2
		if lines[mid].Time <= t {
			result = mid
			left = mid + 1
		} else {
			right = mid - 1
		}
	}
	return result
}
