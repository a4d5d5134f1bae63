package lyrics

import (
	"math"
	"testing"
)

func linesEqual(a, b []Line) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i].Time-b[i].Time) > 1e-9 || a[i].Text != b[i].Text {
			return false
		}
	}
	return true
}

func TestParse(t *testing.T) {
	t.Run("Synchronized", func(t *testing.T) {
		got := Parse("[00:01.00]Hello\n[00:05.00]World")
		want := []Line{{1.0, "Hello"}, {5.0, "World"}}
		if !linesEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
		if !Synchronized(got) {
			t.Error("Expected track to be classified synchronized")
		}
	})

	t.Run("PlainText", func(t *testing.T) {
		got := Parse("line one\nline two")
		want := []Line{{0, "line one"}, {0, "line two"}}
		if !linesEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
		if Synchronized(got) {
			t.Error("Expected plain text to be classified unsynchronized")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if got := Parse(""); len(got) != 0 {
			t.Errorf("Expected empty result, got %v", got)
		}
	})

	t.Run("FractionalPadding", func(t *testing.T) {
		got := Parse("[01:02.5]A\n[01:03.49]B\n[01:04.490]C")
		want := []Line{{62.5, "A"}, {63.49, "B"}, {64.49, "C"}}
		if !linesEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("SecondsOnlyTag", func(t *testing.T) {
		got := Parse("[1:02]A")
		want := []Line{{62, "A"}}
		if !linesEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("MultipleTagsOneLine", func(t *testing.T) {
		got := Parse("[00:10.00][01:10.00]Chorus")
		want := []Line{{10, "Chorus"}, {70, "Chorus"}}
		if !linesEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("MetadataDropped", func(t *testing.T) {
		got := Parse("[ar:Artist]\n[ti:Title]\n[00:01.00]Hello")
		want := []Line{{1.0, "Hello"}}
		if !linesEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("EmptyTextAfterTags", func(t *testing.T) {
		got := Parse("[00:01.00]\n[00:02.00]World")
		want := []Line{{2.0, "World"}}
		if !linesEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("SortedStable", func(t *testing.T) {
		got := Parse("[00:05.00]second\n[00:01.00]first\n[00:05.00]third")
		want := []Line{{1.0, "first"}, {5.0, "second"}, {5.0, "third"}}
		if !linesEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("MixedCountsAsSynchronized", func(t *testing.T) {
		lines := []Line{{0, "intro"}, {12.5, "verse"}}
		if !Synchronized(lines) {
			t.Error("Expected one non-zero timestamp to classify the track synchronized")
		}
	})
}

// Encoding parsed lines and parsing them back must preserve time ordering,
// stably for equal timestamps.
func TestEncodeParseRoundTrip(t *testing.T) {
	original := []Line{{1.5, "a"}, {5.0, "b"}, {5.0, "c"}, {62.49, "d"}}
	reparsed := Parse(Encode(original))
	if !linesEqual(reparsed, original) {
		t.Errorf("Round trip changed lines: expected %v, got %v", original, reparsed)
	}
}

func TestActiveIndex(t *testing.T) {
	lines := []Line{{1.0, "a"}, {5.0, "b"}, {9.0, "c"}}

	t.Run("Empty", func(t *testing.T) {
		if got := ActiveIndex(nil, 3.0); got != -1 {
			t.Errorf("Expected -1 for empty lines, got %d", got)
		}
	})

	t.Run("BeforeFirst", func(t *testing.T) {
		if got := ActiveIndex(lines, 0.5); got != -1 {
			t.Errorf("Expected -1 before first line, got %d", got)
		}
	})

	t.Run("ExactBoundary", func(t *testing.T) {
		for i, l := range lines {
			if got := ActiveIndex(lines, l.Time); got != i {
				t.Errorf("At t=%v expected index %d, got %d", l.Time, i, got)
			}
		}
	})

	t.Run("AfterLast", func(t *testing.T) {
		if got := ActiveIndex(lines, 100); got != 2 {
			t.Errorf("Expected last index 2, got %d", got)
		}
	})

	t.Run("Monotonic", func(t *testing.T) {
		prev := -1
		for tick := 0.0; tick <= 12.0; tick += 0.25 {
			idx := ActiveIndex(lines, tick)
			if idx < prev {
				t.Fatalf("Index went backwards at t=%v: %d -> %d", tick, prev, idx)
			}
			prev = idx
		}
	})
}
