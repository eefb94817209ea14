// Package testutil provides shared synthetic event streams and small
// assertion helpers for tests.
package testutil

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rjdini/jaer-sub001/internal/events"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Row returns one ON event per pixel of row y from x0 to x1 inclusive,
// repeated times.
func Row(y, x0, x1, repeat int) []events.Event {
	var out []events.Event
	for r := 0; r < repeat; r++ {
		for x := x0; x <= x1; x++ {
			out = append(out, events.Event{Timestamp: int64(len(out)), X: x, Y: y, On: true})
		}
	}
	return out
}

// Line returns n events spaced evenly along the pixel segment
// (x0,y0)-(x1,y1), rounded to the nearest pixel.
func Line(x0, y0, x1, y1 float64, n int) []events.Event {
	out := make([]events.Event, 0, n)
	for i := 0; i < n; i++ {
		u := 0.0
		if n > 1 {
			u = float64(i) / float64(n-1)
		}
		out = append(out, events.Event{
			Timestamp: int64(i),
			X:         int(math.Round(x0 + u*(x1-x0))),
			Y:         int(math.Round(y0 + u*(y1-y0))),
			On:        i%2 == 0,
		})
	}
	return out
}

// Rectangle returns one event per perimeter pixel of the axis-aligned
// rectangle with corners (x0,y0) and (x1,y1).
func Rectangle(x0, y0, x1, y1 int) []events.Event {
	var out []events.Event
	add := func(x, y int) {
		out = append(out, events.Event{Timestamp: int64(len(out)), X: x, Y: y, On: true})
	}
	for x := x0; x <= x1; x++ {
		add(x, y0)
		add(x, y1)
	}
	for y := y0 + 1; y < y1; y++ {
		add(x0, y)
		add(x1, y)
	}
	return out
}

// Noise returns n uniformly scattered events on a w×h sensor.
func Noise(w, h, n int, seed int64) []events.Event {
	rng := rand.New(rand.NewSource(seed))
	out := make([]events.Event, n)
	for i := range out {
		out[i] = events.Event{Timestamp: int64(i), X: rng.Intn(w), Y: rng.Intn(h), On: rng.Intn(2) == 0}
	}
	return out
}

// Shuffle returns a deterministically shuffled copy of evs with
// timestamps renumbered in the new order.
func Shuffle(evs []events.Event, seed int64) []events.Event {
	out := append([]events.Event(nil), evs...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	for i := range out {
		out[i].Timestamp = int64(i)
	}
	return out
}
