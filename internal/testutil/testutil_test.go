package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjdini/jaer-sub001/internal/events"
)

func TestAssertHelpers(t *testing.T) {
	t.Parallel()

	AssertNoError(t, nil)
	AssertError(t, errors.New("expected"))
}

func TestRow(t *testing.T) {
	t.Parallel()

	evs := Row(8, 10, 13, 2)
	require.Len(t, evs, 8)
	assert.Equal(t, 10, evs[0].X)
	assert.Equal(t, 13, evs[7].X)
	for _, ev := range evs {
		assert.Equal(t, 8, ev.Y)
	}
}

func TestLine(t *testing.T) {
	t.Parallel()

	evs := Line(0, 0, 10, 20, 11)
	require.Len(t, evs, 11)
	assert.Equal(t, 0, evs[0].X)
	assert.Equal(t, 5, evs[5].X)
	assert.Equal(t, 10, evs[5].Y)
	assert.Equal(t, 20, evs[10].Y)
	assert.Len(t, Line(3, 3, 3, 3, 1), 1)
}

func TestRectangle(t *testing.T) {
	t.Parallel()

	evs := Rectangle(0, 0, 4, 3)
	// Perimeter of a 5×4 pixel box.
	assert.Len(t, evs, 14)
	seen := map[[2]int]bool{}
	for _, ev := range evs {
		seen[[2]int{ev.X, ev.Y}] = true
	}
	assert.Len(t, seen, 14, "no pixel repeated")
	assert.False(t, seen[[2]int{2, 1}], "interior excluded")
}

func TestNoiseAndShuffleDeterministic(t *testing.T) {
	t.Parallel()

	a, b := Noise(128, 128, 50, 1), Noise(128, 128, 50, 1)
	assert.Equal(t, a, b)
	for _, ev := range a {
		assert.True(t, ev.X >= 0 && ev.X < 128 && ev.Y >= 0 && ev.Y < 128)
	}

	s := Shuffle(a, 2)
	assert.Equal(t, s, Shuffle(a, 2))
	assert.ElementsMatch(t, positions(a), positions(s))
}

func positions(evs []events.Event) [][2]int {
	out := make([][2]int, len(evs))
	for i, ev := range evs {
		out[i] = [2]int{ev.X, ev.Y}
	}
	return out
}
