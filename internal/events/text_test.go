package events

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadText(t *testing.T) {
	t.Parallel()

	in := `# recorded events
100 10 20 1

105 11 21 0
110 12 22 -1
`
	got, err := ReadText(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Event{
		{Timestamp: 100, X: 10, Y: 20, On: true},
		{Timestamp: 105, X: 11, Y: 21, On: false},
		{Timestamp: 110, X: 12, Y: 22, On: false},
	}, got)
}

func TestReadTextErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, in, msg string
	}{
		{"missing field", "1 2 3\n", "line 1: want 4 fields"},
		{"bad timestamp", "x 2 3 1\n", "line 1: timestamp"},
		{"bad x", "1 a 3 1\n", "line 1: x"},
		{"bad y", "# c\n1 2 b 1\n", "line 2: y"},
		{"bad polarity", "1 2 3 7\n", "line 1: polarity"},
	}
	for _, tt := range tests {
		_, err := ReadText(strings.NewReader(tt.in))
		require.Error(t, err, tt.name)
		assert.Contains(t, err.Error(), tt.msg, tt.name)
	}
}

func TestWriteTextRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.txt")
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleEvents()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	got, err := ReadTextFile(path)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleEvents(), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	_, err = ReadTextFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestBatches(t *testing.T) {
	t.Parallel()

	evs := sampleEvents()
	b := Batches(evs, 3)
	require.Len(t, b, 2)
	assert.Len(t, b[0], 3)
	assert.Len(t, b[1], 1)
	assert.Len(t, Batches(evs, 0), 1)
	assert.Empty(t, Batches(nil, 5))
}
