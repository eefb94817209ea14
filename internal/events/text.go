package events

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadText parses an event log with one "ts x y p" line per event.
// Blank lines and lines starting with '#' are skipped. p is 1 for ON
// and 0 or -1 for OFF.
func ReadText(r io.Reader) ([]Event, error) {
	var out []Event
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		f := strings.Fields(s)
		if len(f) != 4 {
			return nil, fmt.Errorf("line %d: want 4 fields, got %d", line, len(f))
		}
		ts, err := strconv.ParseInt(f[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: timestamp: %w", line, err)
		}
		x, err := strconv.Atoi(f[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: x: %w", line, err)
		}
		y, err := strconv.Atoi(f[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: y: %w", line, err)
		}
		p, err := strconv.Atoi(f[3])
		if err != nil || p < -1 || p > 1 {
			return nil, fmt.Errorf("line %d: polarity %q must be 1, 0 or -1", line, f[3])
		}
		out = append(out, Event{Timestamp: ts, X: x, Y: y, On: p == 1})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return out, nil
}

// ReadTextFile opens path and parses it with ReadText.
func ReadTextFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()
	evs, err := ReadText(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return evs, nil
}

// WriteText writes events in the format ReadText accepts.
func WriteText(w io.Writer, events []Event) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# ts x y p")
	for _, ev := range events {
		p := 0
		if ev.On {
			p = 1
		}
		if _, err := fmt.Fprintf(bw, "%d %d %d %d\n", ev.Timestamp, ev.X, ev.Y, p); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Batches splits events into consecutive slices of at most n events,
// mirroring how a live source delivers packets.
func Batches(events []Event, n int) [][]Event {
	if n <= 0 {
		n = len(events)
	}
	var out [][]Event
	for len(events) > 0 {
		k := n
		if k > len(events) {
			k = len(events)
		}
		out = append(out, events[:k])
		events = events[k:]
	}
	return out
}
