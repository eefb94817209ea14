// Package debug provides instrumentation for the template tracker.
// The Collector captures per-point match decisions and fold outcomes for
// plotting and tuning.
package debug

// Pre-allocation capacities for packet slices. A typical AEUnicast
// datagram carries a few hundred events; folds happen once per packet.
const (
	defaultMatchCapacity = 256
	defaultFoldCapacity  = 2
)

// Collector accumulates debug records during a single packet's
// processing. It satisfies tracking.DebugCollector.
//
// The collector is stateful: call BeginPacket, let the estimator call
// Record*(), then Emit at packet completion.
type Collector struct {
	enabled bool
	current *Packet
}

// Packet contains all debug records for one batch of events.
type Packet struct {
	PacketID uint64
	Matches  []MatchRecord
	Folds    []FoldRecord
}

// MatchRecord captures one Consume decision.
type MatchRecord struct {
	X, Y     float64 // Normalised observation
	Index    int     // Matched segment, -1 when nothing gated
	Residual float64 // Signed error before the update
	Outcome  string  // "no_match", "too_far" or "applied"
}

// FoldRecord captures one fold attempt.
type FoldRecord struct {
	Outcome string
	Det     float64 // Determinant of M before the fold
}

// NewCollector creates a collector that's initially disabled.
func NewCollector() *Collector {
	return &Collector{}
}

// SetEnabled controls whether the collector records anything.
// When disabled, all Record*() calls are no-ops.
func (c *Collector) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// IsEnabled returns true if the collector is actively recording.
func (c *Collector) IsEnabled() bool {
	return c.enabled
}

// BeginPacket initialises collection for a new packet.
// Must be called before any Record*() calls.
func (c *Collector) BeginPacket(packetID uint64) {
	if !c.enabled {
		return
	}
	c.current = &Packet{
		PacketID: packetID,
		Matches:  make([]MatchRecord, 0, defaultMatchCapacity),
		Folds:    make([]FoldRecord, 0, defaultFoldCapacity),
	}
}

// RecordMatch captures a per-point decision.
func (c *Collector) RecordMatch(x, y float64, index int, residual float64, outcome string) {
	if !c.enabled || c.current == nil {
		return
	}
	c.current.Matches = append(c.current.Matches, MatchRecord{
		X:        x,
		Y:        y,
		Index:    index,
		Residual: residual,
		Outcome:  outcome,
	})
}

// RecordFold captures a fold attempt.
func (c *Collector) RecordFold(outcome string, det float64) {
	if !c.enabled || c.current == nil {
		return
	}
	c.current.Folds = append(c.current.Folds, FoldRecord{Outcome: outcome, Det: det})
}

// Emit returns the accumulated packet and prepares for the next one.
// Returns nil if collection is disabled or no packet was begun.
func (c *Collector) Emit() *Packet {
	if !c.enabled || c.current == nil {
		return nil
	}
	p := c.current
	c.current = nil
	return p
}

// Reset drops any pending records without emitting them.
func (c *Collector) Reset() {
	c.current = nil
}

// Outcomes counts match records by outcome.
func (p *Packet) Outcomes() map[string]int {
	counts := make(map[string]int, 3)
	for _, m := range p.Matches {
		counts[m.Outcome]++
	}
	return counts
}

// AppliedResiduals returns the residual of every applied match in order.
func (p *Packet) AppliedResiduals() []float64 {
	var out []float64
	for _, m := range p.Matches {
		if m.Outcome == "applied" {
			out = append(out, m.Residual)
		}
	}
	return out
}
