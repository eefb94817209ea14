// Package capture builds a new line template from observed events.
//
// Responsibilities:
//   - Accumulate a bounded window of normalised points into a boolean
//     occupancy Grid.
//   - Extract straight runs from the grid with a discrete rotational line
//     search (Synthesize) and emit them as template segments.
//
// Key types: Grid, Capture, Config, Candidate.
//
// Synthesize scores every candidate ray at an anchor before it clears any
// cell, so the result does not depend on the order in which angles are
// visited.
//
// Dependency rule: capture may import template and config. It must not
// import tracking or session.
package capture
