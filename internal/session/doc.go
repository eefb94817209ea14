// Package session ties one template, one estimator and one capture window
// together behind a single lock.
//
// Responsibilities:
//   - Map sensor pixels into the template's normalised range.
//   - Route each observation to either the capture window or the
//     estimator; the two modes are mutually exclusive and every switch
//     resets the capture grid, the sample counter and M.
//   - Fold M into the template on the configured cadence and on Render.
//   - Run synthesis when a capture window closes, inline or on a
//     background goroutine whose result is discarded if the session has
//     moved on.
//   - Keep rolling residual statistics.
//
// Key types: Session, Config, Result, PacketSummary, Stats.
//
// Dependency rule: session may import template, tracking, capture,
// events, config and monitoring. Nothing in internal/ imports session
// except cmd wiring.
package session
