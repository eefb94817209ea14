// Package tracking owns the online transform estimator and the pose fold
// step.
//
// Responsibilities: the 3×3 projective correction M, the per-point
// error-proportional update against the best gated template line, the
// mode projections that keep M on a reduced-freedom manifold, and the
// fold that bakes M⁻¹ into the template's stored endpoints before
// resetting M to identity.
// Key types: Matrix, Mode, Status, Estimator, Match, FoldResult.
//
// Dependency rule: tracking may depend on template, config and
// monitoring, never on session, capture or any I/O package.
package tracking
