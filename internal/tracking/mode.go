package tracking

import (
	"fmt"
	"strings"
)

// Mode selects the manifold the transform is projected onto after each
// update.
type Mode int

const (
	FullProjective    Mode = iota // No constraint
	NoShear                       // Perspective, rotation and scale; shear cancelled
	RotationScaleOnly             // 2×2 rotation+uniform-scale block, no perspective, no shear
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case FullProjective:
		return "full_projective"
	case NoShear:
		return "no_shear"
	case RotationScaleOnly:
		return "rotation_scale"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a configuration name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full_projective", "full", "projective":
		return FullProjective, nil
	case "no_shear", "noshear":
		return NoShear, nil
	case "rotation_scale", "rotation_scale_only", "rotscale":
		return RotationScaleOnly, nil
	default:
		return FullProjective, fmt.Errorf("unknown tracking mode %q", s)
	}
}

// ProjectMode applies the mode-specific constraint to m in place.
//
// NoShear reads every element before writing any, so each correction is
// computed from the pre-update values.
func ProjectMode(m *Matrix, mode Mode) {
	switch mode {
	case NoShear:
		m1, m3, m5, m6, m7, m8, m9 := m[0], m[2], m[4], m[5], m[6], m[7], m[8]
		e := 0.5 * (m5*m9 - m6*m8 - m1*m9 + m3*m7)
		m[0] = m1 + e*m9
		m[2] = m3 - e*m7
		m[4] = m5 - e*m9
		m[5] = m6 + e*m8
		m[6] = m7 - e*m3
		m[7] = m8 + e*m6
		m[8] = m9 + e*(m1-m5)
	case RotationScaleOnly:
		m[6], m[7] = 0, 0
		s := (m[0] + m[4]) / 2
		m[0], m[4] = s, s
		r := (m[1] - m[3]) / 2
		m[1], m[3] = r, -r
	}
}
