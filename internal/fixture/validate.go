package fixture

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error is a fixture loading or validation failure with source position.
type Error struct {
	File    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(file string, err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{File: file, Field: "cue", Message: err.Error()}
	}

	first := errs[0]
	fe := &Error{File: file, Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		fe.Pos = positions[0]
	}
	return fe
}

// validateFixture applies the per-kind rules the schema cannot express.
func validateFixture(f Fixture) error {
	switch f.Kind {
	case KindRange:
		if f.Lower == nil && f.Upper == nil {
			return fmt.Errorf("range needs lower, upper, or both")
		}
		if f.Lower != nil && f.Upper != nil && *f.Lower > *f.Upper {
			return fmt.Errorf("lower %v exceeds upper %v", *f.Lower, *f.Upper)
		}
		if f.Value != nil || len(f.Values) > 0 {
			return fmt.Errorf("range takes bounds, not values")
		}
	case KindScalar:
		if f.Value == nil {
			return fmt.Errorf("scalar needs a value")
		}
		if !hasTolerance(f) {
			return fmt.Errorf("scalar needs a tolerance")
		}
	case KindVector:
		if len(f.Values) == 0 {
			return fmt.Errorf("vector needs at least one value")
		}
		if !hasTolerance(f) {
			return fmt.Errorf("vector needs a tolerance; use kind exact for zero tolerance")
		}
	case KindExact:
		if len(f.Values) == 0 {
			return fmt.Errorf("exact needs at least one value")
		}
		if hasTolerance(f) {
			return fmt.Errorf("exact takes no tolerance")
		}
	case KindInput:
		if (f.Value == nil) == (len(f.Values) == 0) {
			return fmt.Errorf("input needs exactly one of value or values")
		}
	default:
		return fmt.Errorf("unknown kind %q", f.Kind)
	}
	return nil
}

func hasTolerance(f Fixture) bool {
	return f.Tolerance.Abs > 0 || f.Tolerance.Rel > 0 || f.Tolerance.Places > 0
}
