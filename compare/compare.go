package compare

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// Kind identifies how a check compares candidate output to reference data.
type Kind string

const (
	KindRange           Kind = "range"
	KindScalarTolerance Kind = "scalar_tolerance"
	KindVectorTolerance Kind = "vector_tolerance"
	KindExactSequence   Kind = "exact_sequence"
)

// Tolerance controls approximate equality.
//
// When Places is positive the difference is rounded half-to-even to that many
// decimal places and must round to zero. Otherwise the difference must satisfy
// |actual - expected| <= Abs + Rel*|expected|.
type Tolerance struct {
	Abs    float64 `json:"abs,omitempty"`
	Rel    float64 `json:"rel,omitempty"`
	Places int     `json:"places,omitempty"`
}

// Within reports whether actual equals expected under the tolerance.
// NaN never compares equal.
func (t Tolerance) Within(actual, expected float64) bool {
	if math.IsNaN(actual) || math.IsNaN(expected) {
		return false
	}
	if actual == expected {
		return true
	}
	if t.Places > 0 {
		return scalar.RoundEven(actual-expected, t.Places) == 0
	}
	return math.Abs(actual-expected) <= t.Abs+t.Rel*math.Abs(expected)
}

func (t Tolerance) String() string {
	if t.Places > 0 {
		return fmt.Sprintf("%d places", t.Places)
	}
	var parts []string
	if t.Rel > 0 {
		parts = append(parts, "rel="+formatFloat(t.Rel))
	}
	if t.Abs > 0 || len(parts) == 0 {
		parts = append(parts, "abs="+formatFloat(t.Abs))
	}
	return strings.Join(parts, " ")
}

// Bounds is a closed or open interval. Infinite bounds leave a side
// unconstrained.
type Bounds struct {
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	Exclusive bool    `json:"exclusive,omitempty"`
}

// AtLeast returns the inclusive half-line [lower, +Inf).
func AtLeast(lower float64) Bounds {
	return Bounds{Lower: lower, Upper: math.Inf(1)}
}

// AtMost returns the inclusive half-line (-Inf, upper].
func AtMost(upper float64) Bounds {
	return Bounds{Lower: math.Inf(-1), Upper: upper}
}

// Contains reports whether x lies within the bounds. NaN is never contained.
func (b Bounds) Contains(x float64) bool {
	if math.IsNaN(x) {
		return false
	}
	if b.Exclusive {
		return b.Lower < x && x < b.Upper
	}
	return b.Lower <= x && x <= b.Upper
}

func (b Bounds) String() string {
	open, closed := "[", "]"
	if b.Exclusive {
		open, closed = "(", ")"
	}
	if math.IsInf(b.Lower, -1) {
		open = "("
	}
	if math.IsInf(b.Upper, 1) {
		closed = ")"
	}
	return open + formatFloat(b.Lower) + ", " + formatFloat(b.Upper) + closed
}

// Mismatch is returned when a comparison does not hold.
type Mismatch struct {
	Kind     Kind
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Index    int    // First offending element, -1 for scalars
}

func (m *Mismatch) Error() string {
	if m.Index >= 0 {
		return fmt.Sprintf("%s mismatch at index %d: expected %s, got %s", m.Kind, m.Index, m.Expected, m.Actual)
	}
	return fmt.Sprintf("%s mismatch: expected %s, got %s", m.Kind, m.Expected, m.Actual)
}

// ShapeError is returned when two sequences cannot be compared element-wise.
type ShapeError struct {
	Want int
	Have int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch: want length %d, have %d", e.Want, e.Have)
}

// IsShapeError reports whether err wraps a *ShapeError.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

// Range checks that actual lies within b.
func Range(actual float64, b Bounds) error {
	if b.Contains(actual) {
		return nil
	}
	return &Mismatch{
		Kind:     KindRange,
		Expected: "value in " + b.String(),
		Actual:   formatFloat(actual),
		Index:    -1,
	}
}

// Scalar checks that actual equals expected within tol.
func Scalar(actual, expected float64, tol Tolerance) error {
	if tol.Within(actual, expected) {
		return nil
	}
	return &Mismatch{
		Kind:     KindScalarTolerance,
		Expected: fmt.Sprintf("%s (%s)", formatFloat(expected), tol),
		Actual:   formatFloat(actual),
		Index:    -1,
	}
}

// Vector checks element-wise that actual equals expected within tol.
// The mismatch reports the first deviating element and how many deviate.
func Vector(actual, expected []float64, tol Tolerance) error {
	if len(actual) != len(expected) {
		return &ShapeError{Want: len(expected), Have: len(actual)}
	}
	if floats.EqualFunc(actual, expected, tol.Within) {
		return nil
	}

	first, count := -1, 0
	for i := range expected {
		if !tol.Within(actual[i], expected[i]) {
			if first < 0 {
				first = i
			}
			count++
		}
	}
	return &Mismatch{
		Kind:     KindVectorTolerance,
		Expected: fmt.Sprintf("%s (%s)", formatFloat(expected[first]), tol),
		Actual:   fmt.Sprintf("%s (%d of %d elements deviate)", formatFloat(actual[first]), count, len(expected)),
		Index:    first,
	}
}

// Exact checks that actual and expected are element-wise identical.
func Exact(actual, expected []float64) error {
	if len(actual) != len(expected) {
		return &ShapeError{Want: len(expected), Have: len(actual)}
	}
	if floats.Equal(actual, expected) {
		return nil
	}
	for i := range expected {
		if actual[i] != expected[i] {
			return &Mismatch{
				Kind:     KindExactSequence,
				Expected: FormatSlice(expected),
				Actual:   FormatSlice(actual),
				Index:    i,
			}
		}
	}
	return nil
}

// ExactScalar checks that actual == expected.
func ExactScalar(actual, expected float64) error {
	if actual == expected {
		return nil
	}
	return &Mismatch{
		Kind:     KindExactSequence,
		Expected: formatFloat(expected),
		Actual:   formatFloat(actual),
		Index:    -1,
	}
}

// FormatSlice renders a sequence compactly, e.g. [1 1 -1 2.5].
func FormatSlice(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = formatFloat(x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
