// Package fixture loads the named, versioned reference data that grading
// checks compare against.
//
// Fixtures are CUE documents embedded in the binary under a version
// directory (v1/, v2/, ...). Each document is unified with schema.cue,
// must be fully concrete, and is then validated per fixture kind. A fixture
// set may span several documents as long as every document declares the
// same version and no name is defined twice.
//
//	version: "v1"
//	fixtures: {
//		oracle_reward: {
//			kind:      "range"
//			lower:     0.95
//			upper:     0.97
//			exclusive: true
//		}
//	}
package fixture

import (
	"fmt"
	"math"
	"sort"

	"github.com/roach88/rlgrade/compare"
)

// Current is the fixture set version graded against by default.
const Current = "v1"

// Kind classifies a fixture.
type Kind string

const (
	KindRange  Kind = "range"
	KindScalar Kind = "scalar"
	KindVector Kind = "vector"
	KindExact  Kind = "exact"
	KindInput  Kind = "input"
)

// Fixture is a single named reference value.
type Fixture struct {
	Name        string
	Kind        Kind
	Description string

	Lower     *float64
	Upper     *float64
	Exclusive bool

	Value  *float64
	Values []float64

	Tolerance compare.Tolerance
}

// Bounds returns the interval of a range fixture. A missing side is
// unbounded.
func (f Fixture) Bounds() compare.Bounds {
	b := compare.Bounds{Lower: math.Inf(-1), Upper: math.Inf(1), Exclusive: f.Exclusive}
	if f.Lower != nil {
		b.Lower = *f.Lower
	}
	if f.Upper != nil {
		b.Upper = *f.Upper
	}
	return b
}

// Set is a loaded, validated fixture version.
type Set struct {
	Version  string
	fixtures map[string]Fixture
}

// Names returns all fixture names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.fixtures))
	for name := range s.fixtures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named fixture.
func (s *Set) Get(name string) (Fixture, error) {
	f, ok := s.fixtures[name]
	if !ok {
		return Fixture{}, fmt.Errorf("fixture %q not found in set %s", name, s.Version)
	}
	return f, nil
}

// Bounds returns the interval of a range fixture.
func (s *Set) Bounds(name string) (compare.Bounds, error) {
	f, err := s.lookup(name, KindRange)
	if err != nil {
		return compare.Bounds{}, err
	}
	return f.Bounds(), nil
}

// Scalar returns the reference value and tolerance of a scalar fixture.
func (s *Set) Scalar(name string) (float64, compare.Tolerance, error) {
	f, err := s.lookup(name, KindScalar)
	if err != nil {
		return 0, compare.Tolerance{}, err
	}
	return *f.Value, f.Tolerance, nil
}

// Vector returns the reference values and tolerance of a vector fixture.
func (s *Set) Vector(name string) ([]float64, compare.Tolerance, error) {
	f, err := s.lookup(name, KindVector)
	if err != nil {
		return nil, compare.Tolerance{}, err
	}
	return clone(f.Values), f.Tolerance, nil
}

// Exact returns the reference values of an exact fixture.
func (s *Set) Exact(name string) ([]float64, error) {
	f, err := s.lookup(name, KindExact)
	if err != nil {
		return nil, err
	}
	return clone(f.Values), nil
}

// Input returns the values of an input fixture. A scalar input is returned
// as a one-element slice.
func (s *Set) Input(name string) ([]float64, error) {
	f, err := s.lookup(name, KindInput)
	if err != nil {
		return nil, err
	}
	if f.Value != nil {
		return []float64{*f.Value}, nil
	}
	return clone(f.Values), nil
}

// InputScalar returns the value of a scalar input fixture.
func (s *Set) InputScalar(name string) (float64, error) {
	f, err := s.lookup(name, KindInput)
	if err != nil {
		return 0, err
	}
	if f.Value == nil {
		return 0, fmt.Errorf("fixture %q holds %d values, not a scalar", name, len(f.Values))
	}
	return *f.Value, nil
}

func (s *Set) lookup(name string, kind Kind) (Fixture, error) {
	f, err := s.Get(name)
	if err != nil {
		return Fixture{}, err
	}
	if f.Kind != kind {
		return Fixture{}, fmt.Errorf("fixture %q is a %s fixture, not %s", name, f.Kind, kind)
	}
	return f, nil
}

func clone(xs []float64) []float64 {
	return append([]float64(nil), xs...)
}
