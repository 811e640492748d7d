// Package candidate declares the capability interfaces a graded
// implementation must satisfy.
//
// Checks never reach into a candidate's fields. Each check names the
// capability it exercises and asserts it at the boundary with Require; a
// candidate that lacks the capability fails the check with a
// *CapabilityError instead of panicking deep inside the comparison.
package candidate

import (
	"fmt"
	"reflect"

	"gonum.org/v1/gonum/mat"
)

// QValues exposes action-value estimates indexed by action.
type QValues interface {
	Q() []float64
}

// QUpdater applies a single reward observation to an action's estimate.
type QUpdater interface {
	QValues
	UpdateQ(action int, reward float64)
}

// ActionCounter exposes the per-action visit counts used by the update rule.
type ActionCounter interface {
	ActionCounts() []int
	SetActionCount(action, count int)
}

// BonusComputer computes the exploration bonus for every action at time t
// given per-action visit counts.
type BonusComputer interface {
	Bonus(t int, counts []float64) []float64
}

// Seeder accepts a seed for any internal randomness. The harness calls Seed
// immediately before invoking a seeded check.
type Seeder interface {
	Seed(seed uint64)
}

// ExploreFirstAgent is an explore-then-commit bandit agent.
type ExploreFirstAgent interface {
	QUpdater
	ActionCounter
}

// UCBAgent is an upper-confidence-bound bandit agent.
type UCBAgent interface {
	QUpdater
	BonusComputer
}

// LinUCBAgent is a contextual bandit agent with a linear payoff model per
// action.
type LinUCBAgent interface {
	// UCB returns the upper confidence bound of action for context x.
	UCB(action int, x []float64) (float64, error)

	// UpdateParams folds the observed reward for action in context x into
	// the action's design matrix and response vector.
	UpdateParams(action int, reward float64, x []float64) error

	// Params returns the per-action design matrices A and response
	// vectors b.
	Params() (as []mat.Matrix, bs []mat.Vector)
}

// Table is a results table with named numeric columns.
type Table interface {
	Len() int
	Column(name string) ([]float64, error)
}

// ExploreFirstFactory constructs a fresh explore-first agent.
type ExploreFirstFactory func(numActions, exploreSteps int) ExploreFirstAgent

// UCBFactory constructs a fresh UCB agent.
type UCBFactory func(numActions int) UCBAgent

// LinUCBFactory constructs a fresh LinUCB agent.
type LinUCBFactory func(numActions int, alpha float64, featureDim int) LinUCBAgent

// AdvantageFunc computes generalized advantage estimates for the first T
// steps given T+1 value estimates.
type AdvantageFunc func(values, rewards []float64, T int, lambda, discount float64) ([]float64, error)

// ReturnFunc computes the discounted return from every step.
type ReturnFunc func(rewards []float64, discount float64) ([]float64, error)

// PolicyLossFunc computes a scalar policy-gradient loss from log
// probabilities and per-step weights (returns or advantages).
type PolicyLossFunc func(logps, weights []float64) (float64, error)

// CapabilityError is returned when a candidate does not provide the
// capability a check exercises.
type CapabilityError struct {
	Capability string
	Got        string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("candidate of type %s does not provide %s", e.Got, e.Capability)
}

// Require asserts that c provides capability T.
func Require[T any](c any, capability string) (T, error) {
	v, ok := c.(T)
	if !ok {
		var zero T
		return zero, &CapabilityError{Capability: capability, Got: fmt.Sprintf("%T", c)}
	}
	return v, nil
}

// RequireFunc is Require for function capabilities. A plain function whose
// signature matches T is accepted and converted to T.
func RequireFunc[T any](c any, capability string) (T, error) {
	if v, ok := c.(T); ok {
		return v, nil
	}

	want := reflect.TypeOf((*T)(nil)).Elem()
	rv := reflect.ValueOf(c)
	if want.Kind() == reflect.Func && rv.Kind() == reflect.Func && !rv.IsNil() && rv.Type().ConvertibleTo(want) {
		return rv.Convert(want).Interface().(T), nil
	}

	var zero T
	return zero, &CapabilityError{Capability: capability, Got: fmt.Sprintf("%T", c)}
}

// SeedIfSupported seeds c when it implements Seeder and reports whether it
// did.
func SeedIfSupported(c any, seed uint64) bool {
	s, ok := c.(Seeder)
	if ok {
		s.Seed(seed)
	}
	return ok
}
