package bandit

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// estimates holds sample-average action values and visit counts shared by
// the tabular agents.
type estimates struct {
	q      []float64
	counts []int
}

func newEstimates(numActions int) estimates {
	if numActions <= 0 {
		panic(fmt.Sprintf("bandit: numActions must be positive, got %d", numActions))
	}
	return estimates{
		q:      make([]float64, numActions),
		counts: make([]int, numActions),
	}
}

// Q returns a copy of the action-value estimates.
func (e *estimates) Q() []float64 {
	return append([]float64(nil), e.q...)
}

// ActionCounts returns a copy of the per-action visit counts.
func (e *estimates) ActionCounts() []int {
	return append([]int(nil), e.counts...)
}

// SetActionCount overrides the visit count of action.
func (e *estimates) SetActionCount(action, count int) {
	e.counts[action] = count
}

// UpdateQ counts the visit and moves the estimate toward reward by the
// sample-average step size 1/N(a).
func (e *estimates) UpdateQ(action int, reward float64) {
	e.counts[action]++
	e.q[action] += (reward - e.q[action]) / float64(e.counts[action])
}

func (e *estimates) countsFloat() []float64 {
	out := make([]float64, len(e.counts))
	for i, c := range e.counts {
		out[i] = float64(c)
	}
	return out
}

// greedy returns the lowest-indexed action with the highest value.
func greedy(values []float64) int {
	return floats.MaxIdx(values)
}
