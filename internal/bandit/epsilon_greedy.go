package bandit

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// EpsilonGreedy picks a uniformly random arm with probability epsilon and the
// greedy arm otherwise.
type EpsilonGreedy struct {
	estimates
	epsilon float64
	rng     *rand.Rand
}

// NewEpsilonGreedy creates an ε-greedy agent. Epsilon must lie in [0, 1].
func NewEpsilonGreedy(numActions int, epsilon float64, seed uint64) (*EpsilonGreedy, error) {
	if epsilon < 0 || epsilon > 1 {
		return nil, fmt.Errorf("epsilon must be in [0, 1], got %v", epsilon)
	}
	return &EpsilonGreedy{
		estimates: newEstimates(numActions),
		epsilon:   epsilon,
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

// Seed re-seeds the exploration source.
func (a *EpsilonGreedy) Seed(seed uint64) {
	a.rng.Seed(seed)
}

// Action selects the next arm.
func (a *EpsilonGreedy) Action() int {
	if a.rng.Float64() < a.epsilon {
		return a.rng.Intn(len(a.q))
	}
	return greedy(a.q)
}
