package bandit

import (
	"golang.org/x/exp/rand"
)

// ExploreFirst picks actions uniformly at random for a fixed number of steps
// and greedily afterwards.
type ExploreFirst struct {
	estimates
	exploreSteps int
	steps        int
	rng          *rand.Rand
}

// NewExploreFirst creates an agent over numActions arms that explores for
// exploreSteps steps.
func NewExploreFirst(numActions, exploreSteps int, seed uint64) *ExploreFirst {
	return &ExploreFirst{
		estimates:    newEstimates(numActions),
		exploreSteps: exploreSteps,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// Seed re-seeds the exploration source.
func (a *ExploreFirst) Seed(seed uint64) {
	a.rng.Seed(seed)
}

// Action selects the next arm.
func (a *ExploreFirst) Action() int {
	a.steps++
	if a.steps <= a.exploreSteps {
		return a.rng.Intn(len(a.q))
	}
	return greedy(a.q)
}
