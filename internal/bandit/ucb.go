package bandit

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

const (
	// UCBConfidence is the exploration constant c in c*sqrt(ln t / N(a)).
	UCBConfidence = 2.0

	// countEpsilon keeps the bonus finite for unvisited arms.
	countEpsilon = 1e-5
)

// UCB selects the arm maximising Q(a) plus an upper-confidence bonus.
type UCB struct {
	estimates
	t   int
	rng *rand.Rand
}

// NewUCB creates a UCB agent over numActions arms.
func NewUCB(numActions int, seed uint64) *UCB {
	return &UCB{
		estimates: newEstimates(numActions),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Seed re-seeds the tie-breaking source.
func (a *UCB) Seed(seed uint64) {
	a.rng.Seed(seed)
}

// Bonus returns c*sqrt(ln t / (N(a) + 1e-5)) for every arm. Times before the
// first step yield a zero bonus.
func (a *UCB) Bonus(t int, counts []float64) []float64 {
	logT := 0.0
	if t > 1 {
		logT = math.Log(float64(t))
	}
	bonus := make([]float64, len(counts))
	for i, n := range counts {
		bonus[i] = UCBConfidence * math.Sqrt(logT/(n+countEpsilon))
	}
	return bonus
}

// Action advances time and selects the arm with the highest bound. Ties are
// broken uniformly at random.
func (a *UCB) Action() int {
	a.t++
	scores := a.Bonus(a.t, a.countsFloat())
	floats.Add(scores, a.q)

	best := floats.Max(scores)
	var ties []int
	for i, s := range scores {
		if s == best {
			ties = append(ties, i)
		}
	}
	return ties[a.rng.Intn(len(ties))]
}
