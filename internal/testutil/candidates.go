// Package testutil holds a fixed run ID generator and deliberately broken
// candidates for grading tests.
package testutil

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/roach88/rlgrade/candidate"
	"github.com/roach88/rlgrade/internal/bandit"
)

// ConstantStepAgent updates estimates with a fixed step size of 0.1 instead
// of the sample average, and drops the confidence factor from its bonus.
// It satisfies both ExploreFirstAgent and UCBAgent but computes the wrong
// numbers for each.
type ConstantStepAgent struct {
	q      []float64
	counts []int
}

// NewConstantStepAgent creates the agent over numActions arms.
func NewConstantStepAgent(numActions int) *ConstantStepAgent {
	return &ConstantStepAgent{
		q:      make([]float64, numActions),
		counts: make([]int, numActions),
	}
}

func (a *ConstantStepAgent) Q() []float64 { return append([]float64(nil), a.q...) }

func (a *ConstantStepAgent) UpdateQ(action int, reward float64) {
	a.counts[action]++
	a.q[action] += 0.1 * (reward - a.q[action])
}

func (a *ConstantStepAgent) ActionCounts() []int { return append([]int(nil), a.counts...) }

func (a *ConstantStepAgent) SetActionCount(action, count int) { a.counts[action] = count }

func (a *ConstantStepAgent) Bonus(t int, counts []float64) []float64 {
	out := make([]float64, len(counts))
	for i, n := range counts {
		out[i] = math.Sqrt(math.Log(float64(t)) / (n + 1e-5))
	}
	return out
}

// ShortBonusAgent is a correct UCB agent whose bonus drops the last arm.
type ShortBonusAgent struct {
	*bandit.UCB
}

func (a ShortBonusAgent) Bonus(t int, counts []float64) []float64 {
	full := a.UCB.Bonus(t, counts)
	return full[:len(full)-1]
}

// PanickingAgent panics on every update.
type PanickingAgent struct {
	*bandit.UCB
}

func (PanickingAgent) UpdateQ(action int, reward float64) {
	panic("index out of range")
}

// QOnlyAgent exposes estimates but cannot be updated.
type QOnlyAgent struct{}

func (QOnlyAgent) Q() []float64 { return make([]float64, 10) }

// FrozenLinUCB answers UCB queries correctly but ignores updates.
type FrozenLinUCB struct {
	*bandit.LinUCB
}

func (FrozenLinUCB) UpdateParams(action int, reward float64, x []float64) error { return nil }

// Factories wrapping the agents above, typed for the checks that construct
// their own agents.
var (
	ConstantStepExploreFirst candidate.ExploreFirstFactory = func(numActions, _ int) candidate.ExploreFirstAgent {
		return NewConstantStepAgent(numActions)
	}
	ConstantStepUCB candidate.UCBFactory = func(numActions int) candidate.UCBAgent {
		return NewConstantStepAgent(numActions)
	}
	ShortBonusUCB candidate.UCBFactory = func(numActions int) candidate.UCBAgent {
		return ShortBonusAgent{bandit.NewUCB(numActions, 0)}
	}
	PanickingUCB candidate.UCBFactory = func(numActions int) candidate.UCBAgent {
		return PanickingAgent{bandit.NewUCB(numActions, 0)}
	}
	FrozenLinUCBFactory candidate.LinUCBFactory = func(numActions int, alpha float64, featureDim int) candidate.LinUCBAgent {
		return FrozenLinUCB{bandit.NewLinUCB(numActions, alpha, featureDim)}
	}
)

// ErrNotImplemented is returned by stub candidates.
var ErrNotImplemented = errors.New("not implemented")

// UndiscountedGAE ignores lambda, so it returns plain discounted sums of TD
// residuals.
var UndiscountedGAE candidate.AdvantageFunc = func(values, rewards []float64, T int, lambda, discount float64) ([]float64, error) {
	adv := make([]float64, T)
	running := 0.0
	for t := T - 1; t >= 0; t-- {
		running = rewards[t] + discount*values[t+1] - values[t] + discount*running
		adv[t] = running
	}
	return adv, nil
}

// StubReturns always errors.
var StubReturns candidate.ReturnFunc = func(rewards []float64, discount float64) ([]float64, error) {
	return nil, ErrNotImplemented
}

// TruncatedReturns drops the final step.
var TruncatedReturns candidate.ReturnFunc = func(rewards []float64, discount float64) ([]float64, error) {
	out := make([]float64, len(rewards)-1)
	running := 0.0
	for t := len(out) - 1; t >= 0; t-- {
		running = rewards[t] + discount*running
		out[t] = running
	}
	return out, nil
}

// PositiveLoss forgets to negate the objective.
var PositiveLoss candidate.PolicyLossFunc = func(logps, weights []float64) (float64, error) {
	return floats.Dot(logps, weights) / float64(len(logps)), nil
}

// RewardTable builds a results table of n rows whose reward column sums to
// total.
func RewardTable(total float64, n int) *candidate.Frame {
	rewards := make([]float64, n)
	for i := range rewards {
		rewards[i] = total / float64(n)
	}
	f, err := candidate.NewFrame(map[string][]float64{"reward": rewards})
	if err != nil {
		panic(err)
	}
	return f
}

// CTRTable builds a results table with the given aligned click-through
// rates.
func CTRTable(ctr ...float64) *candidate.Frame {
	f, err := candidate.NewFrame(map[string][]float64{"aligned_ctr": ctr})
	if err != nil {
		panic(err)
	}
	return f
}
