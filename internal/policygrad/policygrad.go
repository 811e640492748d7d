// Package policygrad provides reference policy-gradient utilities:
// discounted returns, GAE(λ) advantages, and REINFORCE-style losses.
//
// GAE follows the forward view of https://arxiv.org/abs/1506.02438: the
// advantage at step t is the (γλ)-discounted sum of TD residuals
// δ_t = r_t + γ V(s_{t+1}) - V(s_t).
package policygrad

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DiscountedReturn returns G_t = r_t + γ G_{t+1} for every step.
func DiscountedReturn(rewards []float64, discount float64) ([]float64, error) {
	if discount < 0 || discount > 1 {
		return nil, fmt.Errorf("discount must be in [0, 1], got %v", discount)
	}
	return discountCumSum(rewards, discount), nil
}

// GAE computes generalized advantage estimates for the first T steps.
// values must hold at least T+1 estimates so the last residual can
// bootstrap from V(s_T).
func GAE(values, rewards []float64, T int, lambda, discount float64) ([]float64, error) {
	if T <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", T)
	}
	if len(values) < T+1 {
		return nil, fmt.Errorf("need %d values for horizon %d, have %d", T+1, T, len(values))
	}
	if len(rewards) < T {
		return nil, fmt.Errorf("need %d rewards for horizon %d, have %d", T, T, len(rewards))
	}
	if lambda < 0 || lambda > 1 {
		return nil, fmt.Errorf("lambda must be in [0, 1], got %v", lambda)
	}
	if discount < 0 || discount > 1 {
		return nil, fmt.Errorf("discount must be in [0, 1], got %v", discount)
	}

	stateVals := mat.NewVecDense(T, append([]float64(nil), values[:T]...))
	nextStateVals := mat.NewVecDense(T, append([]float64(nil), values[1:T+1]...))
	rews := mat.NewVecDense(T, append([]float64(nil), rewards[:T]...))

	deltas := mat.NewVecDense(T, nil)
	deltas.AddScaledVec(rews, discount, nextStateVals)
	deltas.SubVec(deltas, stateVals)

	return discountCumSum(deltas.RawVector().Data, discount*lambda), nil
}

// PolicyLossReinforce returns -mean(log π(a|s) * G).
func PolicyLossReinforce(logps, returns []float64) (float64, error) {
	return weightedLogLoss(logps, returns)
}

// PolicyLossWithBaseline returns -mean(log π(a|s) * A), where the advantages
// already have a baseline subtracted.
func PolicyLossWithBaseline(logps, advantages []float64) (float64, error) {
	return weightedLogLoss(logps, advantages)
}

func weightedLogLoss(logps, weights []float64) (float64, error) {
	if len(logps) == 0 {
		return 0, fmt.Errorf("no log probabilities")
	}
	if len(logps) != len(weights) {
		return 0, fmt.Errorf("have %d log probabilities but %d weights", len(logps), len(weights))
	}
	return -floats.Dot(logps, weights) / float64(len(logps)), nil
}

// discountCumSum computes [x0 + γ x1 + γ² x2 + ..., x1 + γ x2 + ..., ..., xN]
// with a single backward pass.
func discountCumSum(x []float64, discount float64) []float64 {
	out := make([]float64, len(x))
	running := 0.0
	for i := len(x) - 1; i >= 0; i-- {
		running = x[i] + discount*running
		out[i] = running
	}
	return out
}
