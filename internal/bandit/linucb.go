package bandit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LinUCB is the disjoint linear UCB contextual bandit. Each action keeps a
// design matrix A = I + Σ x xᵀ and response vector b = Σ r x.
type LinUCB struct {
	alpha float64
	dim   int
	as    []*mat.SymDense
	bs    []*mat.VecDense
}

// NewLinUCB creates a LinUCB agent with exploration weight alpha over
// featureDim-dimensional contexts.
func NewLinUCB(numActions int, alpha float64, featureDim int) *LinUCB {
	if numActions <= 0 || featureDim <= 0 {
		panic(fmt.Sprintf("bandit: invalid LinUCB shape %d actions x %d features", numActions, featureDim))
	}
	a := &LinUCB{
		alpha: alpha,
		dim:   featureDim,
		as:    make([]*mat.SymDense, numActions),
		bs:    make([]*mat.VecDense, numActions),
	}
	for i := range a.as {
		id := mat.NewSymDense(featureDim, nil)
		for j := 0; j < featureDim; j++ {
			id.SetSym(j, j, 1)
		}
		a.as[i] = id
		a.bs[i] = mat.NewVecDense(featureDim, nil)
	}
	return a
}

// UCB returns θᵀx + α sqrt(xᵀ A⁻¹ x) with θ = A⁻¹ b.
func (a *LinUCB) UCB(action int, x []float64) (float64, error) {
	xv, err := a.context(action, x)
	if err != nil {
		return 0, err
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a.as[action]); !ok {
		return 0, fmt.Errorf("action %d: design matrix is not positive definite", action)
	}

	var theta, ainvx mat.VecDense
	if err := chol.SolveVecTo(&theta, a.bs[action]); err != nil {
		return 0, fmt.Errorf("action %d: solve for theta: %w", action, err)
	}
	if err := chol.SolveVecTo(&ainvx, xv); err != nil {
		return 0, fmt.Errorf("action %d: solve for variance: %w", action, err)
	}

	return mat.Dot(&theta, xv) + a.alpha*math.Sqrt(mat.Dot(xv, &ainvx)), nil
}

// UpdateParams adds x xᵀ to A and r x to b for action.
func (a *LinUCB) UpdateParams(action int, reward float64, x []float64) error {
	xv, err := a.context(action, x)
	if err != nil {
		return err
	}
	a.as[action].SymRankOne(a.as[action], 1, xv)
	a.bs[action].AddScaledVec(a.bs[action], reward, xv)
	return nil
}

// Params returns the per-action design matrices and response vectors.
func (a *LinUCB) Params() ([]mat.Matrix, []mat.Vector) {
	as := make([]mat.Matrix, len(a.as))
	bs := make([]mat.Vector, len(a.bs))
	for i := range a.as {
		as[i] = a.as[i]
		bs[i] = a.bs[i]
	}
	return as, bs
}

// Action returns the action with the highest bound for context x.
func (a *LinUCB) Action(x []float64) (int, error) {
	best, bestUCB := -1, math.Inf(-1)
	for action := range a.as {
		p, err := a.UCB(action, x)
		if err != nil {
			return 0, err
		}
		if p > bestUCB {
			best, bestUCB = action, p
		}
	}
	if best < 0 {
		return 0, errors.New("no action has a finite bound")
	}
	return best, nil
}

func (a *LinUCB) context(action int, x []float64) (*mat.VecDense, error) {
	if action < 0 || action >= len(a.as) {
		return nil, fmt.Errorf("action %d out of range [0, %d)", action, len(a.as))
	}
	if len(x) != a.dim {
		return nil, fmt.Errorf("context has %d features, want %d", len(x), a.dim)
	}
	return mat.NewVecDense(a.dim, append([]float64(nil), x...)), nil
}
