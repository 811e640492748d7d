package bandit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/roach88/rlgrade/candidate"
)

var (
	_ candidate.ExploreFirstAgent = (*ExploreFirst)(nil)
	_ candidate.UCBAgent          = (*UCB)(nil)
	_ candidate.QUpdater          = (*EpsilonGreedy)(nil)
	_ candidate.LinUCBAgent       = (*LinUCB)(nil)
	_ candidate.Seeder            = (*UCB)(nil)
)

func TestExploreFirst_UpdateQ(t *testing.T) {
	agent := NewExploreFirst(10, 10, 0)
	agent.SetActionCount(3, 1)

	agent.UpdateQ(3, 1)
	assert.Equal(t, 0.5, agent.Q()[3])
	assert.Equal(t, 0.0, agent.Q()[0])

	agent.UpdateQ(3, -1)
	assert.Equal(t, 0.0, agent.Q()[3])
	assert.Equal(t, 3, agent.ActionCounts()[3])
}

func TestExploreFirst_ExploresThenCommits(t *testing.T) {
	agent := NewExploreFirst(4, 5, 7)
	agent.UpdateQ(2, 10)

	for i := 0; i < 5; i++ {
		a := agent.Action()
		assert.GreaterOrEqual(t, a, 0)
		assert.Less(t, a, 4)
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, 2, agent.Action())
	}
}

func TestUCB_UpdateQSequence(t *testing.T) {
	agent := NewUCB(10, 0)

	agent.UpdateQ(0, 1)
	agent.UpdateQ(1, 1)
	agent.UpdateQ(2, -1)
	agent.UpdateQ(3, 3)
	assert.Equal(t, []float64{1, 1, -1, 3, 0, 0, 0, 0, 0, 0}, agent.Q())

	agent.UpdateQ(3, 2)
	assert.Equal(t, []float64{1, 1, -1, 2.5, 0, 0, 0, 0, 0, 0}, agent.Q())
}

func TestUCB_Bonus(t *testing.T) {
	agent := NewUCB(10, 0)
	expected := []float64{4.0036449, 2.83101153, 2.31151316, 2.00182995, 1.79049159,
		1.63448799, 1.51324202, 1.41550842, 1.33455423, 1.26606938}

	bonus := agent.Bonus(55, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	assert.True(t, floats.EqualApprox(bonus, expected, 1e-6), "got %v", bonus)
}

func TestUCB_BonusBeforeFirstStep(t *testing.T) {
	agent := NewUCB(3, 0)
	assert.Equal(t, []float64{0, 0, 0}, agent.Bonus(0, []float64{0, 0, 0}))
}

func TestUCB_ActionVisitsEveryArmFirst(t *testing.T) {
	agent := NewUCB(5, 3)
	seen := map[int]bool{}
	for i := 0; i < 5; i++ {
		a := agent.Action()
		seen[a] = true
		agent.UpdateQ(a, 0)
	}
	assert.Len(t, seen, 5)
}

func TestUCB_SeedReproducesChoices(t *testing.T) {
	run := func() []int {
		agent := NewUCB(6, 99)
		agent.Seed(12)
		var picks []int
		for i := 0; i < 12; i++ {
			a := agent.Action()
			picks = append(picks, a)
			agent.UpdateQ(a, float64(a%2))
		}
		return picks
	}
	assert.Equal(t, run(), run())
}

func TestEpsilonGreedy(t *testing.T) {
	_, err := NewEpsilonGreedy(3, 1.5, 0)
	require.Error(t, err)

	agent, err := NewEpsilonGreedy(3, 0, 0)
	require.NoError(t, err)
	agent.UpdateQ(1, 4)
	for i := 0; i < 10; i++ {
		assert.Equal(t, 1, agent.Action())
	}

	explorer, err := NewEpsilonGreedy(3, 1, 5)
	require.NoError(t, err)
	explorer.Seed(5)
	first := []int{explorer.Action(), explorer.Action(), explorer.Action()}
	explorer.Seed(5)
	second := []int{explorer.Action(), explorer.Action(), explorer.Action()}
	assert.Equal(t, first, second)
}

func linUCBContexts() ([]float64, []float64) {
	data1 := make([]float64, 100)
	data2 := make([]float64, 100)
	for i, v := range map[int]float64{0: 43, 2: 2, 3: 44, 4: 1, 21: 1, 29: 3, 33: 2, 34: 1, 37: 3, 38: 1,
		39: 42, 40: 4, 50: 14, 51: 1, 61: 1, 66: 1, 71: 45, 72: 13, 73: 14, 74: 3, 76: 4, 84: 23, 89: 21, 97: 13} {
		data1[i] = v
	}
	for i, v := range map[int]float64{0: 77, 3: 13, 9: 32, 11: 2, 12: 19, 23: 1, 34: 6, 36: 1, 37: 9, 43: 13,
		44: 3, 45: 12, 47: 2, 49: 3, 50: 3, 55: 37, 58: 11, 59: 9, 63: 2, 65: 7, 72: 13, 75: 1, 78: 2,
		79: 7, 80: 4, 91: 5, 95: 2, 96: 4} {
		data2[i] = v
	}
	return data1, data2
}

func TestLinUCB_InitialBound(t *testing.T) {
	data1, _ := linUCBContexts()
	require.Equal(t, 300.0, floats.Sum(data1))

	agent := NewLinUCB(10, 0.01, 100)
	p, err := agent.UCB(4, data1)
	require.NoError(t, err)

	// With A = I and b = 0 the bound is alpha * ||x||.
	assert.InDelta(t, 0.01*math.Sqrt(9348), p, 1e-12)
	assert.InDelta(t, 0.96685056, p, 5e-5)
}

func TestLinUCB_UpdateParams(t *testing.T) {
	data1, data2 := linUCBContexts()
	agent := NewLinUCB(10, 0.01, 100)

	sums := func() (float64, float64) {
		as, bs := agent.Params()
		var aRow, b0 float64
		for i := range as {
			aRow += floats.Sum(mat.Row(nil, 0, as[i]))
			b0 += bs[i].AtVec(0)
		}
		return aRow, b0
	}

	require.NoError(t, agent.UpdateParams(4, 3, data1))
	aRow, b0 := sums()
	assert.Equal(t, 12910.0, aRow)
	assert.Equal(t, 129.0, b0)

	require.NoError(t, agent.UpdateParams(1, 2, data2))
	aRow, b0 = sums()
	assert.Equal(t, 36010.0, aRow)
	assert.Equal(t, 283.0, b0)
}

func TestLinUCB_LearnsRewardingAction(t *testing.T) {
	agent := NewLinUCB(3, 0.1, 2)
	x := []float64{1, 0}
	for i := 0; i < 20; i++ {
		require.NoError(t, agent.UpdateParams(2, 1, x))
		require.NoError(t, agent.UpdateParams(0, 0, x))
		require.NoError(t, agent.UpdateParams(1, 0, x))
	}

	a, err := agent.Action(x)
	require.NoError(t, err)
	assert.Equal(t, 2, a)
}

func TestLinUCB_RejectsBadInput(t *testing.T) {
	agent := NewLinUCB(2, 0.1, 3)

	_, err := agent.UCB(5, []float64{1, 2, 3})
	assert.EqualError(t, err, "action 5 out of range [0, 2)")

	err = agent.UpdateParams(0, 1, []float64{1, 2})
	assert.EqualError(t, err, "context has 2 features, want 3")
}
