package harness

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/roach88/rlgrade/candidate"
	"github.com/roach88/rlgrade/compare"
	"github.com/roach88/rlgrade/internal/fixture"
)

const (
	msgOracleReward     = "ERROR: Wrong answer for oracle reward!"
	msgActionSelection  = "WARNING: Performance looks incorrect, check your get_action implementation."
	msgPerformance      = "WARNING: Performance looks incorrect."
	msgExploreFirstQ    = "ERROR: Wrong answer for explore-first Q update!"
	msgUCBQ             = "ERROR: Wrong answer for UCB Q update!"
	msgUCBBonus         = "ERROR: Wrong answer for UCB exploration bonus!"
	msgLinUCBBound      = "ERROR: Wrong answer for LinUCB upper confidence bound!"
	msgLinUCBParams     = "ERROR: Wrong answer for LinUCB parameter update!"
	msgGAE              = "ERROR: Wrong answer for generalized advantage estimation!"
	msgDiscountedReturn = "ERROR: Wrong answer for discounted return!"
	msgLossReinforce    = "ERROR: Wrong answer for REINFORCE policy loss!"
	msgLossBaseline     = "ERROR: Wrong answer for policy loss with baseline!"
)

// Check is one grading check: which capability it exercises, how it
// compares, and what a mismatch means.
type Check struct {
	ID          string
	Description string
	Capability  string
	Kind        compare.Kind
	Severity    Severity

	// Seeded checks call Seed on the candidate, or on the agent it
	// constructs, immediately before invoking it.
	Seeded bool
	Seed   uint64

	// Message is reported with any verdict other than pass.
	Message string

	run func(e *env, c any) error
}

// UnknownCheckError is returned for a check ID that is not registered.
type UnknownCheckError struct {
	ID string
}

func (e *UnknownCheckError) Error() string {
	return fmt.Sprintf("unknown check %q", e.ID)
}

// candidateError marks a failure raised by the candidate itself: an error
// return, a panic, or output the check cannot interpret. It always fails
// the check, whatever the severity.
type candidateError struct {
	err error
}

func (e *candidateError) Error() string { return e.err.Error() }
func (e *candidateError) Unwrap() error { return e.err }

// fixtureError marks broken reference data. It is a harness fault, not a
// verdict.
type fixtureError struct {
	err error
}

func (e *fixtureError) Error() string { return e.err.Error() }
func (e *fixtureError) Unwrap() error { return e.err }

var registry = []Check{
	{
		ID:          "oracle.reward",
		Description: "average reward of the oracle agent",
		Capability:  "float64",
		Kind:        compare.KindRange,
		Severity:    SeveritySoft,
		Message:     msgOracleReward,
		run:         checkOracleReward,
	},
	{
		ID:          "random.performance",
		Description: "summed reward of the random agent",
		Capability:  "Table",
		Kind:        compare.KindRange,
		Severity:    SeveritySoft,
		Message:     msgActionSelection,
		run:         checkRewardSum("random_reward_sum"),
	},
	{
		ID:          "explore_first.update_q",
		Description: "sample-average Q update of the explore-first agent",
		Capability:  "ExploreFirstFactory",
		Kind:        compare.KindExactSequence,
		Severity:    SeverityHard,
		Message:     msgExploreFirstQ,
		run:         checkExploreFirstUpdate,
	},
	{
		ID:          "explore_first.performance",
		Description: "summed reward of the explore-first agent",
		Capability:  "Table",
		Kind:        compare.KindRange,
		Severity:    SeveritySoft,
		Message:     msgActionSelection,
		run:         checkRewardSum("explore_first_reward_sum"),
	},
	{
		ID:          "ucb.update_q",
		Description: "Q vector of the UCB agent after each of five updates",
		Capability:  "UCBFactory",
		Kind:        compare.KindExactSequence,
		Severity:    SeverityHard,
		Message:     msgUCBQ,
		run:         checkUCBUpdate,
	},
	{
		ID:          "ucb.exploration_bonus",
		Description: "UCB exploration bonus at t=55",
		Capability:  "UCBFactory",
		Kind:        compare.KindVectorTolerance,
		Severity:    SeverityHard,
		Seeded:      true,
		Seed:        0,
		Message:     msgUCBBonus,
		run:         checkUCBBonus,
	},
	{
		ID:          "ucb.performance",
		Description: "summed reward of the UCB agent",
		Capability:  "Table",
		Kind:        compare.KindRange,
		Severity:    SeveritySoft,
		Message:     msgPerformance,
		run:         checkRewardSum("ucb_reward_sum"),
	},
	{
		ID:          "epsilon_greedy.performance",
		Description: "summed reward of the epsilon-greedy agent",
		Capability:  "Table",
		Kind:        compare.KindRange,
		Severity:    SeveritySoft,
		Message:     msgPerformance,
		run:         checkRewardSum("epsilon_greedy_reward_sum"),
	},
	{
		ID:          "linucb.get_ucb",
		Description: "upper confidence bound of a fresh LinUCB agent",
		Capability:  "LinUCBFactory",
		Kind:        compare.KindScalarTolerance,
		Severity:    SeverityHard,
		Message:     msgLinUCBBound,
		run:         checkLinUCBBound,
	},
	{
		ID:          "linucb.update_params",
		Description: "LinUCB design matrix and response vector sums after two updates",
		Capability:  "LinUCBFactory",
		Kind:        compare.KindExactSequence,
		Severity:    SeverityHard,
		Message:     msgLinUCBParams,
		run:         checkLinUCBUpdate,
	},
	{
		ID:          "linucb.logs",
		Description: "aligned click-through rate peaks then decays",
		Capability:  "Table",
		Kind:        compare.KindRange,
		Severity:    SeveritySoft,
		Message:     msgPerformance,
		run:         checkLinUCBLogs,
	},
	{
		ID:          "pg.gae",
		Description: "generalized advantage estimates with lambda=0.9",
		Capability:  "AdvantageFunc",
		Kind:        compare.KindVectorTolerance,
		Severity:    SeverityHard,
		Message:     msgGAE,
		run:         checkGAE,
	},
	{
		ID:          "pg.discounted_return",
		Description: "undiscounted returns from every step",
		Capability:  "ReturnFunc",
		Kind:        compare.KindVectorTolerance,
		Severity:    SeverityHard,
		Message:     msgDiscountedReturn,
		run:         checkDiscountedReturn,
	},
	{
		ID:          "pg.policy_loss_reinforce",
		Description: "REINFORCE loss from log probabilities and returns",
		Capability:  "PolicyLossFunc",
		Kind:        compare.KindScalarTolerance,
		Severity:    SeverityHard,
		Message:     msgLossReinforce,
		run:         checkPolicyLoss,
	},
	{
		ID:          "pg.policy_loss_baseline",
		Description: "policy loss from log probabilities and advantages",
		Capability:  "PolicyLossFunc",
		Kind:        compare.KindScalarTolerance,
		Severity:    SeverityHard,
		Message:     msgLossBaseline,
		run:         checkPolicyLoss,
	},
}

// Checks returns every registered check in registration order.
func Checks() []Check {
	out := make([]Check, len(registry))
	copy(out, registry)
	return out
}

// LookupCheck returns the check registered under id.
func LookupCheck(id string) (Check, error) {
	for _, c := range registry {
		if c.ID == id {
			return c, nil
		}
	}
	return Check{}, &UnknownCheckError{ID: id}
}

// env is what a check procedure sees: the fixture set and its own
// definition.
type env struct {
	fixtures *fixture.Set
	check    *Check
}

// seed re-seeds c just before it is exercised.
func (e *env) seed(c any) {
	if e.check.Seeded {
		candidate.SeedIfSupported(c, e.check.Seed)
	}
}

func (e *env) bounds(name string) (compare.Bounds, error) {
	b, err := e.fixtures.Bounds(name)
	if err != nil {
		return compare.Bounds{}, &fixtureError{err}
	}
	return b, nil
}

func (e *env) scalar(name string) (float64, compare.Tolerance, error) {
	v, tol, err := e.fixtures.Scalar(name)
	if err != nil {
		return 0, compare.Tolerance{}, &fixtureError{err}
	}
	return v, tol, nil
}

func (e *env) vector(name string) ([]float64, compare.Tolerance, error) {
	v, tol, err := e.fixtures.Vector(name)
	if err != nil {
		return nil, compare.Tolerance{}, &fixtureError{err}
	}
	return v, tol, nil
}

func (e *env) exact(name string) ([]float64, error) {
	v, err := e.fixtures.Exact(name)
	if err != nil {
		return nil, &fixtureError{err}
	}
	return v, nil
}

// input returns an input fixture, requiring exactly n values when n > 0.
func (e *env) input(name string, n int) ([]float64, error) {
	v, err := e.fixtures.Input(name)
	if err != nil {
		return nil, &fixtureError{err}
	}
	if n > 0 && len(v) != n {
		return nil, &fixtureError{fmt.Errorf("fixture %q has %d values, want %d", name, len(v), n)}
	}
	return v, nil
}

func (e *env) inputScalar(name string) (float64, error) {
	v, err := e.fixtures.InputScalar(name)
	if err != nil {
		return 0, &fixtureError{err}
	}
	return v, nil
}

func checkOracleReward(e *env, c any) error {
	reward, err := candidate.Require[float64](c, "float64")
	if err != nil {
		return err
	}
	b, err := e.bounds("oracle_reward")
	if err != nil {
		return err
	}
	return compare.Range(reward, b)
}

func checkRewardSum(fixtureName string) func(*env, any) error {
	return func(e *env, c any) error {
		table, err := candidate.Require[candidate.Table](c, "Table")
		if err != nil {
			return err
		}
		b, err := e.bounds(fixtureName)
		if err != nil {
			return err
		}
		rewards, err := table.Column("reward")
		if err != nil {
			return &candidateError{err}
		}
		if err := compare.Range(floats.Sum(dropNaN(rewards)), b); err != nil {
			return fmt.Errorf("reward sum: %w", err)
		}
		return nil
	}
}

// exploreFirstProbe is the arm whose estimate the update check drives.
const exploreFirstProbe = 3

func checkExploreFirstUpdate(e *env, c any) error {
	factory, err := candidate.RequireFunc[candidate.ExploreFirstFactory](c, "ExploreFirstFactory")
	if err != nil {
		return err
	}
	args, err := e.input("explore_first_args", 2)
	if err != nil {
		return err
	}
	afterGain, err := e.exact("explore_first_q_after_gain")
	if err != nil {
		return err
	}
	afterLoss, err := e.exact("explore_first_q_after_loss")
	if err != nil {
		return err
	}

	agent := factory(int(args[0]), int(args[1]))
	if agent == nil {
		return &candidateError{errors.New("factory returned a nil agent")}
	}
	e.seed(agent)

	agent.SetActionCount(exploreFirstProbe, 1)
	counts := agent.ActionCounts()
	if len(counts) != int(args[0]) {
		return &compare.ShapeError{Want: int(args[0]), Have: len(counts)}
	}
	if counts[exploreFirstProbe] != 1 {
		return &candidateError{fmt.Errorf("SetActionCount(%d, 1) left count %d", exploreFirstProbe, counts[exploreFirstProbe])}
	}

	agent.UpdateQ(exploreFirstProbe, 1)
	if err := compare.Exact(agent.Q(), afterGain); err != nil {
		return fmt.Errorf("after update(%d, 1) with count 1: %w", exploreFirstProbe, err)
	}

	agent.UpdateQ(exploreFirstProbe, -1)
	if err := compare.Exact(agent.Q(), afterLoss); err != nil {
		return fmt.Errorf("after update(%d, -1): %w", exploreFirstProbe, err)
	}
	return nil
}

func checkUCBUpdate(e *env, c any) error {
	factory, err := candidate.RequireFunc[candidate.UCBFactory](c, "UCBFactory")
	if err != nil {
		return err
	}
	numActions, err := e.inputScalar("ucb_num_actions")
	if err != nil {
		return err
	}
	actions, err := e.input("ucb_update_actions", 0)
	if err != nil {
		return err
	}
	rewards, err := e.input("ucb_update_rewards", len(actions))
	if err != nil {
		return err
	}

	agent := factory(int(numActions))
	if agent == nil {
		return &candidateError{errors.New("factory returned a nil agent")}
	}
	e.seed(agent)

	for i, action := range actions {
		want, err := e.exact(fmt.Sprintf("ucb_q_step%d", i+1))
		if err != nil {
			return err
		}
		agent.UpdateQ(int(action), rewards[i])
		if err := compare.Exact(agent.Q(), want); err != nil {
			return fmt.Errorf("after update %d (action %d, reward %g): %w", i+1, int(action), rewards[i], err)
		}
	}
	return nil
}

func checkUCBBonus(e *env, c any) error {
	factory, err := candidate.RequireFunc[candidate.UCBFactory](c, "UCBFactory")
	if err != nil {
		return err
	}
	numActions, err := e.inputScalar("ucb_num_actions")
	if err != nil {
		return err
	}
	t, err := e.inputScalar("ucb_bonus_time")
	if err != nil {
		return err
	}
	counts, err := e.input("ucb_bonus_counts", int(numActions))
	if err != nil {
		return err
	}
	want, tol, err := e.vector("ucb_bonus")
	if err != nil {
		return err
	}

	agent := factory(int(numActions))
	if agent == nil {
		return &candidateError{errors.New("factory returned a nil agent")}
	}
	e.seed(agent)

	return compare.Vector(agent.Bonus(int(t), counts), want, tol)
}

// LinUCB actions and rewards driven by the bound and update checks.
const (
	linucbProbe        = 4
	linucbFirstReward  = 3
	linucbSecond       = 1
	linucbSecondReward = 2
)

func newLinUCB(e *env, c any) (candidate.LinUCBAgent, error) {
	factory, err := candidate.RequireFunc[candidate.LinUCBFactory](c, "LinUCBFactory")
	if err != nil {
		return nil, err
	}
	args, err := e.input("linucb_args", 3)
	if err != nil {
		return nil, err
	}
	agent := factory(int(args[0]), args[1], int(args[2]))
	if agent == nil {
		return nil, &candidateError{errors.New("factory returned a nil agent")}
	}
	e.seed(agent)
	return agent, nil
}

func checkLinUCBBound(e *env, c any) error {
	want, tol, err := e.scalar("linucb_ucb")
	if err != nil {
		return err
	}
	x, err := e.input("linucb_data1", 0)
	if err != nil {
		return err
	}
	agent, err := newLinUCB(e, c)
	if err != nil {
		return err
	}

	got, err := agent.UCB(linucbProbe, x)
	if err != nil {
		return &candidateError{fmt.Errorf("UCB(%d): %w", linucbProbe, err)}
	}
	return compare.Scalar(got, want, tol)
}

func checkLinUCBUpdate(e *env, c any) error {
	agent, err := newLinUCB(e, c)
	if err != nil {
		return err
	}

	steps := []struct {
		action int
		reward float64
		data   string
		sums   string
	}{
		{linucbProbe, linucbFirstReward, "linucb_data1", "linucb_sums_after_first"},
		{linucbSecond, linucbSecondReward, "linucb_data2", "linucb_sums_after_second"},
	}
	for _, step := range steps {
		x, err := e.input(step.data, 0)
		if err != nil {
			return err
		}
		want, err := e.exact(step.sums)
		if err != nil {
			return err
		}

		if err := agent.UpdateParams(step.action, step.reward, x); err != nil {
			return &candidateError{fmt.Errorf("update(%d, %g): %w", step.action, step.reward, err)}
		}
		got, err := paramSums(agent.Params())
		if err != nil {
			return &candidateError{err}
		}
		if err := compare.Exact(got, want); err != nil {
			return fmt.Errorf("after update(%d, %g): %w", step.action, step.reward, err)
		}
	}
	return nil
}

// dropNaN returns the non-NaN values of xs. Column aggregates skip missing
// values the way results tables are summarised.
func dropNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// nanMax is the largest non-NaN value of xs, or NaN when there is none.
func nanMax(xs []float64) float64 {
	vals := dropNaN(xs)
	if len(vals) == 0 {
		return math.NaN()
	}
	return floats.Max(vals)
}

// paramSums returns the sum of row 0 across every A and the sum of b[0]
// across every b.
func paramSums(as []mat.Matrix, bs []mat.Vector) ([]float64, error) {
	if len(as) == 0 || len(bs) == 0 {
		return nil, errors.New("agent reports no parameters")
	}
	var rowSum, bSum float64
	for i, a := range as {
		if r, _ := a.Dims(); r == 0 {
			return nil, fmt.Errorf("A[%d] has no rows", i)
		}
		rowSum += floats.Sum(mat.Row(nil, 0, a))
	}
	for i, b := range bs {
		if b.Len() == 0 {
			return nil, fmt.Errorf("b[%d] is empty", i)
		}
		bSum += b.AtVec(0)
	}
	return []float64{rowSum, bSum}, nil
}

func checkLinUCBLogs(e *env, c any) error {
	table, err := candidate.Require[candidate.Table](c, "Table")
	if err != nil {
		return err
	}
	peak, err := e.bounds("linucb_ctr_peak")
	if err != nil {
		return err
	}
	final, err := e.bounds("linucb_ctr_final")
	if err != nil {
		return err
	}
	ctr, err := table.Column("aligned_ctr")
	if err != nil {
		return &candidateError{err}
	}
	rows := table.Len()
	if rows == 0 {
		return &candidateError{errors.New("aligned_ctr column is empty")}
	}
	if rows != len(ctr) {
		return &candidateError{fmt.Errorf("table reports %d rows, aligned_ctr has %d", rows, len(ctr))}
	}

	if err := compare.Range(nanMax(ctr), peak); err != nil {
		return fmt.Errorf("peak aligned_ctr: %w", err)
	}
	if err := compare.Range(ctr[rows-1], final); err != nil {
		return fmt.Errorf("final aligned_ctr: %w", err)
	}
	return nil
}

func checkGAE(e *env, c any) error {
	gae, err := candidate.RequireFunc[candidate.AdvantageFunc](c, "AdvantageFunc")
	if err != nil {
		return err
	}
	values, err := e.input("gae_values", 0)
	if err != nil {
		return err
	}
	rewards, err := e.input("gae_rewards", 0)
	if err != nil {
		return err
	}
	params, err := e.input("gae_params", 3)
	if err != nil {
		return err
	}
	want, tol, err := e.vector("gae_advantages")
	if err != nil {
		return err
	}

	got, err := gae(values, rewards, int(params[0]), params[1], params[2])
	if err != nil {
		return &candidateError{err}
	}
	return compare.Vector(got, want, tol)
}

func checkDiscountedReturn(e *env, c any) error {
	returns, err := candidate.RequireFunc[candidate.ReturnFunc](c, "ReturnFunc")
	if err != nil {
		return err
	}
	rewards, err := e.input("return_rewards", 0)
	if err != nil {
		return err
	}
	discount, err := e.inputScalar("return_discount")
	if err != nil {
		return err
	}
	want, tol, err := e.vector("discounted_returns")
	if err != nil {
		return err
	}

	got, err := returns(rewards, discount)
	if err != nil {
		return &candidateError{err}
	}
	return compare.Vector(got, want, tol)
}

func checkPolicyLoss(e *env, c any) error {
	loss, err := candidate.RequireFunc[candidate.PolicyLossFunc](c, "PolicyLossFunc")
	if err != nil {
		return err
	}
	logps, err := e.input("loss_logps", 0)
	if err != nil {
		return err
	}
	weights, err := e.input("loss_weights", 0)
	if err != nil {
		return err
	}
	want, tol, err := e.scalar("policy_loss")
	if err != nil {
		return err
	}

	got, err := loss(logps, weights)
	if err != nil {
		return &candidateError{err}
	}
	return compare.Scalar(got, want, tol)
}
