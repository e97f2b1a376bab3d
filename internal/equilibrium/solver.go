// Package equilibrium computes the steady-state ion distribution between
// solution and resin under selectivity-coefficient mass action, subject to
// the capacity-conservation invariant.
package equilibrium

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ionlab/internal/exchange"
)

type Options struct {
	Tolerance     float64
	MaxIterations int
	// Damping is the successive-substitution relaxation factor in (0, 1].
	Damping float64
}

func DefaultOptions() Options {
	return Options{
		Tolerance:     1e-9,
		MaxIterations: 500,
		Damping:       0.5,
	}
}

func (o Options) Validate() error {
	if o.Tolerance <= 0 {
		return &exchange.ConfigError{Field: "tolerance", Value: o.Tolerance, Reason: "must be positive"}
	}
	if o.MaxIterations <= 0 {
		return &exchange.ConfigError{Field: "max_iterations", Value: o.MaxIterations, Reason: "must be positive"}
	}
	if o.Damping <= 0 || o.Damping > 1 {
		return &exchange.ConfigError{Field: "damping", Value: o.Damping, Reason: "must be in (0, 1]"}
	}
	return nil
}

// Result carries the equilibrated system. On non-convergence it is still
// populated with the best iterate; callers decide whether to retry.
type Result struct {
	System     *exchange.ExchangeSystem
	Iterations int
	MaxDelta   float64
	Converged  bool
}

// Solve runs a damped successive-substitution fixed point on the mass-action
// share equations. Every species needs an affinity; missing ones must be
// filled by the predictor first. The input system is never mutated.
//
// Non-convergence is a reported outcome: the returned error wraps
// ErrDidNotConverge and the result holds the last iterate.
func Solve(sys *exchange.ExchangeSystem, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	for _, sp := range sys.Species {
		if sys.Resin.Group.Accepts(sp.Ion.Charge) && !sp.Ion.HasAffinity {
			return nil, fmt.Errorf("%w: %s has no affinity; predict it before solving",
				exchange.ErrInvalidIon, sp.Ion.ID)
		}
	}

	work := sys.Clone()
	st := newSolveState(work)

	if len(st.active) == 0 {
		return &Result{System: work, Iterations: 0, MaxDelta: 0, Converged: true}, nil
	}

	var maxDelta float64
	for it := 1; it <= opts.MaxIterations; it++ {
		target := st.targetLoadings()

		maxDelta = 0
		for k := range st.active {
			d := target[k] - st.q[k]
			if math.Abs(d) > maxDelta {
				maxDelta = math.Abs(d)
			}
			st.q[k] += opts.Damping * d
		}

		if maxDelta < opts.Tolerance {
			st.writeBack(work)
			return &Result{System: work, Iterations: it, MaxDelta: maxDelta, Converged: true}, nil
		}
	}

	st.writeBack(work)
	logrus.Warnf("equilibrium solve hit iteration bound: max delta %.3g after %d iterations",
		maxDelta, opts.MaxIterations)
	res := &Result{System: work, Iterations: opts.MaxIterations, MaxDelta: maxDelta, Converged: false}
	return res, &exchange.ConvergenceError{
		Iterations: opts.MaxIterations,
		MaxDelta:   maxDelta,
		Tolerance:  opts.Tolerance,
	}
}

// solveState is the per-solve working set. Species the functional group
// rejects stay spectators: their loading is frozen and subtracted from the
// pool the active set competes for.
type solveState struct {
	sys    *exchange.ExchangeSystem
	active []int     // indices into sys.Species
	q      []float64 // current loadings of the active set, eq
	avail  []float64 // per-ion total equivalents (solution + resin), finite bath
	pool   float64   // equivalents the active set distributes
}

func newSolveState(sys *exchange.ExchangeSystem) *solveState {
	st := &solveState{sys: sys}

	frozen := 0.0
	for i, sp := range sys.Species {
		if !sys.Resin.Group.Accepts(sp.Ion.Charge) {
			frozen += sp.Loading
			continue
		}
		if sp.Concentration == 0 && sp.Loading == 0 {
			// Inactive by the zero-concentration edge case; contributes
			// nothing and is excluded from the constraint set.
			continue
		}
		st.active = append(st.active, i)
		st.q = append(st.q, sp.Loading)
		st.avail = append(st.avail, sp.Concentration*sys.Volume+sp.Loading)
	}

	capacity := math.Max(0, sys.Resin.EffectiveCapacity()-frozen)
	switch sys.Bath {
	case exchange.FiniteBath:
		total := 0.0
		for _, a := range st.avail {
			total += a
		}
		st.pool = math.Min(capacity, total)
	default:
		// Infinite bath: the feed replenishes the solution, so the resin
		// always saturates as long as anything is dissolved.
		st.pool = capacity
		dissolved := false
		for _, i := range st.active {
			if sys.Species[i].Concentration > 0 {
				dissolved = true
				break
			}
		}
		if !dissolved {
			boundOnly := 0.0
			for _, qi := range st.q {
				boundOnly += qi
			}
			st.pool = math.Min(capacity, boundOnly)
		}
	}
	return st
}

// targetLoadings evaluates one substitution step: selectivity-weighted
// shares of the pool, with finite-bath shares capped at what each ion can
// supply and the excess redistributed.
func (st *solveState) targetLoadings() []float64 {
	n := len(st.active)
	target := make([]float64, n)

	weights := make([]float64, n)
	sum := 0.0
	for k, i := range st.active {
		sp := st.sys.Species[i]
		c := st.concentration(k, sp)
		weights[k] = sp.Ion.Affinity * c
		sum += weights[k]
	}

	if sum == 0 {
		// Solution exhausted: whatever each ion brought is bound.
		if st.sys.Bath == exchange.FiniteBath {
			copy(target, st.avail)
		} else {
			copy(target, st.q)
		}
		return target
	}

	for k := range target {
		target[k] = st.pool * weights[k] / sum
	}

	if st.sys.Bath == exchange.FiniteBath {
		st.capToAvailable(target, weights)
	}
	return target
}

func (st *solveState) concentration(k int, sp exchange.Species) float64 {
	if st.sys.Bath == exchange.FiniteBath {
		return math.Max(0, (st.avail[k]-st.q[k])/st.sys.Volume)
	}
	return sp.Concentration
}

// capToAvailable clamps shares that exceed an ion's total equivalents and
// hands the surplus to the uncapped ions, weight-proportionally. Bounded by
// one pass per active ion.
func (st *solveState) capToAvailable(target, weights []float64) {
	capped := make([]bool, len(target))
	for pass := 0; pass < len(target); pass++ {
		surplus := 0.0
		freeWeight := 0.0
		for k := range target {
			if capped[k] {
				continue
			}
			if target[k] > st.avail[k] {
				surplus += target[k] - st.avail[k]
				target[k] = st.avail[k]
				capped[k] = true
			} else {
				freeWeight += weights[k]
			}
		}
		if surplus == 0 || freeWeight == 0 {
			return
		}
		for k := range target {
			if !capped[k] {
				target[k] += surplus * weights[k] / freeWeight
			}
		}
	}
}

func (st *solveState) writeBack(sys *exchange.ExchangeSystem) {
	for k, i := range st.active {
		sys.Species[i].Loading = st.q[k]
		if sys.Bath == exchange.FiniteBath {
			sys.Species[i].Concentration = math.Max(0, (st.avail[k]-st.q[k])/sys.Volume)
		}
	}
}
