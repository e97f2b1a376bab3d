// Package kinetics advances an exchange system from a non-equilibrium state
// toward the equilibrium solver's target, producing a trajectory.
package kinetics

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ionlab/internal/exchange"
)

type Simulator struct {
	stepper   Stepper
	metrics   []Metric
	observers []Observer
}

func New(stepper Stepper) *Simulator {
	return &Simulator{stepper: stepper}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Result owns the trajectory of one run plus the metric values accumulated
// over it.
type Result struct {
	Trajectory *exchange.Trajectory
	Metrics    map[string]float64
	Elapsed    float64 // simulated seconds
	FinalDt    float64
}

// Run relaxes initial toward target. Both systems must list the same
// species in the same order. The run ends at the horizon (simulated time or
// step count) or as soon as every per-ion change over a full step falls
// below the convergence threshold, whichever comes first. The trajectory
// always includes the initial and final states.
//
// Cancelling the context returns the partial trajectory with ctx.Err().
func (s *Simulator) Run(ctx context.Context, initial, target *exchange.ExchangeSystem, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	if len(initial.Species) != len(target.Species) {
		return nil, &exchange.ConfigError{Field: "target", Value: len(target.Species),
			Reason: "species count differs from initial system"}
	}
	for i := range initial.Species {
		if initial.Species[i].Ion.ID != target.Species[i].Ion.ID {
			return nil, &exchange.ConfigError{Field: "target", Value: target.Species[i].Ion.ID,
				Reason: "species order differs from initial system"}
		}
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	work := initial.Clone()
	law := &firstOrder{
		target: target.Loadings(),
		rates:  rateConstants(initial, cfg.RateScale),
	}

	traj := &exchange.Trajectory{}
	traj.Samples = append(traj.Samples, exchange.Sample{Time: 0, System: *work.Clone()})

	q := work.Loadings()
	t := 0.0
	dt := cfg.Dt

	s.observe(work, t)

	for step := 0; step < cfg.MaxSteps && t < cfg.Horizon; step++ {
		select {
		case <-ctx.Done():
			return &Result{Trajectory: traj, Metrics: s.metricValues(), Elapsed: t, FinalDt: dt}, ctx.Err()
		default:
		}

		if t+dt > cfg.Horizon {
			dt = cfg.Horizon - t
		}

		next := s.stepper.Step(law, q, t, dt)

		rel := maxRelChange(q, next, 1e-12)
		if cfg.Policy == AdaptiveStep {
			for rel > cfg.MaxChange && dt > cfg.MinDt {
				dt = math.Max(dt/2, cfg.MinDt)
				next = s.stepper.Step(law, q, t, dt)
				rel = maxRelChange(q, next, 1e-12)
			}
		}

		clampLoadings(next, work.Resin.EffectiveCapacity())

		delta := maxAbsDelta(q, next)
		q = next
		t += dt
		traj.Steps++

		work.SetLoadings(q)
		traj.Samples = append(traj.Samples, exchange.Sample{Time: t, System: *work.Clone()})
		s.observe(work, t)

		if delta < cfg.ConvergenceThreshold {
			traj.Converged = true
			logrus.Debugf("kinetics converged after %d steps (t=%.3fs, max delta %.3g)",
				traj.Steps, t, delta)
			break
		}

		if cfg.Policy == AdaptiveStep && rel < cfg.MaxChange/4 {
			dt = math.Min(dt*2, cfg.MaxDt)
		}
	}

	if !traj.Converged && traj.Steps >= cfg.MaxSteps {
		logrus.Warnf("kinetics hit step bound %d before converging", cfg.MaxSteps)
	}

	return &Result{Trajectory: traj, Metrics: s.metricValues(), Elapsed: t, FinalDt: dt}, nil
}

func (s *Simulator) observe(sys *exchange.ExchangeSystem, t float64) {
	for _, m := range s.metrics {
		m.Observe(sys, t)
	}
	for _, o := range s.observers {
		o.OnStep(sys, t)
	}
}

func (s *Simulator) metricValues() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// clampLoadings keeps a stepped vector physical: no negative loadings and
// no total above the effective capacity. Overshoot can only come from the
// numerical step, so scaling back preserves the step's proportions.
func clampLoadings(q []float64, capacity float64) {
	total := 0.0
	for i := range q {
		if q[i] < 0 {
			q[i] = 0
		}
		total += q[i]
	}
	if total > capacity && total > 0 {
		f := capacity / total
		for i := range q {
			q[i] *= f
		}
	}
}
