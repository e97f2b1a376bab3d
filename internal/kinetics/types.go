package kinetics

import (
	"math"

	"github.com/san-kum/ionlab/internal/exchange"
)

// RateLaw produces loading derivatives for the current state. The default
// law is first-order relaxation toward the equilibrium target; alternative
// laws plug in through this interface.
type RateLaw interface {
	Derive(q []float64, t float64) []float64
}

// Stepper advances a loading vector by one time step under a rate law.
type Stepper interface {
	Step(law RateLaw, q []float64, t, dt float64) []float64
}

// Metric accumulates a scalar over a run.
type Metric interface {
	Name() string
	Observe(sys *exchange.ExchangeSystem, t float64)
	Value() float64
	Reset()
}

// Observer is notified after every accepted step.
type Observer interface {
	OnStep(sys *exchange.ExchangeSystem, t float64)
}

// StepPolicy selects fixed-interval or adaptive stepping.
type StepPolicy string

const (
	FixedStep    StepPolicy = "fixed"
	AdaptiveStep StepPolicy = "adaptive"
)

type Config struct {
	Policy  StepPolicy
	Dt      float64 // initial step, seconds
	Horizon float64 // simulated-time bound, seconds

	MaxSteps int // step-count bound

	// ConvergenceThreshold ends the run early once every per-ion loading
	// change over a full step falls below it.
	ConvergenceThreshold float64

	// RateScale multiplies every per-ion rate constant, 1/s.
	RateScale float64

	// Adaptive policy bounds: halve dt when the max relative loading
	// change exceeds MaxChange, grow it when well below.
	MaxChange float64
	MinDt     float64
	MaxDt     float64
}

func DefaultConfig() Config {
	return Config{
		Policy:               FixedStep,
		Dt:                   0.1,
		Horizon:              60.0,
		MaxSteps:             100000,
		ConvergenceThreshold: 1e-7,
		RateScale:            1.0,
		MaxChange:            0.1,
		MinDt:                1e-6,
		MaxDt:                5.0,
	}
}

func (c Config) Validate() error {
	if c.Dt <= 0 {
		return &exchange.ConfigError{Field: "dt", Value: c.Dt, Reason: "must be positive"}
	}
	if c.Horizon <= 0 {
		return &exchange.ConfigError{Field: "horizon", Value: c.Horizon, Reason: "must be positive"}
	}
	if c.MaxSteps <= 0 {
		return &exchange.ConfigError{Field: "max_steps", Value: c.MaxSteps, Reason: "must be positive"}
	}
	if c.ConvergenceThreshold < 0 {
		return &exchange.ConfigError{Field: "convergence_threshold", Value: c.ConvergenceThreshold, Reason: "must be non-negative"}
	}
	if c.RateScale <= 0 {
		return &exchange.ConfigError{Field: "rate_scale", Value: c.RateScale, Reason: "must be positive"}
	}
	switch c.Policy {
	case FixedStep, AdaptiveStep:
	default:
		return &exchange.ConfigError{Field: "step_policy", Value: string(c.Policy), Reason: "must be fixed or adaptive"}
	}
	if c.Policy == AdaptiveStep {
		if c.MaxChange <= 0 {
			return &exchange.ConfigError{Field: "max_change", Value: c.MaxChange, Reason: "must be positive"}
		}
		if c.MinDt <= 0 || c.MaxDt < c.MinDt {
			return &exchange.ConfigError{Field: "min_dt/max_dt", Value: c.MinDt, Reason: "need 0 < min_dt <= max_dt"}
		}
	}
	return nil
}

// firstOrder is the default rate law: every ion relaxes toward its
// equilibrium loading at its own rate constant.
type firstOrder struct {
	target []float64
	rates  []float64
}

func (f *firstOrder) Derive(q []float64, t float64) []float64 {
	dq := make([]float64, len(q))
	for i := range q {
		dq[i] = f.rates[i] * (f.target[i] - q[i])
	}
	return dq
}

// referenceMobility normalizes tabulated ionic mobilities so a typical ion
// relaxes at about RateScale per second.
const referenceMobility = 5.5e-8

func rateConstants(sys *exchange.ExchangeSystem, scale float64) []float64 {
	rates := make([]float64, len(sys.Species))
	for i, sp := range sys.Species {
		mob := sp.Ion.Mobility
		if mob <= 0 {
			mob = referenceMobility
		}
		rates[i] = scale * mob / referenceMobility
	}
	return rates
}

func maxAbsDelta(a, b []float64) float64 {
	m := 0.0
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > m {
			m = d
		}
	}
	return m
}

func maxRelChange(prev, next []float64, floor float64) float64 {
	m := 0.0
	for i := range prev {
		base := math.Abs(prev[i])
		if base < floor {
			base = floor
		}
		if r := math.Abs(next[i]-prev[i]) / base; r > m {
			m = r
		}
	}
	return m
}
