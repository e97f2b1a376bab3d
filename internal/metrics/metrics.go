// Package metrics provides per-step observers for kinetics runs.
package metrics

import (
	"math"

	"github.com/san-kum/ionlab/internal/exchange"
)

// CapacityUtilization reports the fraction of effective capacity bound at
// the latest observed step.
type CapacityUtilization struct {
	latest float64
}

func NewCapacityUtilization() *CapacityUtilization { return &CapacityUtilization{} }

func (c *CapacityUtilization) Name() string { return "capacity_utilization" }

func (c *CapacityUtilization) Observe(sys *exchange.ExchangeSystem, t float64) {
	cap := sys.Resin.EffectiveCapacity()
	if cap <= 0 {
		return
	}
	c.latest = sys.TotalLoading() / cap
}

func (c *CapacityUtilization) Value() float64 { return c.latest }
func (c *CapacityUtilization) Reset()         { c.latest = 0 }

// ChargeDrift tracks the largest deviation of the charge-weighted bound
// pool from its initial value. For a pure counter-exchange it should stay
// near zero.
type ChargeDrift struct {
	initial  float64
	maxDrift float64
	seen     bool
}

func NewChargeDrift() *ChargeDrift { return &ChargeDrift{} }

func (d *ChargeDrift) Name() string { return "charge_drift" }

func (d *ChargeDrift) Observe(sys *exchange.ExchangeSystem, t float64) {
	total := sys.TotalLoading()
	if !d.seen {
		d.initial = total
		d.seen = true
		return
	}
	if drift := math.Abs(total - d.initial); drift > d.maxDrift {
		d.maxDrift = drift
	}
}

func (d *ChargeDrift) Value() float64 { return d.maxDrift }

func (d *ChargeDrift) Reset() {
	d.initial = 0
	d.maxDrift = 0
	d.seen = false
}

// ExchangeRate reports the mean absolute loading change per simulated
// second across the run.
type ExchangeRate struct {
	prev     []float64
	prevTime float64
	total    float64
	elapsed  float64
	seen     bool
}

func NewExchangeRate() *ExchangeRate { return &ExchangeRate{} }

func (e *ExchangeRate) Name() string { return "exchange_rate" }

func (e *ExchangeRate) Observe(sys *exchange.ExchangeSystem, t float64) {
	q := sys.Loadings()
	if e.seen && t > e.prevTime {
		for i := range q {
			if i < len(e.prev) {
				e.total += math.Abs(q[i] - e.prev[i])
			}
		}
		e.elapsed += t - e.prevTime
	}
	e.prev = q
	e.prevTime = t
	e.seen = true
}

func (e *ExchangeRate) Value() float64 {
	if e.elapsed == 0 {
		return 0
	}
	return e.total / e.elapsed
}

func (e *ExchangeRate) Reset() {
	e.prev = nil
	e.prevTime = 0
	e.total = 0
	e.elapsed = 0
	e.seen = false
}

// SeparationFactor reports the resin's realized preference for one ion over
// another at the latest step: (q_a/c_a) / (q_b/c_b). Zero until both ions
// have positive concentration and the comparison ion holds some loading.
type SeparationFactor struct {
	a, b   string
	latest float64
}

func NewSeparationFactor(preferred, reference string) *SeparationFactor {
	return &SeparationFactor{a: preferred, b: reference}
}

func (s *SeparationFactor) Name() string { return "separation_factor" }

func (s *SeparationFactor) Observe(sys *exchange.ExchangeSystem, t float64) {
	ia, ib := sys.Lookup(s.a), sys.Lookup(s.b)
	if ia < 0 || ib < 0 {
		return
	}
	spA, spB := sys.Species[ia], sys.Species[ib]
	if spA.Concentration <= 0 || spB.Concentration <= 0 || spB.Loading <= 0 {
		return
	}
	s.latest = (spA.Loading / spA.Concentration) / (spB.Loading / spB.Concentration)
}

func (s *SeparationFactor) Value() float64 { return s.latest }
func (s *SeparationFactor) Reset()         { s.latest = 0 }
