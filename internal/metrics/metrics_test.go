package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/ionlab/internal/exchange"
)

func sys(loadA, loadB float64) *exchange.ExchangeSystem {
	return &exchange.ExchangeSystem{
		Resin: exchange.Resin{Group: exchange.StrongAcid, Capacity: 2.0},
		Bath:  exchange.InfiniteBath,
		Species: []exchange.Species{
			{Ion: exchange.Ion{ID: "A", Charge: 1, Radius: 0.4}, Concentration: 1.0, Loading: loadA},
			{Ion: exchange.Ion{ID: "B", Charge: 1, Radius: 0.4}, Concentration: 0.5, Loading: loadB},
		},
	}
}

func TestCapacityUtilization(t *testing.T) {
	m := NewCapacityUtilization()
	m.Observe(sys(0.5, 0.5), 0)

	if m.Value() != 0.5 {
		t.Errorf("got %g, want 0.5", m.Value())
	}

	m.Observe(sys(1.0, 1.0), 1)
	if m.Value() != 1.0 {
		t.Errorf("latest value should win: got %g", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("reset should zero the metric")
	}
}

func TestChargeDrift(t *testing.T) {
	m := NewChargeDrift()
	m.Observe(sys(1.0, 1.0), 0)
	m.Observe(sys(1.2, 0.8), 1) // redistribution, same total
	if m.Value() != 0 {
		t.Errorf("pure exchange should not drift, got %g", m.Value())
	}

	m.Observe(sys(1.5, 0.8), 2)
	if math.Abs(m.Value()-0.3) > 1e-12 {
		t.Errorf("drift: got %g, want 0.3", m.Value())
	}
}

func TestExchangeRate(t *testing.T) {
	m := NewExchangeRate()
	m.Observe(sys(0, 0), 0)
	m.Observe(sys(0.4, 0.2), 2.0)

	// 0.6 eq moved over 2 s.
	if math.Abs(m.Value()-0.3) > 1e-12 {
		t.Errorf("rate: got %g, want 0.3", m.Value())
	}
}

func TestSeparationFactor(t *testing.T) {
	m := NewSeparationFactor("A", "B")
	m.Observe(sys(1.0, 0.25), 0)

	// (1.0/1.0) / (0.25/0.5) = 2.0
	if math.Abs(m.Value()-2.0) > 1e-12 {
		t.Errorf("separation factor: got %g, want 2.0", m.Value())
	}
}

func TestSeparationFactor_UnknownIon(t *testing.T) {
	m := NewSeparationFactor("A", "missing")
	m.Observe(sys(1.0, 0.5), 0)
	if m.Value() != 0 {
		t.Errorf("unknown ion should leave the metric at zero, got %g", m.Value())
	}
}
