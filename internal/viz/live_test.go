package viz

import (
	"strings"
	"testing"

	"github.com/san-kum/ionlab/internal/exchange"
)

func replayModel() Model {
	sys := exchange.ExchangeSystem{
		Resin: exchange.Resin{Group: exchange.StrongAcid, Capacity: 2.0, Grade: exchange.GradePremium},
		Bath:  exchange.InfiniteBath,
		Species: []exchange.Species{
			{Ion: exchange.Ion{ID: "Ca2+", Charge: 2, Radius: 0.41}, Concentration: 1.0, Loading: 1.2},
			{Ion: exchange.Ion{ID: "Na+", Charge: 1, Radius: 0.36}, Concentration: 1.0, Loading: 0.8},
		},
	}
	traj := &exchange.Trajectory{
		Samples: []exchange.Sample{{Time: 0, System: sys}},
	}
	return NewModel(traj, nil, map[string]float64{
		"exchange_rate":        0.5,
		"capacity_utilization": 1.0,
	})
}

func TestView_MetricsSorted(t *testing.T) {
	m := replayModel()
	out := m.View()

	i := strings.Index(out, "capacity_utilization")
	j := strings.Index(out, "exchange_rate")
	if i < 0 || j < 0 {
		t.Fatalf("metrics missing from view:\n%s", out)
	}
	if i > j {
		t.Error("metric lines should render in name order")
	}
	if m.View() != out {
		t.Error("rendering the same frame twice should give identical output")
	}
}

func TestScrub_ClampsToSamples(t *testing.T) {
	m := replayModel()
	m.scrub(-5)
	if m.playHead != 0 {
		t.Errorf("scrub below zero: playHead %d", m.playHead)
	}
	m.scrub(10)
	if m.playHead != len(m.traj.Samples)-1 {
		t.Errorf("scrub past end: playHead %d", m.playHead)
	}
}
