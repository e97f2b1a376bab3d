package exchange

import (
	"fmt"
	"math"
)

// BathMode selects how the solution phase behaves during a solve or run.
// An infinite bath holds concentrations fixed (column-feed abstraction);
// a finite bath depletes as the resin loads.
type BathMode string

const (
	InfiniteBath BathMode = "infinite"
	FiniteBath   BathMode = "finite"
)

// Species is one ion present in the system: its solution concentration in
// eq/L and the equivalents currently bound to the resin.
type Species struct {
	Ion           Ion     `yaml:"ion"`
	Concentration float64 `yaml:"concentration"`
	Loading       float64 `yaml:"loading"`
}

// ExchangeSystem pairs a resin batch with the ions contacting it.
// Volume is the bath volume in liters (finite bath only).
type ExchangeSystem struct {
	Resin   Resin     `yaml:"resin"`
	Volume  float64   `yaml:"volume"`
	Bath    BathMode  `yaml:"bath"`
	Species []Species `yaml:"species"`
}

func (s *ExchangeSystem) Validate() error {
	if err := s.Resin.Validate(); err != nil {
		return err
	}
	if s.Bath == FiniteBath && s.Volume <= 0 {
		return fmt.Errorf("%w: finite bath requires positive volume, got %g", ErrConfiguration, s.Volume)
	}
	seen := make(map[string]bool, len(s.Species))
	for _, sp := range s.Species {
		if err := sp.Ion.Validate(); err != nil {
			return err
		}
		if seen[sp.Ion.ID] {
			return fmt.Errorf("%w: %s listed twice", ErrDuplicateIon, sp.Ion.ID)
		}
		seen[sp.Ion.ID] = true
		if sp.Concentration < 0 {
			return fmt.Errorf("%w: %s has negative concentration %g", ErrInvalidIon, sp.Ion.ID, sp.Concentration)
		}
		if sp.Loading < 0 {
			return fmt.Errorf("%w: %s has negative loading %g", ErrInvalidIon, sp.Ion.ID, sp.Loading)
		}
	}
	if total := s.TotalLoading(); total > s.Resin.EffectiveCapacity()+1e-9 {
		return fmt.Errorf("%w: total loading %g exceeds effective capacity %g",
			ErrConfiguration, total, s.Resin.EffectiveCapacity())
	}
	return nil
}

func (s *ExchangeSystem) Clone() *ExchangeSystem {
	out := *s
	out.Species = make([]Species, len(s.Species))
	copy(out.Species, s.Species)
	return &out
}

// TotalLoading is the bound pool in equivalents. Equivalents are already
// charge-weighted, so this doubles as the charge-balance sum.
func (s *ExchangeSystem) TotalLoading() float64 {
	total := 0.0
	for _, sp := range s.Species {
		total += sp.Loading
	}
	return total
}

// Loadings returns the loading vector in species order.
func (s *ExchangeSystem) Loadings() []float64 {
	q := make([]float64, len(s.Species))
	for i, sp := range s.Species {
		q[i] = sp.Loading
	}
	return q
}

// SetLoadings writes a loading vector back, rebalancing a finite bath from
// per-ion conservation of equivalents.
func (s *ExchangeSystem) SetLoadings(q []float64) {
	for i := range s.Species {
		if i >= len(q) {
			break
		}
		prev := s.Species[i].Loading
		s.Species[i].Loading = q[i]
		if s.Bath == FiniteBath && s.Volume > 0 {
			c := s.Species[i].Concentration + (prev-q[i])/s.Volume
			s.Species[i].Concentration = math.Max(0, c)
		}
	}
}

// Lookup returns the index of an ion in the species list, or -1.
func (s *ExchangeSystem) Lookup(id string) int {
	for i, sp := range s.Species {
		if sp.Ion.ID == id {
			return i
		}
	}
	return -1
}

// Sample is one point of a trajectory: simulated time in seconds and a
// snapshot of the whole system at that time.
type Sample struct {
	Time   float64
	System ExchangeSystem
}

// Trajectory is the ordered output of one kinetics run. It always contains
// the initial and final states and is owned by the caller; the simulator
// never retains or mutates it after returning.
type Trajectory struct {
	Samples   []Sample
	Steps     int
	Converged bool
}

func (t *Trajectory) Initial() *ExchangeSystem {
	if len(t.Samples) == 0 {
		return nil
	}
	return &t.Samples[0].System
}

func (t *Trajectory) Final() *ExchangeSystem {
	if len(t.Samples) == 0 {
		return nil
	}
	return &t.Samples[len(t.Samples)-1].System
}

// Series extracts the loading of one ion over time, for plotting.
func (t *Trajectory) Series(id string) (times, loadings []float64) {
	times = make([]float64, 0, len(t.Samples))
	loadings = make([]float64, 0, len(t.Samples))
	for _, smp := range t.Samples {
		idx := smp.System.Lookup(id)
		if idx < 0 {
			continue
		}
		times = append(times, smp.Time)
		loadings = append(loadings, smp.System.Species[idx].Loading)
	}
	return times, loadings
}
