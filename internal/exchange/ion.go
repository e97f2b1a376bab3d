package exchange

import (
	"fmt"
	"math"
)

// SourceTag records whether an ion's affinity came from measurement or
// from the property predictor.
type SourceTag string

const (
	Measured  SourceTag = "measured"
	Predicted SourceTag = "predicted"
)

// Ion is a single exchangeable species. Radius is the hydrated radius in nm,
// HydrationEnergy in kJ/mol, Mobility in cm^2/(V*s). Affinity is the
// selectivity coefficient relative to H+ on a strong-acid gel resin and is
// only meaningful when HasAffinity is set.
type Ion struct {
	ID                string    `yaml:"id"`
	Charge            int       `yaml:"charge"`
	Radius            float64   `yaml:"radius"`
	HydrationEnergy   float64   `yaml:"hydration_energy"`
	Electronegativity float64   `yaml:"electronegativity"`
	HydrationNumber   int       `yaml:"hydration_number"`
	Affinity          float64   `yaml:"affinity"`
	HasAffinity       bool      `yaml:"has_affinity"`
	Mobility          float64   `yaml:"mobility"`
	Source            SourceTag `yaml:"source"`
}

func (i Ion) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidIon)
	}
	if i.Charge == 0 {
		return fmt.Errorf("%w: %s has zero charge", ErrInvalidIon, i.ID)
	}
	if i.Radius <= 0 {
		return fmt.Errorf("%w: %s has non-positive radius %g", ErrInvalidIon, i.ID, i.Radius)
	}
	if i.HasAffinity {
		if math.IsNaN(i.Affinity) || math.IsInf(i.Affinity, 0) {
			return fmt.Errorf("%w: %s has non-finite affinity", ErrInvalidIon, i.ID)
		}
		if i.Affinity < 0 {
			return fmt.Errorf("%w: %s has negative affinity %g", ErrInvalidIon, i.ID, i.Affinity)
		}
	}
	return nil
}

// WithAffinity returns a copy with the affinity set and tagged.
func (i Ion) WithAffinity(affinity float64, source SourceTag) Ion {
	i.Affinity = affinity
	i.HasAffinity = true
	i.Source = source
	return i
}
