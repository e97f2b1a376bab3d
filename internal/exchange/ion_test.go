package exchange

import (
	"errors"
	"math"
	"testing"
)

func TestIonValidate(t *testing.T) {
	ion := Ion{ID: "Na+", Charge: 1, Radius: 0.36}
	if err := ion.Validate(); err != nil {
		t.Errorf("valid ion rejected: %v", err)
	}
}

func TestIonValidate_ZeroCharge(t *testing.T) {
	ion := Ion{ID: "X", Charge: 0, Radius: 0.3}
	err := ion.Validate()
	if !errors.Is(err, ErrInvalidIon) {
		t.Errorf("expected ErrInvalidIon for zero charge, got %v", err)
	}
}

func TestIonValidate_NonPositiveRadius(t *testing.T) {
	ion := Ion{ID: "X", Charge: 1, Radius: 0}
	if err := ion.Validate(); !errors.Is(err, ErrInvalidIon) {
		t.Errorf("expected ErrInvalidIon for zero radius, got %v", err)
	}
	ion.Radius = -0.1
	if err := ion.Validate(); !errors.Is(err, ErrInvalidIon) {
		t.Errorf("expected ErrInvalidIon for negative radius, got %v", err)
	}
}

func TestIonValidate_BadAffinity(t *testing.T) {
	ion := Ion{ID: "X", Charge: 1, Radius: 0.3, HasAffinity: true, Affinity: -1}
	if err := ion.Validate(); !errors.Is(err, ErrInvalidIon) {
		t.Errorf("expected ErrInvalidIon for negative affinity, got %v", err)
	}
	ion.Affinity = math.NaN()
	if err := ion.Validate(); !errors.Is(err, ErrInvalidIon) {
		t.Errorf("expected ErrInvalidIon for NaN affinity, got %v", err)
	}
}

func TestWithAffinity(t *testing.T) {
	ion := Ion{ID: "X", Charge: 1, Radius: 0.3}
	tagged := ion.WithAffinity(2.5, Predicted)

	if !tagged.HasAffinity || tagged.Affinity != 2.5 {
		t.Errorf("affinity not set: %+v", tagged)
	}
	if tagged.Source != Predicted {
		t.Errorf("expected predicted source, got %s", tagged.Source)
	}
	if ion.HasAffinity {
		t.Error("original ion mutated")
	}
}
