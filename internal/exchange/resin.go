package exchange

import "fmt"

// FunctionalGroup is the resin's fixed ionic group. The set is closed:
// every switch over it must handle all four cases.
type FunctionalGroup int

const (
	StrongAcid FunctionalGroup = iota
	WeakAcid
	StrongBase
	WeakBase
)

func (g FunctionalGroup) String() string {
	switch g {
	case StrongAcid:
		return "strong-acid"
	case WeakAcid:
		return "weak-acid"
	case StrongBase:
		return "strong-base"
	case WeakBase:
		return "weak-base"
	default:
		return fmt.Sprintf("functional-group(%d)", int(g))
	}
}

func ParseFunctionalGroup(s string) (FunctionalGroup, error) {
	switch s {
	case "strong-acid":
		return StrongAcid, nil
	case "weak-acid":
		return WeakAcid, nil
	case "strong-base":
		return StrongBase, nil
	case "weak-base":
		return WeakBase, nil
	default:
		return 0, fmt.Errorf("%w: unknown functional group %q", ErrConfiguration, s)
	}
}

// Accepts reports whether the group exchanges ions of the given charge sign.
// Acid groups exchange cations, base groups anions.
func (g FunctionalGroup) Accepts(charge int) bool {
	switch g {
	case StrongAcid, WeakAcid:
		return charge > 0
	case StrongBase, WeakBase:
		return charge < 0
	default:
		return false
	}
}

// DissociationFactor scales nominal capacity to the exchange-active fraction.
// Weak groups are only partially dissociated at neutral operating pH.
func (g FunctionalGroup) DissociationFactor() float64 {
	switch g {
	case StrongAcid, StrongBase:
		return 1.0
	case WeakAcid:
		return 0.65
	case WeakBase:
		return 0.55
	default:
		return 0
	}
}

// Grade is the manufacturing quality band; it sets how much capacity the
// resin retains per regeneration cycle.
type Grade string

const (
	GradePremium  Grade = "premium"
	GradeFirst    Grade = "first"
	GradeStandard Grade = "standard"
)

func (g Grade) RetentionPerCycle() float64 {
	switch g {
	case GradePremium:
		return 0.995
	case GradeFirst:
		return 0.985
	case GradeStandard:
		return 0.975
	default:
		return 0.98
	}
}

// Resin describes one batch of exchange polymer. Capacity is the total
// exchange capacity in equivalents.
type Resin struct {
	Group    FunctionalGroup `yaml:"group"`
	Capacity float64         `yaml:"capacity"`
	Grade    Grade           `yaml:"grade"`
}

func (r Resin) Validate() error {
	if r.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %g", ErrConfiguration, r.Capacity)
	}
	return nil
}

// EffectiveCapacity is the exchange-active capacity after dissociation.
func (r Resin) EffectiveCapacity() float64 {
	return r.Capacity * r.Group.DissociationFactor()
}

// Degrade returns the resin after the given number of osmotic
// load/regenerate cycles. The original batch is unchanged.
func (r Resin) Degrade(cycles int) Resin {
	retention := r.Grade.RetentionPerCycle()
	out := r
	for i := 0; i < cycles; i++ {
		out.Capacity *= retention
	}
	return out
}

// MixedLoading splits a bound pool between two ionic forms.
// fraction is the share of the first form, clamped to [0, 1].
func MixedLoading(total, fraction float64) (first, second float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return total * fraction, total * (1 - fraction)
}
