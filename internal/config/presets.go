package config

var Presets = map[string]map[string]*Config{
	"softening": {
		"municipal": {
			Scenario: "softening", Bath: "finite", Volume: 1.0,
			Resin: ResinConfig{Group: "strong-acid", Capacity: 1.8, Grade: "premium"},
			Ions: []IonConfig{
				{ID: "Ca2+", Concentration: 0.8},
				{ID: "Mg2+", Concentration: 0.4},
				{ID: "Na+", Loading: 1.8},
			},
		},
		"hard-well": {
			Scenario: "softening", Bath: "finite", Volume: 2.0,
			Resin: ResinConfig{Group: "strong-acid", Capacity: 2.0, Grade: "first"},
			Ions: []IonConfig{
				{ID: "Ca2+", Concentration: 2.4},
				{ID: "Mg2+", Concentration: 1.1},
				{ID: "Fe3+", Concentration: 0.05},
				{ID: "Na+", Loading: 2.0},
			},
		},
		"aged-bed": {
			Scenario: "softening", Bath: "finite", Volume: 1.0,
			Resin: ResinConfig{Group: "strong-acid", Capacity: 1.8, Grade: "standard", Cycles: 10},
			Ions: []IonConfig{
				{ID: "Ca2+", Concentration: 0.8},
				{ID: "Mg2+", Concentration: 0.4},
				{ID: "Na+", Loading: 1.1},
			},
		},
	},
	"demineralization": {
		"polish": {
			Scenario: "demineralization", Bath: "finite", Volume: 1.0,
			Resin: ResinConfig{Group: "strong-acid", Capacity: 1.9, Grade: "premium"},
			Ions: []IonConfig{
				{ID: "Na+", Concentration: 0.3},
				{ID: "K+", Concentration: 0.1},
				{ID: "H+", Loading: 1.9},
			},
		},
		"mixed-form": {
			Scenario: "demineralization", Bath: "finite", Volume: 1.0,
			Resin: ResinConfig{Group: "strong-acid", Capacity: 1.9, Grade: "premium"},
			Ions: []IonConfig{
				{ID: "Na+", Concentration: 0.3},
				{ID: "H+"},
			},
			Mixed: &MixedConfig{First: "H+", Second: "Na+", Fraction: 0.7},
		},
	},
	"heavy-metals": {
		"copper-zinc": {
			Scenario: "heavy-metals", Bath: "finite", Volume: 1.0,
			Resin: ResinConfig{Group: "weak-acid", Capacity: 3.5, Grade: "premium"},
			Ions: []IonConfig{
				{ID: "Cu2+", Concentration: 0.15},
				{ID: "Zn2+", Concentration: 0.1},
				{ID: "Na+", Loading: 2.2},
			},
		},
		"aluminum": {
			Scenario: "heavy-metals", Bath: "infinite", Volume: 1.0,
			Resin: ResinConfig{Group: "strong-acid", Capacity: 1.8, Grade: "first"},
			Ions: []IonConfig{
				{ID: "Al3+", Concentration: 0.2},
				{ID: "Na+", Concentration: 0.5},
			},
		},
	},
}

// GetPreset returns a copy of the named preset with solver, kinetics and
// seed blocks filled in from the defaults.
func GetPreset(scenario, preset string) *Config {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	base, ok := scenarioPresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Scenario = base.Scenario
	cfg.Resin = base.Resin
	cfg.Bath = base.Bath
	cfg.Volume = base.Volume
	cfg.Ions = append([]IonConfig(nil), base.Ions...)
	cfg.Mixed = base.Mixed
	return cfg
}

func ListPresets(scenario string) []string {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenarioPresets))
	for name := range scenarioPresets {
		names = append(names, name)
	}
	return names
}
