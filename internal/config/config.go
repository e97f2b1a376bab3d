package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ionlab/internal/catalog"
	"github.com/san-kum/ionlab/internal/equilibrium"
	"github.com/san-kum/ionlab/internal/exchange"
	"github.com/san-kum/ionlab/internal/kinetics"
)

// Defaults follow the styrene-divinylbenzene reference resin.
const (
	DefaultCapacity  = 1.8
	DefaultVolume    = 1.0
	DefaultTolerance = 1e-9
	DefaultMaxIter   = 500
	DefaultDamping   = 0.5
	DefaultSeed      = 42
)

type Config struct {
	Scenario string         `yaml:"scenario"`
	Resin    ResinConfig    `yaml:"resin"`
	Bath     string         `yaml:"bath"`
	Volume   float64        `yaml:"volume"`
	Ions     []IonConfig    `yaml:"ions"`
	Mixed    *MixedConfig   `yaml:"mixed_form,omitempty"`
	Solver   SolverConfig   `yaml:"solver"`
	Kinetics KineticsConfig `yaml:"kinetics"`
	Seed     int64          `yaml:"seed"`
}

type ResinConfig struct {
	Group    string  `yaml:"group"`
	Capacity float64 `yaml:"capacity"`
	Grade    string  `yaml:"grade"`
	// Cycles pre-ages the resin before the run.
	Cycles int `yaml:"cycles"`
}

type IonConfig struct {
	ID            string  `yaml:"id"`
	Concentration float64 `yaml:"concentration"`
	Loading       float64 `yaml:"loading"`
}

// MixedConfig pre-loads the resin as a blend of two ionic forms.
type MixedConfig struct {
	First    string  `yaml:"first"`
	Second   string  `yaml:"second"`
	Fraction float64 `yaml:"fraction"`
}

type SolverConfig struct {
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
	Damping       float64 `yaml:"damping"`
}

type KineticsConfig struct {
	Policy               string  `yaml:"step_policy"`
	Stepper              string  `yaml:"stepper"`
	Dt                   float64 `yaml:"dt"`
	Horizon              float64 `yaml:"horizon"`
	MaxSteps             int     `yaml:"max_steps"`
	ConvergenceThreshold float64 `yaml:"convergence_threshold"`
	RateScale            float64 `yaml:"rate_scale"`
	MaxChange            float64 `yaml:"max_change"`
	MinDt                float64 `yaml:"min_dt"`
	MaxDt                float64 `yaml:"max_dt"`
}

func DefaultConfig() *Config {
	kin := kinetics.DefaultConfig()
	return &Config{
		Scenario: "softening",
		Resin:    ResinConfig{Group: "strong-acid", Capacity: DefaultCapacity, Grade: "premium"},
		Bath:     string(exchange.FiniteBath),
		Volume:   DefaultVolume,
		Ions: []IonConfig{
			{ID: "Ca2+", Concentration: 0.8},
			{ID: "Mg2+", Concentration: 0.4},
			{ID: "Na+", Loading: DefaultCapacity},
		},
		Solver: SolverConfig{
			Tolerance:     DefaultTolerance,
			MaxIterations: DefaultMaxIter,
			Damping:       DefaultDamping,
		},
		Kinetics: KineticsConfig{
			Policy:               string(kin.Policy),
			Stepper:              "rk4",
			Dt:                   kin.Dt,
			Horizon:              kin.Horizon,
			MaxSteps:             kin.MaxSteps,
			ConvergenceThreshold: kin.ConvergenceThreshold,
			RateScale:            kin.RateScale,
			MaxChange:            kin.MaxChange,
			MinDt:                kin.MinDt,
			MaxDt:                kin.MaxDt,
		},
		Seed: DefaultSeed,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildSystem resolves ion ids against the catalog and assembles the
// exchange system, including pre-aged resin and mixed-form loading.
func (c *Config) BuildSystem(cat *catalog.Catalog) (*exchange.ExchangeSystem, error) {
	group, err := exchange.ParseFunctionalGroup(c.Resin.Group)
	if err != nil {
		return nil, err
	}

	resin := exchange.Resin{
		Group:    group,
		Capacity: c.Resin.Capacity,
		Grade:    exchange.Grade(c.Resin.Grade),
	}
	if c.Resin.Cycles > 0 {
		resin = resin.Degrade(c.Resin.Cycles)
	}

	sys := &exchange.ExchangeSystem{
		Resin:  resin,
		Volume: c.Volume,
		Bath:   exchange.BathMode(c.Bath),
	}

	for _, ic := range c.Ions {
		ion, err := cat.Lookup(ic.ID)
		if err != nil {
			return nil, err
		}
		sys.Species = append(sys.Species, exchange.Species{
			Ion:           ion,
			Concentration: ic.Concentration,
			Loading:       ic.Loading,
		})
	}

	if c.Mixed != nil {
		first, second := sys.Lookup(c.Mixed.First), sys.Lookup(c.Mixed.Second)
		if first < 0 || second < 0 {
			return nil, &exchange.ConfigError{
				Field:  "mixed_form",
				Value:  c.Mixed.First + "/" + c.Mixed.Second,
				Reason: "both ions must appear in the ion list",
			}
		}
		qa, qb := exchange.MixedLoading(resin.EffectiveCapacity(), c.Mixed.Fraction)
		sys.Species[first].Loading = qa
		sys.Species[second].Loading = qb
	}

	if err := sys.Validate(); err != nil {
		return nil, err
	}
	return sys, nil
}

func (c *Config) SolverOptions() equilibrium.Options {
	return equilibrium.Options{
		Tolerance:     c.Solver.Tolerance,
		MaxIterations: c.Solver.MaxIterations,
		Damping:       c.Solver.Damping,
	}
}

func (c *Config) KineticsOptions() kinetics.Config {
	return kinetics.Config{
		Policy:               kinetics.StepPolicy(c.Kinetics.Policy),
		Dt:                   c.Kinetics.Dt,
		Horizon:              c.Kinetics.Horizon,
		MaxSteps:             c.Kinetics.MaxSteps,
		ConvergenceThreshold: c.Kinetics.ConvergenceThreshold,
		RateScale:            c.Kinetics.RateScale,
		MaxChange:            c.Kinetics.MaxChange,
		MinDt:                c.Kinetics.MinDt,
		MaxDt:                c.Kinetics.MaxDt,
	}
}

// Stepper builds the configured time stepper, defaulting to RK4.
func (c *Config) Stepper() kinetics.Stepper {
	switch c.Kinetics.Stepper {
	case "euler":
		return kinetics.NewEuler()
	default:
		return kinetics.NewRK4()
	}
}
