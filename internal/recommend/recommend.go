// Package recommend scores catalog ions against per-application requirement
// ranges, suggesting which ionic form suits a duty.
package recommend

import (
	"fmt"
	"sort"

	"github.com/san-kum/ionlab/internal/catalog"
	"github.com/san-kum/ionlab/internal/exchange"
)

// Application is a closed set of supported duties plus a custom escape
// hatch that supplies its own requirement profile.
type Application string

const (
	Softening        Application = "softening"
	Demineralization Application = "demineralization"
	HeavyMetals      Application = "heavy-metals"
	Custom           Application = "custom"
)

// Requirement is an inclusive acceptance band for one ion property.
type Requirement struct {
	Min float64
	Max float64
}

// Profile maps property names (affinity, charge, radius, mobility,
// hydration_energy) to requirement bands.
type Profile map[string]Requirement

var applicationProfiles = map[Application]Profile{
	// Softening wants strongly-held multivalent hardness ions.
	Softening: {
		"affinity": {Min: 2.5, Max: 10},
		"charge":   {Min: 2, Max: 3},
	},
	// Demineralization cycles on the proton form: small, mobile, easily
	// regenerated.
	Demineralization: {
		"affinity": {Min: 0, Max: 1.6},
		"mobility": {Min: 5.0e-8, Max: 1e-6},
	},
	// Heavy-metal capture favors high affinity and high hydration energy.
	HeavyMetals: {
		"affinity":         {Min: 2.6, Max: 10},
		"hydration_energy": {Min: 1500, Max: 10000},
	},
}

type Recommendation struct {
	Ion     exchange.Ion
	Score   float64
	Matched []string
}

// Recommend scores every catalog ion against the application's profile and
// returns those at or above minScore, best first. For Custom the caller
// supplies the profile.
func Recommend(cat *catalog.Catalog, app Application, custom Profile, minScore float64) ([]Recommendation, error) {
	profile, ok := applicationProfiles[app]
	if app == Custom {
		profile, ok = custom, len(custom) > 0
	}
	if !ok {
		return nil, &exchange.ConfigError{Field: "application", Value: string(app),
			Reason: "unknown application or empty custom profile"}
	}

	out := make([]Recommendation, 0, cat.Len())
	for _, ion := range cat.All() {
		score, matched := evaluate(ion, profile)
		if score >= minScore {
			out = append(out, Recommendation{Ion: ion, Score: score, Matched: matched})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Ion.ID < out[j].Ion.ID
	})
	return out, nil
}

// Best returns the top recommendation, or ErrNotFound when nothing scores
// high enough.
func Best(cat *catalog.Catalog, app Application, custom Profile, minScore float64) (Recommendation, error) {
	recs, err := Recommend(cat, app, custom, minScore)
	if err != nil {
		return Recommendation{}, err
	}
	if len(recs) == 0 {
		return Recommendation{}, fmt.Errorf("%w: no ion meets the %s profile", exchange.ErrNotFound, app)
	}
	return recs[0], nil
}

func evaluate(ion exchange.Ion, profile Profile) (float64, []string) {
	if len(profile) == 0 {
		return 0, nil
	}
	props := properties(ion)
	matched := make([]string, 0, len(profile))
	for name, req := range profile {
		v, ok := props[name]
		if !ok {
			continue
		}
		if v >= req.Min && v <= req.Max {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)
	return float64(len(matched)) / float64(len(profile)), matched
}

func properties(ion exchange.Ion) map[string]float64 {
	props := map[string]float64{
		"charge":           float64(ion.Charge),
		"radius":           ion.Radius,
		"mobility":         ion.Mobility,
		"hydration_energy": ion.HydrationEnergy,
	}
	if ion.HasAffinity {
		props["affinity"] = ion.Affinity
	}
	return props
}
