package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ionlab/internal/catalog"
	"github.com/san-kum/ionlab/internal/exchange"
)

func TestFit_Builtin(t *testing.T) {
	model, err := Fit(catalog.Builtin(), DefaultFitOptions())
	require.NoError(t, err)

	assert.Equal(t, catalog.Builtin().Version(), model.CatalogVersion())
	assert.False(t, model.Score() != model.Score(), "score must not be NaN")
}

func TestFit_InsufficientTrainingData(t *testing.T) {
	c := catalog.New()
	require.NoError(t, c.Add(exchange.Ion{ID: "Na+", Charge: 1, Radius: 0.36,
		Affinity: 1.5, HasAffinity: true, Source: exchange.Measured}))
	require.NoError(t, c.Add(exchange.Ion{ID: "K+", Charge: 1, Radius: 0.48,
		Affinity: 2.5, HasAffinity: true, Source: exchange.Measured}))

	opts := DefaultFitOptions()
	opts.MinTrainingIons = 10

	_, err := Fit(c, opts)
	assert.ErrorIs(t, err, exchange.ErrInsufficientTrainingData)
}

func TestFit_PredictedIonsExcluded(t *testing.T) {
	c := catalog.New()
	for _, ion := range catalog.Builtin().All() {
		ion.Source = exchange.Predicted
		require.NoError(t, c.Add(ion))
	}

	_, err := Fit(c, DefaultFitOptions())
	assert.ErrorIs(t, err, exchange.ErrInsufficientTrainingData,
		"predicted entries must not count as training data")
}

func TestFit_RejectsBadOptions(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*FitOptions)
	}{
		{"min below two", func(o *FitOptions) { o.MinTrainingIons = 1 }},
		{"negative ridge", func(o *FitOptions) { o.Ridge = -1 }},
		{"validation fraction one", func(o *FitOptions) { o.ValidationFraction = 1.0 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			opts := DefaultFitOptions()
			c.mod(&opts)
			_, err := Fit(catalog.Builtin(), opts)
			assert.ErrorIs(t, err, exchange.ErrConfiguration)
		})
	}
}

func TestPredict_Deterministic(t *testing.T) {
	modelA, err := Fit(catalog.Builtin(), DefaultFitOptions())
	require.NoError(t, err)
	modelB, err := Fit(catalog.Builtin(), DefaultFitOptions())
	require.NoError(t, err)

	d := Descriptor{Charge: 2, Radius: 0.40, HydrationEnergy: 1900,
		Electronegativity: 1.5, HydrationNumber: 6}

	estA, confA := modelA.Predict(d)
	for i := 0; i < 10; i++ {
		est, conf := modelA.Predict(d)
		assert.Equal(t, estA, est, "repeated predictions must be bit-identical")
		assert.Equal(t, confA, conf)
	}

	estB, confB := modelB.Predict(d)
	assert.Equal(t, estA, estB, "identical catalog must yield an identical model")
	assert.Equal(t, confA, confB)
}

func TestPredict_NonNegative(t *testing.T) {
	model, err := Fit(catalog.Builtin(), DefaultFitOptions())
	require.NoError(t, err)

	// A descriptor engineered to pull the linear estimate negative.
	d := Descriptor{Charge: -4, Radius: 0.01, HydrationEnergy: -8000,
		Electronegativity: -5, HydrationNumber: 0}
	est, _ := model.Predict(d)
	assert.GreaterOrEqual(t, est, 0.0)
}

func TestPredict_ConfidenceDropsWithDistance(t *testing.T) {
	model, err := Fit(catalog.Builtin(), DefaultFitOptions())
	require.NoError(t, err)

	near := DescriptorOf(mustLookup(t, "Mg2+"))
	far := Descriptor{Charge: 7, Radius: 5.0, HydrationEnergy: 90000,
		Electronegativity: 9, HydrationNumber: 40}

	_, confNear := model.Predict(near)
	_, confFar := model.Predict(far)

	assert.Greater(t, confNear, confFar)
	assert.Greater(t, confFar, 0.0, "far descriptors warn, they do not fail")
	assert.LessOrEqual(t, confNear, 1.0)
}

func TestPredict_ReasonableOnHeldOutIon(t *testing.T) {
	// Fit without Ca2+ and check its prediction lands in the plausible
	// selectivity band for a divalent cation.
	c := catalog.New()
	for _, ion := range catalog.Builtin().All() {
		if ion.ID == "Ca2+" {
			continue
		}
		require.NoError(t, c.Add(ion))
	}
	opts := DefaultFitOptions()
	opts.ValidationFraction = 0 // 8 ions; keep them all for training

	model, err := Fit(c, opts)
	require.NoError(t, err)

	ca := mustLookup(t, "Ca2+")
	est, conf := model.Predict(DescriptorOf(ca))

	assert.InDelta(t, ca.Affinity, est, 2.0)
	assert.Greater(t, conf, 0.2)
}

func TestFeatureImportances(t *testing.T) {
	model, err := Fit(catalog.Builtin(), DefaultFitOptions())
	require.NoError(t, err)

	imp := model.FeatureImportances()
	require.Len(t, imp, 5)

	total := 0.0
	for name, v := range imp {
		assert.GreaterOrEqual(t, v, 0.0, name)
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func mustLookup(t *testing.T, id string) exchange.Ion {
	t.Helper()
	ion, err := catalog.Builtin().Lookup(id)
	require.NoError(t, err)
	return ion
}
