package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ionlab/internal/catalog"
	"github.com/san-kum/ionlab/internal/equilibrium"
	"github.com/san-kum/ionlab/internal/exchange"
	"github.com/san-kum/ionlab/internal/kinetics"
	"github.com/san-kum/ionlab/internal/metrics"
	"github.com/san-kum/ionlab/internal/predict"
)

func newServices(t *testing.T) (*CatalogService, *PredictionService, *SimulationService) {
	t.Helper()
	cats := NewCatalogService(catalog.Builtin())
	preds := NewPredictionService(cats, predict.DefaultFitOptions())
	sims := NewSimulationService(preds, equilibrium.DefaultOptions(), kinetics.NewRK4())
	return cats, preds, sims
}

func testSystem(t *testing.T, cats *CatalogService) *exchange.ExchangeSystem {
	t.Helper()
	ca, err := cats.Lookup("Ca2+")
	require.NoError(t, err)
	na, err := cats.Lookup("Na+")
	require.NoError(t, err)
	return &exchange.ExchangeSystem{
		Resin:  exchange.Resin{Group: exchange.StrongAcid, Capacity: 2.0, Grade: exchange.GradePremium},
		Volume: 1.0,
		Bath:   exchange.InfiniteBath,
		Species: []exchange.Species{
			{Ion: ca, Concentration: 0.5},
			{Ion: na, Concentration: 1.0},
		},
	}
}

func TestCatalogService_AddAndLookup(t *testing.T) {
	cats, _, _ := newServices(t)

	before := cats.Version()
	err := cats.Add(exchange.Ion{ID: "Li+", Charge: 1, Radius: 0.38, HydrationEnergy: 520,
		Electronegativity: 0.98, HydrationNumber: 5, Source: exchange.Measured})
	require.NoError(t, err)
	assert.Greater(t, cats.Version(), before)

	ion, err := cats.Lookup("Li+")
	require.NoError(t, err)
	assert.Equal(t, 1, ion.Charge)
}

func TestCatalogService_AddDuplicate(t *testing.T) {
	cats, _, _ := newServices(t)
	err := cats.Add(exchange.Ion{ID: "Na+", Charge: 1, Radius: 0.36})
	assert.ErrorIs(t, err, exchange.ErrDuplicateIon)
}

func TestPredictionService_RefitAndPredict(t *testing.T) {
	cats, preds, _ := newServices(t)

	model, err := preds.Refit()
	require.NoError(t, err)
	assert.Equal(t, cats.Version(), model.CatalogVersion())

	ion, err := cats.Lookup("K+")
	require.NoError(t, err)
	p, err := preds.Predict(ion)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p.Affinity, 0.0)
	assert.Greater(t, p.Confidence, 0.0)
}

func TestPredictionService_FillAffinities(t *testing.T) {
	cats, preds, _ := newServices(t)

	unknown := exchange.Ion{ID: "Sr2+", Charge: 2, Radius: 0.41, HydrationEnergy: 1443,
		Electronegativity: 0.95, HydrationNumber: 8}
	na, err := cats.Lookup("Na+")
	require.NoError(t, err)

	filled, err := preds.FillAffinities([]exchange.Ion{na, unknown})
	require.NoError(t, err)
	require.Len(t, filled, 2)

	assert.Equal(t, exchange.Measured, filled[0].Source, "measured affinities stay untouched")
	assert.Equal(t, na.Affinity, filled[0].Affinity)

	assert.True(t, filled[1].HasAffinity)
	assert.Equal(t, exchange.Predicted, filled[1].Source)
	assert.GreaterOrEqual(t, filled[1].Affinity, 0.0)
}

func TestPredictionService_RefitsOnCatalogChange(t *testing.T) {
	cats, preds, _ := newServices(t)

	first, err := preds.Current()
	require.NoError(t, err)

	err = cats.Add(exchange.Ion{ID: "Ba2+", Charge: 2, Radius: 0.45, HydrationEnergy: 1305,
		Electronegativity: 0.89, HydrationNumber: 8, Affinity: 4.6, HasAffinity: true,
		Source: exchange.Measured})
	require.NoError(t, err)

	unknown := exchange.Ion{ID: "Cs+", Charge: 1, Radius: 0.63, HydrationEnergy: 264,
		Electronegativity: 0.79, HydrationNumber: 3}
	_, err = preds.FillAffinities([]exchange.Ion{unknown})
	require.NoError(t, err)

	current, err := preds.Current()
	require.NoError(t, err)
	assert.NotEqual(t, first.CatalogVersion(), current.CatalogVersion(), "stale model should be refit")
	assert.Equal(t, cats.Version(), current.CatalogVersion())
}

func TestCatalogService_SnapshotIsolated(t *testing.T) {
	cats, _, _ := newServices(t)

	snap := cats.Snapshot()
	n := snap.Len()

	err := cats.Add(exchange.Ion{ID: "Li+", Charge: 1, Radius: 0.38})
	require.NoError(t, err)

	assert.Equal(t, n, snap.Len(), "a published snapshot must not see later adds")
	_, err = snap.Lookup("Li+")
	assert.ErrorIs(t, err, exchange.ErrNotFound)
}

func TestCatalogService_ConcurrentAddAndRefit(t *testing.T) {
	cats, preds, _ := newServices(t)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			id := fmt.Sprintf("X%d+", i)
			err := cats.Add(exchange.Ion{ID: id, Charge: 1, Radius: 0.3 + float64(i)*1e-4})
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, err := preds.Refit()
			assert.NoError(t, err)
		}
	}()
	wg.Wait()
}

func TestSimulationService_Equilibrate(t *testing.T) {
	cats, _, sims := newServices(t)
	sys := testSystem(t, cats)

	res, err := sims.Equilibrate(sys)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, sys.Resin.EffectiveCapacity(), res.System.TotalLoading(), 1e-6,
		"saturated resin should fill to capacity")
}

func TestSimulationService_Run(t *testing.T) {
	cats, _, sims := newServices(t)
	sys := testSystem(t, cats)

	cfg := kinetics.DefaultConfig()
	cfg.Horizon = 120
	res, err := sims.Run(context.Background(), sys, cfg,
		metrics.NewSeparationFactor("Ca2+", "Na+"))
	require.NoError(t, err)

	assert.True(t, res.Kinetics.Trajectory.Converged)
	assert.Contains(t, res.Kinetics.Metrics, "capacity_utilization")
	assert.Contains(t, res.Kinetics.Metrics, "separation_factor")

	final := res.Kinetics.Trajectory.Final()
	target := res.Equilibrium.System
	for i := range final.Species {
		assert.InDelta(t, target.Species[i].Loading, final.Species[i].Loading, 1e-3,
			"final state should sit at the equilibrium target")
	}
}

func TestSimulationService_RunKeepsBestIterate(t *testing.T) {
	cats, preds, _ := newServices(t)
	sims := NewSimulationService(preds, equilibrium.Options{
		Tolerance:     1e-15,
		MaxIterations: 2,
		Damping:       0.5,
	}, kinetics.NewRK4())
	sys := testSystem(t, cats)

	res, err := sims.Run(context.Background(), sys, kinetics.DefaultConfig())
	require.ErrorIs(t, err, exchange.ErrDidNotConverge)
	require.NotNil(t, res, "the best iterate must survive a failed solve")
	require.NotNil(t, res.Equilibrium)
	assert.False(t, res.Equilibrium.Converged)
	assert.Equal(t, 2, res.Equilibrium.Iterations)
	assert.Nil(t, res.Kinetics)
}

func TestSimulationService_RunCancelled(t *testing.T) {
	cats, _, sims := newServices(t)
	sys := testSystem(t, cats)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sims.Run(ctx, sys, kinetics.DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulationService_PredictsMissingAffinity(t *testing.T) {
	cats, _, sims := newServices(t)

	na, err := cats.Lookup("Na+")
	require.NoError(t, err)
	unknown := exchange.Ion{ID: "Sr2+", Charge: 2, Radius: 0.41, HydrationEnergy: 1443,
		Electronegativity: 0.95, HydrationNumber: 8}

	sys := &exchange.ExchangeSystem{
		Resin: exchange.Resin{Group: exchange.StrongAcid, Capacity: 2.0, Grade: exchange.GradePremium},
		Bath:  exchange.InfiniteBath,
		Species: []exchange.Species{
			{Ion: na, Concentration: 1.0},
			{Ion: unknown, Concentration: 0.5},
		},
	}

	res, err := sims.Equilibrate(sys)
	require.NoError(t, err)

	i := res.System.Lookup("Sr2+")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, exchange.Predicted, res.System.Species[i].Ion.Source)
	assert.True(t, res.System.Species[i].Ion.HasAffinity)
}
