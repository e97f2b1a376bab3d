// Package predict fits a regression model on the catalog's measured ions
// and estimates affinity coefficients for species outside the reference set.
package predict

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ionlab/internal/catalog"
	"github.com/san-kum/ionlab/internal/exchange"
)

// Descriptor is the physicochemical feature set a prediction runs on.
type Descriptor struct {
	Charge            int
	Radius            float64
	HydrationEnergy   float64
	Electronegativity float64
	HydrationNumber   int
}

func DescriptorOf(ion exchange.Ion) Descriptor {
	return Descriptor{
		Charge:            ion.Charge,
		Radius:            ion.Radius,
		HydrationEnergy:   ion.HydrationEnergy,
		Electronegativity: ion.Electronegativity,
		HydrationNumber:   ion.HydrationNumber,
	}
}

func (d Descriptor) vector() []float64 {
	return []float64{
		float64(d.Charge),
		d.Radius,
		d.HydrationEnergy,
		d.Electronegativity,
		float64(d.HydrationNumber),
	}
}

var featureNames = []string{
	"charge", "radius", "hydration_energy", "electronegativity", "hydration_number",
}

const numFeatures = 5

type FitOptions struct {
	MinTrainingIons    int
	Ridge              float64
	Seed               int64
	ValidationFraction float64
}

func DefaultFitOptions() FitOptions {
	return FitOptions{
		MinTrainingIons:    4,
		Ridge:              1e-3,
		Seed:               42,
		ValidationFraction: 0.2,
	}
}

// Model is an immutable snapshot of a fitted predictor. Retraining always
// produces a new instance; a Model is safe for concurrent readers.
type Model struct {
	coeffs         []float64 // intercept first
	means          []float64
	scales         []float64
	train          [][]float64 // standardized training rows, for confidence
	score          float64
	catalogVersion int
	seed           int64
}

// Score is the validation R^2 reported at fit time.
func (m *Model) Score() float64 { return m.score }

// CatalogVersion is the catalog version the model was fitted against.
func (m *Model) CatalogVersion() int { return m.catalogVersion }

// Fit trains an affinity model on the catalog's measured entries using a
// deterministic train/validation split. Identical catalog and options
// produce an identical model.
func Fit(cat *catalog.Catalog, opts FitOptions) (*Model, error) {
	if opts.MinTrainingIons < 2 {
		return nil, &exchange.ConfigError{Field: "min_training_ions", Value: opts.MinTrainingIons,
			Reason: "must be at least 2"}
	}
	if opts.ValidationFraction < 0 || opts.ValidationFraction >= 1 {
		return nil, &exchange.ConfigError{Field: "validation_fraction", Value: opts.ValidationFraction,
			Reason: "must be in [0, 1)"}
	}
	if opts.Ridge < 0 {
		return nil, &exchange.ConfigError{Field: "ridge", Value: opts.Ridge,
			Reason: "must be non-negative"}
	}

	measured := cat.Measured()
	if len(measured) < opts.MinTrainingIons {
		return nil, fmt.Errorf("%w: have %d measured ions, need %d",
			exchange.ErrInsufficientTrainingData, len(measured), opts.MinTrainingIons)
	}

	rows := make([][]float64, len(measured))
	targets := make([]float64, len(measured))
	for i, ion := range measured {
		rows[i] = DescriptorOf(ion).vector()
		targets[i] = ion.Affinity
	}

	means, scales := standardization(rows)
	std := make([][]float64, len(rows))
	for i, row := range rows {
		std[i] = standardize(row, means, scales)
	}

	perm := rand.New(rand.NewSource(opts.Seed)).Perm(len(std))
	numVal := int(math.Round(opts.ValidationFraction * float64(len(std))))
	if len(std)-numVal < 2 {
		numVal = 0
	}
	valIdx := perm[:numVal]
	trainIdx := perm[numVal:]

	trainRows := pick(std, trainIdx)
	trainY := pickF(targets, trainIdx)

	coeffs, err := ridgeFit(trainRows, trainY, opts.Ridge)
	if err != nil {
		return nil, err
	}

	scoreRows, scoreY := trainRows, trainY
	if numVal > 0 {
		scoreRows, scoreY = pick(std, valIdx), pickF(targets, valIdx)
	}
	score := rSquared(coeffs, scoreRows, scoreY)

	logrus.Debugf("fit affinity model: %d measured ions, %d held out, R^2=%.4f",
		len(measured), numVal, score)

	return &Model{
		coeffs:         coeffs,
		means:          means,
		scales:         scales,
		train:          trainRows,
		score:          score,
		catalogVersion: cat.Version(),
		seed:           opts.Seed,
	}, nil
}

// Predict estimates the affinity for a descriptor and a confidence in
// [0, 1]. Confidence decays with the distance to the nearest training ion
// in standardized descriptor space; descriptors far outside the training
// range yield low confidence, never an error. Estimates clamp at zero,
// matching the affinity invariant.
func (m *Model) Predict(d Descriptor) (estimate, confidence float64) {
	x := standardize(d.vector(), m.means, m.scales)

	estimate = m.coeffs[0]
	for j, v := range x {
		estimate += m.coeffs[j+1] * v
	}
	if estimate < 0 {
		estimate = 0
	}

	dmin := math.Inf(1)
	for _, row := range m.train {
		if d := euclidean(x, row); d < dmin {
			dmin = d
		}
	}
	confidence = 1.0 / (1.0 + dmin)
	return estimate, confidence
}

// FeatureImportances reports each descriptor's share of the fitted
// coefficient mass. Coefficients act on standardized features, so their
// magnitudes are directly comparable.
func (m *Model) FeatureImportances() map[string]float64 {
	total := 0.0
	for j := 0; j < numFeatures; j++ {
		total += math.Abs(m.coeffs[j+1])
	}
	out := make(map[string]float64, numFeatures)
	for j, name := range featureNames {
		if total == 0 {
			out[name] = 0
			continue
		}
		out[name] = math.Abs(m.coeffs[j+1]) / total
	}
	return out
}

func standardization(rows [][]float64) (means, scales []float64) {
	means = make([]float64, numFeatures)
	scales = make([]float64, numFeatures)
	n := float64(len(rows))
	for j := 0; j < numFeatures; j++ {
		sum := 0.0
		for _, row := range rows {
			sum += row[j]
		}
		means[j] = sum / n

		variance := 0.0
		for _, row := range rows {
			d := row[j] - means[j]
			variance += d * d
		}
		scales[j] = math.Sqrt(variance / n)
		if scales[j] == 0 {
			scales[j] = 1
		}
	}
	return means, scales
}

func standardize(row, means, scales []float64) []float64 {
	out := make([]float64, len(row))
	for j := range row {
		out[j] = (row[j] - means[j]) / scales[j]
	}
	return out
}

func pick(rows [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, k := range idx {
		out[i] = rows[k]
	}
	return out
}

func pickF(vals []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, k := range idx {
		out[i] = vals[k]
	}
	return out
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func rSquared(coeffs []float64, rows [][]float64, y []float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	ssRes, ssTot := 0.0, 0.0
	for i, row := range rows {
		pred := coeffs[0]
		for j, v := range row {
			pred += coeffs[j+1] * v
		}
		ssRes += (y[i] - pred) * (y[i] - pred)
		ssTot += (y[i] - mean) * (y[i] - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
