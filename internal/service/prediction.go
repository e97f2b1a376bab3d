package service

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ionlab/internal/exchange"
	"github.com/san-kum/ionlab/internal/predict"
)

// LowConfidence marks predictions far from any training ion. They are
// still returned, only flagged.
const LowConfidence = 0.3

// PredictionService fits affinity models from the catalog and serves
// predictions from the latest published model. Refit swaps the model
// atomically so in-flight predictions keep a consistent view.
type PredictionService struct {
	catalogs *CatalogService
	model    atomic.Pointer[predict.Model]
	opts     predict.FitOptions
}

func NewPredictionService(catalogs *CatalogService, opts predict.FitOptions) *PredictionService {
	return &PredictionService{catalogs: catalogs, opts: opts}
}

// Refit trains a fresh model from the measured ions and publishes it.
func (s *PredictionService) Refit() (*predict.Model, error) {
	model, err := predict.Fit(s.catalogs.Snapshot(), s.opts)
	if err != nil {
		return nil, err
	}
	s.model.Store(model)
	logrus.Infof("prediction: published model (score %.3f, catalog v%d)", model.Score(), model.CatalogVersion())
	return model, nil
}

// Current returns the published model, fitting one on first use.
func (s *PredictionService) Current() (*predict.Model, error) {
	if m := s.model.Load(); m != nil {
		return m, nil
	}
	return s.Refit()
}

// Prediction is one scored affinity estimate.
type Prediction struct {
	ID            string
	Affinity      float64
	Confidence    float64
	LowConfidence bool
}

// Predict estimates the affinity of a single ion from its descriptors.
func (s *PredictionService) Predict(ion exchange.Ion) (Prediction, error) {
	model, err := s.Current()
	if err != nil {
		return Prediction{}, err
	}
	estimate, confidence := model.Predict(predict.DescriptorOf(ion))
	p := Prediction{
		ID:            ion.ID,
		Affinity:      estimate,
		Confidence:    confidence,
		LowConfidence: confidence < LowConfidence,
	}
	if p.LowConfidence {
		logrus.Warnf("prediction: %s is far from training data (confidence %.2f)", ion.ID, confidence)
	}
	return p, nil
}

// FillAffinities returns a copy of the given ions where every ion that
// lacks a measured affinity carries a predicted one. A stale model is
// refit when the catalog moved underneath it.
func (s *PredictionService) FillAffinities(ions []exchange.Ion) ([]exchange.Ion, error) {
	model, err := s.Current()
	if err != nil {
		return nil, err
	}
	if model.CatalogVersion() != s.catalogs.Version() {
		if model, err = s.Refit(); err != nil {
			return nil, err
		}
	}

	out := make([]exchange.Ion, len(ions))
	for i, ion := range ions {
		if ion.HasAffinity {
			out[i] = ion
			continue
		}
		p, err := s.Predict(ion)
		if err != nil {
			return nil, err
		}
		out[i] = ion.WithAffinity(p.Affinity, exchange.Predicted)
	}
	return out, nil
}
