package service

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ionlab/internal/catalog"
	"github.com/san-kum/ionlab/internal/exchange"
)

// CatalogService guards a catalog for concurrent use and keeps the
// file-backed copy in sync when a path is configured.
type CatalogService struct {
	mu   sync.RWMutex
	cat  *catalog.Catalog
	path string
}

func NewCatalogService(cat *catalog.Catalog) *CatalogService {
	if cat == nil {
		cat = catalog.Builtin()
	}
	return &CatalogService{cat: cat}
}

// NewCatalogServiceFromFile loads the catalog at path, falling back to
// the builtin table when the file does not exist yet.
func NewCatalogServiceFromFile(path string) (*CatalogService, error) {
	cat, err := catalog.LoadFile(path)
	if err != nil {
		logrus.Debugf("catalog %s not loadable, using builtin: %v", path, err)
		cat = catalog.Builtin()
	}
	return &CatalogService{cat: cat, path: path}, nil
}

func (s *CatalogService) Add(ion exchange.Ion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cat.Add(ion); err != nil {
		return err
	}
	logrus.Infof("catalog: added %s (charge %+d)", ion.ID, ion.Charge)
	if s.path != "" {
		return catalog.SaveFile(s.path, s.cat)
	}
	return nil
}

func (s *CatalogService) Lookup(id string) (exchange.Ion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Lookup(id)
}

func (s *CatalogService) List() []exchange.Ion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.All()
}

func (s *CatalogService) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Version()
}

// Snapshot publishes an independent copy of the catalog at its current
// version. Later Adds never reach a published snapshot, so model fitting
// and in-flight predictions read a consistent view without holding the
// lock.
func (s *CatalogService) Snapshot() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Copy()
}

func (s *CatalogService) Export(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.SaveFile(path, s.cat)
}
