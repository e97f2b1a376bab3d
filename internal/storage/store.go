package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/ionlab/internal/exchange"
	"github.com/san-kum/ionlab/internal/kinetics"
)

// Store persists runs under baseDir, one directory per run holding a
// metadata.json and a trajectory.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Scenario  string             `json:"scenario"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Resin     string             `json:"resin"`
	Capacity  float64            `json:"capacity"`
	Bath      string             `json:"bath"`
	Ions      []string           `json:"ions"`
	Steps     int                `json:"steps"`
	Converged bool               `json:"converged"`
	Elapsed   float64            `json:"elapsed"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes one finished run and returns its id.
func (s *Store) Save(scenario string, seed int64, result *kinetics.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s", scenario, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	traj := result.Trajectory
	initial := traj.Initial()

	meta := RunMetadata{
		ID:        runID,
		Scenario:  scenario,
		Timestamp: time.Now(),
		Seed:      seed,
		Steps:     traj.Steps,
		Converged: traj.Converged,
		Elapsed:   result.Elapsed,
		Metrics:   result.Metrics,
	}
	if initial != nil {
		meta.Resin = initial.Resin.Group.String()
		meta.Capacity = initial.Resin.Capacity
		meta.Bath = string(initial.Bath)
		for _, sp := range initial.Species {
			meta.Ions = append(meta.Ions, sp.Ion.ID)
		}
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "trajectory.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteTrajectory(csvFile, traj); err != nil {
		return "", err
	}
	return runID, nil
}

// WriteTrajectory streams a trajectory as csv: one row per sample, a
// loading and a concentration column per ion.
func WriteTrajectory(f *os.File, traj *exchange.Trajectory) error {
	w := csv.NewWriter(f)
	defer w.Flush()

	if len(traj.Samples) == 0 {
		return nil
	}

	first := traj.Samples[0].System
	header := []string{"time"}
	for _, sp := range first.Species {
		header = append(header, "q_"+sp.Ion.ID, "c_"+sp.Ion.ID)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, sample := range traj.Samples {
		row := []string{strconv.FormatFloat(sample.Time, 'f', 6, 64)}
		for _, sp := range sample.System.Species {
			row = append(row,
				strconv.FormatFloat(sp.Loading, 'f', 6, 64),
				strconv.FormatFloat(sp.Concentration, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadSeries reads a saved trajectory back as times plus one loading
// column per ion, keyed by ion id.
func (s *Store) LoadSeries(runID string) ([]float64, map[string][]float64, error) {
	csvPath := filepath.Join(s.baseDir, runID, "trajectory.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return []float64{}, map[string][]float64{}, nil
	}

	header := records[0]
	times := make([]float64, 0, len(records)-1)
	series := make(map[string][]float64)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) != len(header) {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		times = append(times, t)

		for j := 1; j < len(record); j++ {
			if len(header[j]) < 3 || header[j][:2] != "q_" {
				continue
			}
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				continue
			}
			id := header[j][2:]
			series[id] = append(series[id], val)
		}
	}

	return times, series, nil
}
