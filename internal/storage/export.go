package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/ionlab/internal/exchange"
	"github.com/san-kum/ionlab/internal/kinetics"
)

type ExportData struct {
	Scenario  string               `json:"scenario"`
	Resin     string               `json:"resin"`
	Capacity  float64              `json:"capacity"`
	Bath      string               `json:"bath"`
	Steps     int                  `json:"steps"`
	Converged bool                 `json:"converged"`
	Elapsed   float64              `json:"elapsed"`
	Times     []float64            `json:"times"`
	Loadings  map[string][]float64 `json:"loadings"`
	Metrics   map[string]float64   `json:"metrics"`
}

func newExportData(scenario string, result *kinetics.Result) ExportData {
	traj := result.Trajectory
	data := ExportData{
		Scenario:  scenario,
		Steps:     traj.Steps,
		Converged: traj.Converged,
		Elapsed:   result.Elapsed,
		Loadings:  make(map[string][]float64),
		Metrics:   result.Metrics,
	}

	initial := traj.Initial()
	if initial == nil {
		return data
	}
	data.Resin = initial.Resin.Group.String()
	data.Capacity = initial.Resin.Capacity
	data.Bath = string(initial.Bath)

	for _, sp := range initial.Species {
		times, loadings := traj.Series(sp.Ion.ID)
		data.Times = times
		data.Loadings[sp.Ion.ID] = loadings
	}
	return data
}

func exportJSON(w io.Writer, scenario string, result *kinetics.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(scenario, result))
}

func ExportJSON(path, scenario string, result *kinetics.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return exportJSON(file, scenario, result)
}

func ExportJSONStdout(scenario string, result *kinetics.Result) error {
	return exportJSON(os.Stdout, scenario, result)
}

// ExportCSV writes the trajectory of a finished run to path.
func ExportCSV(path string, traj *exchange.Trajectory) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteTrajectory(file, traj)
}
