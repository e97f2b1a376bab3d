package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ionlab/internal/exchange"
)

const (
	plotWidth  = 80
	plotHeight = 10
)

// PlotSeries renders the loading history of one ion.
func PlotSeries(traj *exchange.Trajectory, id string) string {
	times, loadings := traj.Series(id)
	if len(loadings) < 2 {
		return ""
	}
	caption := fmt.Sprintf("%s loading (eq), t=0..%.1fs", id, times[len(times)-1])
	return asciigraph.Plot(loadings,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(caption),
	)
}

// PlotTrajectory renders every ion's loading history, stacked.
func PlotTrajectory(traj *exchange.Trajectory) string {
	initial := traj.Initial()
	if initial == nil {
		return ""
	}
	var b strings.Builder
	for _, sp := range initial.Species {
		chart := PlotSeries(traj, sp.Ion.ID)
		if chart == "" {
			continue
		}
		b.WriteString(chart)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
