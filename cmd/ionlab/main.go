package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/ionlab/internal/catalog"
	"github.com/san-kum/ionlab/internal/config"
	"github.com/san-kum/ionlab/internal/exchange"
	"github.com/san-kum/ionlab/internal/predict"
	"github.com/san-kum/ionlab/internal/recommend"
	"github.com/san-kum/ionlab/internal/service"
	"github.com/san-kum/ionlab/internal/storage"
	"github.com/san-kum/ionlab/internal/viz"
)

var (
	dataDir     string
	catalogFile string
	verbose     bool
	configFile  string
	preset      string
	// resin flags
	group    string
	grade    string
	capacity float64
	cycles   int
	// bath flags
	bath   string
	volume float64
	// kinetics flags
	dt       float64
	horizon  float64
	adaptive bool
	stepper  string
	seed     int64
	// solver flags
	tolerance float64
	damping   float64
	maxIter   int
	// predict flags
	charge            int
	radius            float64
	hydrationEnergy   float64
	electronegativity float64
	hydrationNumber   int
	// recommend flags
	minScore float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ionlab",
		Short: "ion exchange equilibrium and kinetics lab",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ionlab", "data directory")
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "catalog file (yaml), builtin table when empty")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "solve equilibrium and simulate the approach to it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	addScenarioFlags(runCmd)

	solveCmd := &cobra.Command{
		Use:   "solve [scenario]",
		Short: "solve the equilibrium composition only",
		Args:  cobra.MaximumNArgs(1),
		RunE:  solveScenario,
	}
	addScenarioFlags(solveCmd)

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run a scenario and replay the trajectory interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)

	predictCmd := &cobra.Command{
		Use:   "predict [ion_id]",
		Short: "predict affinity from ion descriptors",
		Args:  cobra.MaximumNArgs(1),
		RunE:  predictAffinity,
	}
	predictCmd.Flags().IntVar(&charge, "charge", 0, "ionic charge")
	predictCmd.Flags().Float64Var(&radius, "radius", 0, "hydrated radius (nm)")
	predictCmd.Flags().Float64Var(&hydrationEnergy, "hydration-energy", 0, "hydration energy (kJ/mol)")
	predictCmd.Flags().Float64Var(&electronegativity, "electronegativity", 0, "pauling electronegativity")
	predictCmd.Flags().IntVar(&hydrationNumber, "hydration-number", 0, "hydration number")

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "list the ion catalog",
		RunE:  listCatalog,
	}

	catalogAddCmd := &cobra.Command{
		Use:   "add [ion_id]",
		Short: "add an ion to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE:  addIon,
	}
	catalogAddCmd.Flags().IntVar(&charge, "charge", 1, "ionic charge")
	catalogAddCmd.Flags().Float64Var(&radius, "radius", 0, "hydrated radius (nm)")
	catalogAddCmd.Flags().Float64Var(&hydrationEnergy, "hydration-energy", 0, "hydration energy (kJ/mol)")
	catalogAddCmd.Flags().Float64Var(&electronegativity, "electronegativity", 0, "pauling electronegativity")
	catalogAddCmd.Flags().IntVar(&hydrationNumber, "hydration-number", 0, "hydration number")
	catalogCmd.AddCommand(catalogAddCmd)

	recommendCmd := &cobra.Command{
		Use:   "recommend [application]",
		Short: "rank catalog ions for an application",
		Args:  cobra.ExactArgs(1),
		RunE:  recommendIons,
	}
	recommendCmd.Flags().Float64Var(&minScore, "min-score", 0.5, "minimum match score")

	degradeCmd := &cobra.Command{
		Use:   "degrade",
		Short: "plot capacity loss over regeneration cycles",
		RunE:  plotDegradation,
	}
	degradeCmd.Flags().Float64Var(&capacity, "capacity", config.DefaultCapacity, "fresh capacity (eq)")
	degradeCmd.Flags().StringVar(&grade, "grade", "premium", "resin grade")
	degradeCmd.Flags().IntVar(&cycles, "cycles", 300, "cycles to plot")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list presets for a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for scenario: %s\n", args[0])
				return nil
			}
			sort.Strings(presets)
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, solveCmd, liveCmd, predictCmd, catalogCmd, recommendCmd,
		degradeCmd, listCmd, plotCmd, exportCmd, exportJSONCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&group, "group", "strong-acid", "resin functional group")
	cmd.Flags().StringVar(&grade, "grade", "premium", "resin grade")
	cmd.Flags().Float64Var(&capacity, "capacity", config.DefaultCapacity, "resin capacity (eq)")
	cmd.Flags().IntVar(&cycles, "cycles", 0, "pre-age the resin by this many cycles")
	cmd.Flags().StringVar(&bath, "bath", "finite", "bath mode (finite or infinite)")
	cmd.Flags().Float64Var(&volume, "volume", config.DefaultVolume, "bath volume (L)")
	cmd.Flags().Float64Var(&dt, "dt", 0.1, "timestep (s)")
	cmd.Flags().Float64Var(&horizon, "time", 60.0, "simulated horizon (s)")
	cmd.Flags().BoolVar(&adaptive, "adaptive", false, "adaptive stepping")
	cmd.Flags().StringVar(&stepper, "stepper", "rk4", "time stepper (rk4 or euler)")
	cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	cmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "equilibrium tolerance")
	cmd.Flags().Float64Var(&damping, "damping", config.DefaultDamping, "equilibrium damping")
	cmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIter, "equilibrium iteration bound")
}

// buildConfig merges preset, config file and flags. Flags that were set
// explicitly win over both.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	scenario := "softening"
	if len(args) > 0 {
		scenario = args[0]
	}

	cfg := config.DefaultConfig()
	cfg.Scenario = scenario

	if preset != "" {
		p := config.GetPreset(scenario, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(scenario))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("group") {
		cfg.Resin.Group = group
	}
	if cmd.Flags().Changed("grade") {
		cfg.Resin.Grade = grade
	}
	if cmd.Flags().Changed("capacity") {
		cfg.Resin.Capacity = capacity
	}
	if cmd.Flags().Changed("cycles") {
		cfg.Resin.Cycles = cycles
	}
	if cmd.Flags().Changed("bath") {
		cfg.Bath = bath
	}
	if cmd.Flags().Changed("volume") {
		cfg.Volume = volume
	}
	if cmd.Flags().Changed("dt") {
		cfg.Kinetics.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Kinetics.Horizon = horizon
	}
	if cmd.Flags().Changed("adaptive") && adaptive {
		cfg.Kinetics.Policy = "adaptive"
	}
	if cmd.Flags().Changed("stepper") {
		cfg.Kinetics.Stepper = stepper
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("tolerance") {
		cfg.Solver.Tolerance = tolerance
	}
	if cmd.Flags().Changed("damping") {
		cfg.Solver.Damping = damping
	}
	if cmd.Flags().Changed("max-iter") {
		cfg.Solver.MaxIterations = maxIter
	}

	return cfg, nil
}

func newServices() (*service.CatalogService, *service.PredictionService, error) {
	var cats *service.CatalogService
	var err error
	if catalogFile != "" {
		cats, err = service.NewCatalogServiceFromFile(catalogFile)
		if err != nil {
			return nil, nil, err
		}
	} else {
		cats = service.NewCatalogService(catalog.Builtin())
	}
	opts := predict.DefaultFitOptions()
	return cats, service.NewPredictionService(cats, opts), nil
}

func buildRun(cmd *cobra.Command, args []string) (*config.Config, *service.SimulationService, *exchange.ExchangeSystem, error) {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return nil, nil, nil, err
	}
	cats, preds, err := newServices()
	if err != nil {
		return nil, nil, nil, err
	}
	sys, err := cfg.BuildSystem(cats.Snapshot())
	if err != nil {
		return nil, nil, nil, err
	}
	sims := service.NewSimulationService(preds, cfg.SolverOptions(), cfg.Stepper())
	return cfg, sims, sys, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, sims, sys, err := buildRun(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("running %s scenario...\n", cfg.Scenario)
	start := time.Now()

	res, err := sims.Run(context.Background(), sys, cfg.KineticsOptions())
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(cfg.Scenario, cfg.Seed, res.Kinetics)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d (converged: %t, %.2fs simulated)\n",
		res.Kinetics.Trajectory.Steps, res.Kinetics.Trajectory.Converged, res.Kinetics.Elapsed)

	printState("equilibrium target:", res.Equilibrium.System)

	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(res.Kinetics.Metrics))
	for name := range res.Kinetics.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, res.Kinetics.Metrics[name])
	}

	return nil
}

func solveScenario(cmd *cobra.Command, args []string) error {
	_, sims, sys, err := buildRun(cmd, args)
	if err != nil {
		return err
	}

	res, err := sims.Equilibrate(sys)
	if err != nil {
		return err
	}

	fmt.Printf("converged in %d iterations (max delta %.3g)\n", res.Iterations, res.MaxDelta)
	printState("equilibrium:", res.System)
	return nil
}

func printState(title string, sys *exchange.ExchangeSystem) {
	fmt.Println("\n" + title)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ION\tLOADING (eq)\tCONC (mol/L)\tAFFINITY\tSOURCE")
	for _, sp := range sys.Species {
		fmt.Fprintf(w, "  %s\t%.4f\t%.4f\t%.3f\t%s\n",
			sp.Ion.ID, sp.Loading, sp.Concentration, sp.Ion.Affinity, sp.Ion.Source)
	}
	w.Flush()
	fmt.Printf("  total %.4f of %.4f eq\n", sys.TotalLoading(), sys.Resin.EffectiveCapacity())
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, sims, sys, err := buildRun(cmd, args)
	if err != nil {
		return err
	}

	res, err := sims.Run(context.Background(), sys, cfg.KineticsOptions())
	if err != nil {
		return err
	}

	m := viz.NewModel(res.Kinetics.Trajectory, res.Equilibrium.System, res.Kinetics.Metrics)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func predictAffinity(cmd *cobra.Command, args []string) error {
	cats, preds, err := newServices()
	if err != nil {
		return err
	}

	model, err := preds.Refit()
	if err != nil {
		return err
	}
	fmt.Printf("model score: %.3f (catalog v%d)\n", model.Score(), model.CatalogVersion())

	fmt.Println("\nfeature importances:")
	importances := model.FeatureImportances()
	names := make([]string, 0, len(importances))
	for name := range importances {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-20s %.3f\n", name, importances[name])
	}

	var ion exchange.Ion
	if len(args) > 0 {
		ion, err = cats.Lookup(args[0])
		if err != nil {
			return err
		}
	} else {
		if charge == 0 || radius <= 0 {
			return fmt.Errorf("need an ion id or --charge and --radius")
		}
		ion = exchange.Ion{
			ID:                "ad-hoc",
			Charge:            charge,
			Radius:            radius,
			HydrationEnergy:   hydrationEnergy,
			Electronegativity: electronegativity,
			HydrationNumber:   hydrationNumber,
		}
	}

	p, err := preds.Predict(ion)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s: affinity %.3f (confidence %.2f)\n", ion.ID, p.Affinity, p.Confidence)
	if p.LowConfidence {
		fmt.Println("warning: descriptors far from training data")
	}
	if ion.HasAffinity {
		fmt.Printf("measured value: %.3f\n", ion.Affinity)
	}
	return nil
}

func listCatalog(cmd *cobra.Command, args []string) error {
	cats, _, err := newServices()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCHARGE\tRADIUS\tHYD.ENERGY\tEN\tAFFINITY\tSOURCE")
	for _, ion := range cats.List() {
		affinity := "-"
		if ion.HasAffinity {
			affinity = fmt.Sprintf("%.2f", ion.Affinity)
		}
		fmt.Fprintf(w, "%s\t%+d\t%.3f\t%.0f\t%.2f\t%s\t%s\n",
			ion.ID, ion.Charge, ion.Radius, ion.HydrationEnergy,
			ion.Electronegativity, affinity, ion.Source)
	}
	return w.Flush()
}

func addIon(cmd *cobra.Command, args []string) error {
	cats, preds, err := newServices()
	if err != nil {
		return err
	}

	ion := exchange.Ion{
		ID:                args[0],
		Charge:            charge,
		Radius:            radius,
		HydrationEnergy:   hydrationEnergy,
		Electronegativity: electronegativity,
		HydrationNumber:   hydrationNumber,
	}

	p, err := preds.Predict(ion)
	if err != nil {
		return err
	}
	ion = ion.WithAffinity(p.Affinity, exchange.Predicted)

	if err := cats.Add(ion); err != nil {
		return err
	}
	fmt.Printf("added %s with predicted affinity %.3f (confidence %.2f)\n",
		ion.ID, p.Affinity, p.Confidence)
	return nil
}

func recommendIons(cmd *cobra.Command, args []string) error {
	cats, _, err := newServices()
	if err != nil {
		return err
	}

	recs, err := recommend.Recommend(cats.Snapshot(), recommend.Application(args[0]), nil, minScore)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no matching ions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ION\tSCORE\tMATCHED")
	for _, rec := range recs {
		fmt.Fprintf(w, "%s\t%.2f\t%v\n", rec.Ion.ID, rec.Score, rec.Matched)
	}
	return w.Flush()
}

func plotDegradation(cmd *cobra.Command, args []string) error {
	resin := exchange.Resin{
		Group:    exchange.StrongAcid,
		Capacity: capacity,
		Grade:    exchange.Grade(grade),
	}

	data := make([]float64, cycles+1)
	for i := 0; i <= cycles; i++ {
		data[i] = resin.Degrade(i).Capacity
	}

	caption := fmt.Sprintf("%s grade capacity over %d cycles", grade, cycles)
	graph := asciigraph.Plot(data,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
	fmt.Println(graph)
	fmt.Printf("\nretained after %d cycles: %.1f%%\n", cycles, 100*data[cycles]/capacity)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tRESIN\tIONS\tSTEPS\tCONVERGED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%t\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Resin,
			len(run.Ions),
			run.Steps,
			run.Converged,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	times, series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(times) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(times))

	for _, id := range meta.Ions {
		loadings, ok := series[id]
		if !ok || len(loadings) < 2 {
			continue
		}
		graph := asciigraph.Plot(loadings,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s loading (eq)", id)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	times, series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}

	data := storage.ExportData{
		Scenario:  meta.Scenario,
		Resin:     meta.Resin,
		Capacity:  meta.Capacity,
		Bath:      meta.Bath,
		Steps:     meta.Steps,
		Converged: meta.Converged,
		Elapsed:   meta.Elapsed,
		Times:     times,
		Loadings:  series,
		Metrics:   meta.Metrics,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
