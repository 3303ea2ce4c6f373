package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/episim/internal/config"
	"github.com/san-kum/episim/internal/epidemic"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/logging"
	"github.com/san-kum/episim/internal/ode"
	"github.com/san-kum/episim/internal/scenario"
	"github.com/san-kum/episim/internal/storage"
	"github.com/san-kum/episim/internal/viz"
)

var (
	dataDir string
	debug   bool

	// model parameters
	beta     float64
	gamma    float64
	piRate   float64
	coverage float64
	s0       float64
	i0       float64
	r0       float64

	// grid
	horizon float64
	points  int

	// solver
	absTol   float64
	relTol   float64
	maxSteps int

	configFile string
	parallel   bool
	timeout    time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "episim",
		Short: "epidemic scenario simulation lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".episim", "data directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging (rejected-step diagnostics)")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run one scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().Float64Var(&beta, "beta", 0.8, "transmission rate")
	runCmd.Flags().Float64Var(&gamma, "gamma", 0.03, "recovery rate")
	runCmd.Flags().Float64Var(&piRate, "pi", 0.4, "birth/death rate")
	runCmd.Flags().Float64Var(&coverage, "coverage", 0.0, "vaccination coverage P in [0,1]")
	runCmd.Flags().Float64Var(&s0, "s0", 0.8, "initial susceptible fraction")
	runCmd.Flags().Float64Var(&i0, "i0", 0.2, "initial infected fraction")
	runCmd.Flags().Float64Var(&r0, "r0", 0.0, "initial recovered fraction")
	runCmd.Flags().Float64Var(&horizon, "time", scenario.DefaultHorizon, "time horizon")
	runCmd.Flags().IntVar(&points, "points", scenario.DefaultPoints, "report points")
	addSolverFlags(runCmd)

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "run all scenarios and store the trajectories",
		RunE:  runBatch,
	}
	batchCmd.Flags().StringVar(&configFile, "config", "", "yaml config file")
	batchCmd.Flags().BoolVar(&parallel, "parallel", false, "one worker per scenario")
	batchCmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline (0 = none)")
	addSolverFlags(batchCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run-id] [scenario]",
		Short: "plot a stored trajectory",
		Args:  cobra.ExactArgs(2),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run-id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list the stock scenarios",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBETA\tGAMMA\tPI\tP\tS0\tI0\tR0")
			for _, sc := range scenario.Presets() {
				fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
					sc.Name, sc.Params.Beta, sc.Params.Gamma, sc.Params.Pi, sc.Params.Coverage,
					sc.Init[0], sc.Init[1], sc.Init[2])
			}
			w.Flush()
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "interactive live view",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "no-vaccination"
			if len(args) > 0 {
				name = args[0]
			}
			sc, ok := scenario.Preset(name)
			if !ok {
				return fmt.Errorf("unknown scenario: %s (available: %v)", name, scenario.PresetNames())
			}
			return viz.RunLive(viz.NewModel(sc, integrators.DefaultOptions()))
		},
	}

	rootCmd.AddCommand(runCmd, batchCmd, listCmd, plotCmd, exportJSONCmd, presetsCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSolverFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&absTol, "abs-tol", config.DefaultAbsTol, "absolute error tolerance")
	cmd.Flags().Float64Var(&relTol, "rel-tol", config.DefaultRelTol, "relative error tolerance")
	cmd.Flags().IntVar(&maxSteps, "max-steps", config.DefaultMaxSteps, "internal step budget")
}

func solverOptions() integrators.Options {
	opts := integrators.DefaultOptions()
	opts.AbsTol = absTol
	opts.RelTol = relTol
	opts.MaxSteps = maxSteps
	return opts
}

func runScenario(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var sc scenario.Scenario
	if len(args) > 0 {
		preset, ok := scenario.Preset(args[0])
		if !ok {
			return fmt.Errorf("unknown scenario: %s (available: %v)", args[0], scenario.PresetNames())
		}
		sc = preset
	} else {
		params := epidemic.Params{Beta: beta, Gamma: gamma, Pi: piRate, Coverage: coverage}
		sc = scenario.New("custom", params, s0, i0, r0, horizon, points)
	}

	st := storage.New(dataDir).WithLogger(logger)
	if err := st.Init(); err != nil {
		return err
	}

	runner := scenario.NewRunner(solverOptions(), logger)

	start := time.Now()
	batch := runner.Run(context.Background(), []scenario.Scenario{sc})
	elapsed := time.Since(start)

	out := batch.Outcomes[0]
	if out.Err != nil {
		return fmt.Errorf("scenario %s: %w", sc.Name, out.Err)
	}

	runID, err := st.Save(solverOptions(), batch)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("report points: %d\n", out.Trajectory.Len())
	fmt.Printf("population drift: %.2e\n", out.Drift)
	fmt.Println()
	fmt.Print(viz.ChartTrajectory(sc, out.Trajectory))

	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := config.DefaultConfig()
	if configFile != "" {
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	opts := cfg.SolverOptions()
	if cmd.Flags().Changed("abs-tol") {
		opts.AbsTol = absTol
	}
	if cmd.Flags().Changed("rel-tol") {
		opts.RelTol = relTol
	}
	if cmd.Flags().Changed("max-steps") {
		opts.MaxSteps = maxSteps
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	st := storage.New(dataDir).WithLogger(logger)
	if err := st.Init(); err != nil {
		return err
	}

	runner := scenario.NewRunner(opts, logger)
	scenarios := cfg.ScenarioList()

	start := time.Now()
	var batch *scenario.Batch
	if parallel {
		batch = runner.RunParallel(ctx, scenarios)
	} else {
		batch = runner.Run(ctx, scenarios)
	}
	elapsed := time.Since(start)

	runID, err := st.Save(opts, batch)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n\n", runID)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tP\tRV\tPOINTS\tDRIFT\tSTATUS")
	for _, out := range batch.Outcomes {
		status := "ok"
		pts := 0
		if out.Err != nil {
			status = out.Err.Error()
		} else {
			pts = out.Trajectory.Len()
		}
		fmt.Fprintf(w, "%s\t%.2f\t%.3f\t%d\t%.2e\t%s\n",
			out.Scenario.Name, out.Scenario.Params.Coverage, out.Scenario.Params.Rv(),
			pts, out.Drift, status)
	}
	w.Flush()

	if failed := batch.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d scenarios failed", len(failed), len(batch.Outcomes))
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	runs, err := storage.New(dataDir).WithLogger(logger).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSCENARIOS\tFAILED")

	for _, run := range runs {
		failed := 0
		for _, sm := range run.Scenarios {
			if sm.Error != "" {
				failed++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			len(run.Scenarios),
			failed,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID, name := args[0], args[1]
	st := storage.New(dataDir)

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	var sm *storage.ScenarioMeta
	for i := range meta.Scenarios {
		if meta.Scenarios[i].Name == name {
			sm = &meta.Scenarios[i]
			break
		}
	}
	if sm == nil {
		return fmt.Errorf("run %s has no scenario %q", runID, name)
	}
	if sm.Error != "" {
		return fmt.Errorf("scenario %s failed in this run: %s", name, sm.Error)
	}

	times, states, err := st.LoadStates(runID, name)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	sc := scenario.Scenario{
		Name:   sm.Name,
		Params: sm.Params,
		Init:   ode.State(sm.Init),
		Times:  times,
	}
	traj := &ode.Trajectory{Times: times}
	for _, row := range states {
		traj.States = append(traj.States, ode.State(row))
	}

	fmt.Print(viz.ChartTrajectory(sc, traj))
	return nil
}
