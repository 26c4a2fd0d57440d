package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/inference-sim/csim/sim"
	"github.com/inference-sim/csim/sim/record"
	"github.com/inference-sim/csim/sim/trace"
)

// autoRecordPath as the --record value lets the recorder pick a unique file name.
const autoRecordPath = "auto"

var (
	// CLI flags for cache geometry
	setBits       int    // Number of set index bits (s)
	associativity int    // Number of lines per set (E)
	blockBits     int    // Number of block offset bits (b)
	tracePath     string // Trace file to replay
	verbose       bool   // Print the outcome of every event
	logLevel      string // Log verbosity level

	// CLI flags for presets and outputs
	presetName  string // Geometry preset name
	presetsPath string // YAML file holding geometry presets
	resultsPath string // File receiving "hits misses evictions"
	recordPath  string // SQLite database receiving every access
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "csim",
	Short: "Set-associative cache simulator for memory traces",
}

// runOptions is everything a simulation run needs, resolved from flags,
// presets and environment.
type runOptions struct {
	Geometry    sim.Geometry
	TracePath   string
	Verbose     bool
	ResultsPath string
	RecordPath  string
}

// runCmd replays a trace file against a cache built from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a memory trace and report hits, misses and evictions",
	Args:  cobra.NoArgs,
	Example: `  csim run -s 4 -E 1 -b 4 -t traces/yi.trace
  csim run -v -s 8 -E 2 -b 4 -t traces/yi.trace
  csim run --preset m2-l1d -t traces/long.trace --record auto`,
	Run: func(cmd *cobra.Command, args []string) {
		loadDotEnv(".env")
		applyEnvDefaults(cmd)

		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		geom, err := resolveGeometry(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if tracePath == "" {
			logrus.Fatalf("Missing required command line argument: -t <file>")
		}

		opts := runOptions{
			Geometry:    geom,
			TracePath:   tracePath,
			Verbose:     verbose,
			ResultsPath: resultsPath,
			RecordPath:  recordPath,
		}

		// Log configuration
		logrus.Infof("Starting simulation with %s (S=%d, B=%d, capacity=%d bytes), trace=%s",
			geom, geom.NumSets(), geom.BlockSize(), geom.Capacity(), tracePath)
		startTime := time.Now()

		if _, err := runSimulation(opts, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// resolveGeometry combines an optional preset with the -s/-E/-b flags.
// Explicitly set flags override the preset; without a preset all three
// flags are required.
func resolveGeometry(cmd *cobra.Command) (sim.Geometry, error) {
	var geom sim.Geometry
	if presetName != "" {
		presets, err := LoadPresets(presetsPath)
		if err != nil {
			return sim.Geometry{}, err
		}
		geom, err = presets.Geometry(presetName)
		if err != nil {
			return sim.Geometry{}, err
		}
		logrus.Infof("Using preset geometry %s: %s", presetName, geom)
	} else {
		for _, name := range []string{"set-bits", "lines", "block-bits"} {
			if !cmd.Flags().Changed(name) {
				f := cmd.Flags().Lookup(name)
				return sim.Geometry{}, fmt.Errorf("missing required command line argument: -%s <num>", f.Shorthand)
			}
		}
	}

	if cmd.Flags().Changed("set-bits") {
		geom.SetBits = setBits
	}
	if cmd.Flags().Changed("lines") {
		geom.Associativity = associativity
	}
	if cmd.Flags().Changed("block-bits") {
		geom.BlockBits = blockBits
	}
	if err := geom.Validate(); err != nil {
		return sim.Geometry{}, err
	}
	return geom, nil
}

// runSimulation replays the trace and reports the counters on stdout and in
// the results file. On error nothing is reported.
func runSimulation(opts runOptions, stdout io.Writer) (sim.Counters, error) {
	f, err := os.Open(opts.TracePath)
	if err != nil {
		return sim.Counters{}, fmt.Errorf("opening trace %s: %w", opts.TracePath, err)
	}
	defer func() { _ = f.Close() }()

	cache, err := sim.NewCache(opts.Geometry)
	if err != nil {
		return sim.Counters{}, err
	}

	var observers []sim.EventObserver
	var verboseObs *sim.VerboseObserver
	if opts.Verbose {
		verboseObs = sim.NewVerboseObserver(stdout)
		observers = append(observers, verboseObs)
	}
	var recorder *record.SQLiteWriter
	if opts.RecordPath != "" {
		path := opts.RecordPath
		if path == autoRecordPath {
			path = ""
		}
		recorder, err = record.NewSQLiteWriter(path)
		if err != nil {
			return sim.Counters{}, err
		}
		defer func() { _ = recorder.Close() }()
		observers = append(observers, recorder)
	}

	runner := sim.NewRunner(cache, observers...)
	counters, err := runner.Run(trace.NewReader(f))
	if verboseObs != nil {
		if flushErr := verboseObs.Flush(); flushErr != nil && err == nil {
			err = fmt.Errorf("writing verbose output: %w", flushErr)
		}
	}
	if err != nil {
		if recorder != nil {
			if discardErr := recorder.Discard(); discardErr != nil {
				logrus.Warnf("Discarding recording: %v", discardErr)
			}
		}
		return sim.Counters{}, err
	}

	if recorder != nil {
		err = errors.Join(recorder.WriteSummary(opts.Geometry, counters), recorder.Close())
		if err != nil {
			return sim.Counters{}, err
		}
		logrus.Infof("Run %s recorded to %s", recorder.RunID(), recorder.Path())
	}

	summary := runner.Summary()
	logrus.Debugf("Trace address range [%#x, %#x], %d data events, hit rate %.4f",
		summary.MinAddress, summary.MaxAddress, summary.DataEvents(), counters.HitRate())

	if err := printSummary(stdout, counters); err != nil {
		return sim.Counters{}, err
	}
	if opts.ResultsPath != "" {
		if err := writeResultsFile(opts.ResultsPath, counters); err != nil {
			return sim.Counters{}, err
		}
	}
	return counters, nil
}

// registerRunFlags binds the run flags of c to the package flag variables.
func registerRunFlags(c *cobra.Command) {
	c.Flags().IntVarP(&setBits, "set-bits", "s", 0, "Number of set index bits (S = 2^s sets)")
	c.Flags().IntVarP(&associativity, "lines", "E", 0, "Number of lines per set (associativity)")
	c.Flags().IntVarP(&blockBits, "block-bits", "b", 0, "Number of block offset bits (B = 2^b bytes)")
	c.Flags().StringVarP(&tracePath, "trace", "t", "", "Trace file")
	c.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the outcome of every trace event")
	c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	c.Flags().StringVar(&presetName, "preset", "", "Named geometry from the presets file; -s/-E/-b override it")
	c.Flags().StringVar(&presetsPath, "presets-file", defaultPresetsPath, "YAML file of geometry presets")
	c.Flags().StringVar(&resultsPath, "results-file", ".csim_results", "File receiving \"hits misses evictions\" (empty disables)")
	c.Flags().StringVar(&recordPath, "record", "", "SQLite database receiving every access (\"auto\" picks a unique name; removed if the run fails)")
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// init sets up CLI flags and subcommands
func init() {
	// Fatal log calls run registered exit handlers (e.g. recorder flushes).
	logrus.StandardLogger().ExitFunc = atexit.Exit

	registerRunFlags(runCmd)

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
