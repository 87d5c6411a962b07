package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/mcmcgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("mcmcgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
mcmcgo - An MCMC sampling engine for probabilistic models declared in HCL.

Usage:
  mcmcgo [options] [MODEL_PATH]

Arguments:
  MODEL_PATH
    Path to a single .hcl model file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	modelFlag := flagSet.String("model", "", "Path to the model file or directory.")
	mFlag := flagSet.String("m", "", "Path to the model file or directory (shorthand).")
	iterFlag := flagSet.Int("iter", 10000, "Total number of sampling iterations.")
	burnFlag := flagSet.Int("burn", 0, "Number of initial iterations to discard.")
	thinFlag := flagSet.Int("thin", 1, "Record every thin-th post-burn iteration.")
	tuneIntervalFlag := flagSet.Int("tune-interval", 1000, "Iterations between step method tuning passes.")
	burnTillTunedFlag := flagSet.Bool("burn-till-tuned", false, "Extend burn-in until all step methods stop tuning.")
	saveIntervalFlag := flagSet.Int("save-interval", 0, "Checkpoint sampler state every N iterations. 0 is disabled.")
	seedFlag := flagSet.Uint64("seed", 1, "Random seed.")
	dbFlag := flagSet.String("db", "memory", "Trace backend. Options: 'memory' or 'sqlite'.")
	dbPathFlag := flagSet.String("db-path", "", "SQLite database file path (required with -db=sqlite).")
	quietFlag := flagSet.Bool("quiet", false, "Suppress progress logging during the run.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *modelFlag != "" {
		path = *modelFlag
	} else if *mFlag != "" {
		path = *mFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Model path determined.", "path", path)

	if path == "" {
		slog.Debug("No model path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ModelPath:     path,
		Iter:          *iterFlag,
		Burn:          *burnFlag,
		Thin:          *thinFlag,
		TuneInterval:  *tuneIntervalFlag,
		BurnTillTuned: *burnTillTunedFlag,
		SaveInterval:  *saveIntervalFlag,
		Seed:          *seedFlag,
		Database:      strings.ToLower(*dbFlag),
		DBPath:        *dbPathFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
		Quiet:         *quietFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
