// Command queryloom drives the semantic-description generator and the
// retrieval evaluation harness from the command line.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/queryloom/queryloom/pkg/engine"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "describe":
			runSubcommand(os.Args[2:], runDescribe)
			return
		case "eval":
			runSubcommand(os.Args[2:], runEval)
			return
		}
	}

	flag.Usage = usage
	flag.Parse()
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: queryloom <command> [flags]\n\nCommands:\n  describe  Generate semantic descriptions for data models\n  eval      Score retrieval quality against a ground-truth dataset\n")
}

func runSubcommand(args []string, run func(args []string) error) {
	if err := run(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// loadConfig resolves the configuration: an explicit file when given,
// otherwise the environment alone.
func loadConfig(path string) (engine.Config, error) {
	var (
		cfg engine.Config
		err error
	)
	if path != "" {
		cfg, err = engine.LoadConfig(path)
	} else {
		cfg, err = engine.DefaultConfig()
	}
	if err != nil {
		return engine.Config{}, err
	}

	return cfg, cfg.Validate()
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
