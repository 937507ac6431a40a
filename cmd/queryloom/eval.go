package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/queryloom/queryloom/pkg/eval/metrics"
)

// evalCase is one row of the evaluation dataset: the SQL the assistant
// produced and the ground-truth SQL it should match.
type evalCase struct {
	Label       string `json:"label"`
	ActualSQL   string `json:"actual_sql"`
	ExpectedSQL string `json:"expected_sql"`
}

func runEval(args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: queryloom eval [flags]\n\nScore generated SQL against ground truth with contextual recall.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "path to configuration file (default: environment only)")
	envFile := fs.String("env", ".env", "path to .env file (ignored if missing)")
	datasetPath := fs.String("dataset", "", "path to the evaluation dataset JSON (required)")
	threshold := fs.Float64("threshold", 0, "recall threshold overriding the configured one")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	_ = fs.Parse(args)

	if *datasetPath == "" {
		fs.Usage()
		return fmt.Errorf("eval: -dataset is required")
	}

	if err := loadDotEnv(*envFile); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if cfg.Eval.DSN == "" {
		return fmt.Errorf("eval: eval.dsn is required to resolve SQL contexts")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(*verbose)

	cases, err := loadDataset(*datasetPath)
	if err != nil {
		return err
	}

	driver := cfg.Eval.Driver
	if driver == "" {
		driver = "pgx"
	}

	db, err := sql.Open(driver, cfg.Eval.DSN)
	if err != nil {
		return fmt.Errorf("eval: open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	limit := cfg.Eval.RecallThreshold
	if *threshold > 0 {
		limit = *threshold
	}

	provider := metrics.NewSQLContextProvider(db)
	metric := metrics.NewContextualRecall(limit)

	var passed int
	var total float64

	for i, c := range cases {
		label := c.Label
		if label == "" {
			label = fmt.Sprintf("case %d", i+1)
		}

		retrieved, err := provider.Contexts(ctx, c.ActualSQL)
		if err != nil {
			return fmt.Errorf("eval: %s: %w", label, err)
		}
		expected, err := provider.Contexts(ctx, c.ExpectedSQL)
		if err != nil {
			return fmt.Errorf("eval: %s: %w", label, err)
		}

		m, err := metric.Measure(ctx, metrics.Sample{Retrieved: retrieved, Expected: expected})
		if err != nil {
			return fmt.Errorf("eval: %s: %w", label, err)
		}

		logger.Debug("measured sample",
			"label", label, "retrieved", len(retrieved), "expected", len(expected))

		status := "FAIL"
		if m.Success {
			status = "PASS"
			passed++
		}
		total += m.Score

		fmt.Printf("%-6s %s  %s=%.2f\n", status, label, metric.Name(), m.Score)
	}

	if len(cases) > 0 {
		fmt.Printf("\n%d/%d passed, mean %s=%.2f (threshold %.2f)\n",
			passed, len(cases), metric.Name(), total/float64(len(cases)), limit)
	}

	if passed < len(cases) {
		os.Exit(1)
	}
	return nil
}

func loadDataset(path string) ([]evalCase, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return nil, fmt.Errorf("eval: load dataset: %w", err)
	}

	var cases []evalCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("eval: parse dataset: %w", err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("eval: dataset is empty")
	}

	return cases, nil
}
