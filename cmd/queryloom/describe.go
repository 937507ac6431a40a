package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/queryloom/queryloom/pkg/engine"
	"github.com/queryloom/queryloom/pkg/mdl"
	"github.com/queryloom/queryloom/pkg/pipelines/semantics"
	"github.com/queryloom/queryloom/pkg/providers/openai"
)

func runDescribe(args []string) error {
	fs := flag.NewFlagSet("describe", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: queryloom describe [flags]\n\nGenerate semantic descriptions for the selected data models.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "path to configuration file (default: environment only)")
	envFile := fs.String("env", ".env", "path to .env file (ignored if missing)")
	mdlPath := fs.String("mdl", "", "path to the MDL manifest (required)")
	models := fs.String("models", "", "comma-separated model names to describe (required)")
	prompt := fs.String("prompt", "", "user context describing the data (required)")
	stream := fs.Bool("stream", false, "stream partial output to stderr as it is generated")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	_ = fs.Parse(args)

	if *mdlPath == "" || *models == "" || *prompt == "" {
		fs.Usage()
		return fmt.Errorf("describe: -mdl, -models and -prompt are required")
	}

	if err := loadDotEnv(*envFile); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(*verbose)

	opts := engine.GeneratorOpts{
		SystemPrompt: semantics.SystemPrompt,
		Logger:       logger,
	}
	if *stream {
		opts.StreamingCallback = func(chunk openai.StreamChunk) {
			fmt.Fprint(os.Stderr, chunk.Content)
		}
	}

	gen, err := engine.BuildGenerator(ctx, cfg.Provider, opts)
	if err != nil {
		return err
	}

	manifest, err := mdl.Load(*mdlPath)
	if err != nil {
		return err
	}

	selected := splitModels(*models)
	pipeline := semantics.New(gen, semantics.WithLogger(logger))

	described, err := pipeline.Run(ctx, *prompt, selected, manifest)
	if err != nil {
		return err
	}
	if *stream {
		fmt.Fprintln(os.Stderr)
	}

	out, err := json.MarshalIndent(described, "", "  ")
	if err != nil {
		return fmt.Errorf("describe: encode output: %w", err)
	}

	fmt.Println(string(out))
	return nil
}

func splitModels(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			out = append(out, name)
		}
	}
	return out
}
