package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"logship/internal/config"
	"logship/internal/engine"
	"logship/internal/metrics"
	"logship/internal/metrics/datadog"
	"logship/internal/pipeline"
	"logship/internal/storage"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "logship/internal/storage/all"
)

// main is the entry point for the shipper binary. It loads the config,
// optionally initializes a metrics backend, and streams stdin to stdout
// while shipping records to the database. Any setup failure downgrades the
// process to echo-only; the stream itself is never the casualty.
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		quiet             bool
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/logship.json", "shipper config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (datadog, none)")
	flag.BoolVar(&quiet, "quiet", false, "suppress the stdout echo")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	logger := log.New(os.Stderr, "logship: ", log.LstdFlags)
	ctx := context.Background()

	cfg, cfgErr := config.Load(cfgPath)
	if cfgErr == nil {
		issues := config.Validate(cfg)
		for _, iss := range issues {
			fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		}
		if config.HasErrors(issues) {
			cfgErr = fmt.Errorf("config %s has errors", cfgPath)
		}
	}

	// If validate flag is set, only validate the configuration and exit.
	if validate {
		if cfgErr != nil {
			logger.Printf("configuration is invalid: %v", cfgErr)
			os.Exit(1)
		}
		logger.Printf("configuration is valid: %s", cfgPath)
		os.Exit(0)
	}

	job := "logship"
	if cfgErr == nil && cfg.Job != "" {
		job = cfg.Job
	}

	// Decide metrics backend: flag -> env -> disabled.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "datadog":
		// The backend buffers metrics and submits periodically, plus one
		// final time at shutdown (Close()). Long runs therefore produce an
		// actual time series instead of a single spike at exit.
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    job,
			Tags:       datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			logger.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			if *verbose {
				logger.Printf("metrics: backend=%s job=%s", backendName, job)
			}
			metrics.SetBackend(b)
			defer func() {
				if err := b.Close(); err != nil {
					logger.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if *verbose {
			logger.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		logger.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	p := &pipeline.Pipeline{
		In:     os.Stdin,
		Out:    os.Stdout,
		Quiet:  quiet,
		Logger: logger,
		Job:    job,
	}

	eng, conn, setupErr := buildEngine(ctx, cfg, cfgErr)
	if setupErr != nil {
		logger.Printf("database path disabled: %v; running echo-only", setupErr)
	} else {
		defer conn.Close()
		eng.Logger = logger
		eng.SetJob(job)
		if *verbose {
			logger.Printf("engine: kind=%s storage=%s table=%s columns=%v",
				eng.Kind(), cfg.Storage.Kind, cfg.Mapping.Table, eng.Columns())
		}
		p.Handler = func(ctx context.Context, line []byte) error {
			return eng.Handle(ctx, conn, line)
		}
	}

	start := time.Now()
	if err := p.Run(ctx); err != nil {
		logger.Fatalf("%v", err)
	}
	if *verbose {
		logger.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// buildEngine opens the configured storage backend and builds the insert
// engine over it. Any failure along the way is returned so main can fall
// back to echo-only mode.
func buildEngine(ctx context.Context, cfg config.Config, cfgErr error) (*engine.Engine, storage.Conn, error) {
	if cfgErr != nil {
		return nil, nil, cfgErr
	}

	conn, err := storage.New(ctx, storage.Config{
		Kind: cfg.Storage.Kind,
		DSN:  os.ExpandEnv(cfg.Storage.DSN),
	})
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.Build(cfg.Mapping.Table, mappingColumns(cfg.Mapping.Columns), cfg.Mapping.Delimiter, conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return eng, conn, nil
}

func mappingColumns(cols config.Columns) []engine.Column {
	out := make([]engine.Column, len(cols))
	for i, c := range cols {
		out[i] = engine.Column{Name: c.Name, Source: c.Source}
	}
	return out
}
