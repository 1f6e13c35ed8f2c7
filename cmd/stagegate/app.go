package main

import (
	"fmt"
	"log/slog"

	"github.com/stagegate/stagegate/internal/classify"
	"github.com/stagegate/stagegate/internal/config"
	"github.com/stagegate/stagegate/internal/fields"
	"github.com/stagegate/stagegate/internal/kaiten"
	"github.com/stagegate/stagegate/internal/pipeline"
	"github.com/stagegate/stagegate/internal/reconcile"
)

// app wires the configured client, resolver, rules and processor
// together for the subcommands.
type app struct {
	cfg       *config.Config
	client    *kaiten.Client
	processor *pipeline.Processor
	logger    *slog.Logger
}

// buildApp loads configuration and constructs the processing pipeline.
func buildApp(workers int, dryRun bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return buildAppFromConfig(cfg, workers, dryRun)
}

func buildAppFromConfig(cfg *config.Config, workers int, dryRun bool) (*app, error) {
	logger := slog.Default()

	client, err := kaiten.New(cfg.APIURL, cfg.APIToken,
		kaiten.WithLogger(logger),
		kaiten.WithTimeout(cfg.Timeout),
		kaiten.WithRetryPolicy(kaiten.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Base:       cfg.RetryBase,
		}))
	if err != nil {
		return nil, fmt.Errorf("building API client: %w", err)
	}

	rules := classify.DefaultRules()
	scores := fields.DefaultScores()
	if cfg.RulesFile != "" {
		rf, err := classify.LoadRulesFile(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = rf.Rules
		for label, score := range rf.Scores {
			scores.Add(label, score)
		}
	}

	options := kaiten.NewOptionCache(client, logger)
	resolver := fields.NewResolver(options, scores, logger)
	reconciler := reconcile.New(client, options,
		reconcile.WithLogger(logger),
		reconcile.WithLookupPause(cfg.LookupPause),
		reconcile.WithSettleDelay(cfg.SettleDelay))

	if workers <= 0 {
		workers = cfg.Workers
	}

	processor := pipeline.New(client, resolver, rules, cfg.Fields, reconciler,
		pipeline.WithLogger(logger),
		pipeline.WithWorkers(workers),
		pipeline.WithDryRun(dryRun))

	return &app{
		cfg:       cfg,
		client:    client,
		processor: processor,
		logger:    logger,
	}, nil
}
