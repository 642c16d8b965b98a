package main

import (
	"context"
	"fmt"

	"github.com/rt0111/onayformukontrol/internal/analyzer"
	"github.com/rt0111/onayformukontrol/internal/config"
	"github.com/rt0111/onayformukontrol/internal/database"
	"github.com/rt0111/onayformukontrol/internal/llm"
	"github.com/rt0111/onayformukontrol/internal/logging"
	"github.com/rt0111/onayformukontrol/internal/metrics"
	"github.com/rt0111/onayformukontrol/internal/rules"

	"go.uber.org/zap"
)

// app bundles what every command needs
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	ruleset  *rules.Ruleset
	analyzer *analyzer.Analyzer
}

func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Format = "console"
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

// loadRuleset reads the ruleset from the configured source
func loadRuleset(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*rules.Ruleset, error) {
	switch cfg.Rules.Source {
	case config.RulesFile:
		logger.Info(ctx, "Loading ruleset from file", zap.String("path", cfg.Rules.Path))
		return rules.LoadFile(cfg.Rules.Path)

	case config.RulesPostgres:
		db, err := database.NewDB(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		logger.Info(ctx, "Loading ruleset from PostgreSQL")
		return db.LoadRuleset(ctx)
	}

	return rules.Default()
}

// newApp loads config, logger and ruleset and builds the analyzer
func newApp(ctx context.Context, withNarrative bool, m *metrics.Metrics) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	rs, err := loadRuleset(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load ruleset: %w", err)
	}

	opts := []analyzer.Option{}
	if m != nil {
		opts = append(opts, analyzer.WithMetrics(m))
	}
	if withNarrative || cfg.LLM.Enabled {
		narrator, err := llm.NewOllamaLLM(cfg.LLM.Host, cfg.LLM.Model, cfg.LLM.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		opts = append(opts, analyzer.WithNarrator(narrator))
	}

	a, err := analyzer.New(rs, logger, opts...)
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "Analyzer ready",
		zap.String("rules_source", cfg.Rules.Source),
		zap.Int("risk_phrases", rs.PhraseCount()),
		zap.Int("thresholds", len(rs.Thresholds)),
	)

	return &app{cfg: cfg, logger: logger, ruleset: rs, analyzer: a}, nil
}
