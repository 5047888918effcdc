// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the routecortex server, a
// contextual request-routing engine that dispatches free-text requests to
// downstream agents based on profile history, conversation state, business
// rules and classifier signals.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/routecortex/routecortex/internal/api"
	"github.com/routecortex/routecortex/internal/buildinfo"
	"github.com/routecortex/routecortex/internal/config"
	"github.com/routecortex/routecortex/internal/conversation"
	"github.com/routecortex/routecortex/internal/decision"
	"github.com/routecortex/routecortex/internal/engine"
	"github.com/routecortex/routecortex/internal/feedback"
	"github.com/routecortex/routecortex/internal/logging"
	"github.com/routecortex/routecortex/internal/profile"
	"github.com/routecortex/routecortex/internal/registry"
	"github.com/routecortex/routecortex/internal/rules"
	sig "github.com/routecortex/routecortex/internal/signal"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	fmt.Printf("routecortex Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Configuration file path")
	flag.Parse()

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to get working directory: %v", err)
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if err = logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogDir); err != nil {
		log.Fatalf("failed to configure log output: %v", err)
	}

	if len(cfg.Agents) == 0 {
		log.Info("no agents configured, using the built-in catalog")
		cfg.Agents = config.DefaultAgents()
	}

	ruleEngine, err := loadRules(cfg.RulesPath)
	if err != nil {
		log.Fatalf("failed to load rule table: %v", err)
	}
	log.Infof("rule table active with %d rules", len(ruleEngine.Rules()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	decisions, err := decision.NewStore(ctx, cfg.DecisionDB)
	if err != nil {
		log.Fatalf("failed to open decision store: %v", err)
	}
	defer func() { _ = decisions.Close() }()

	profiles := profile.NewMemoryStore()
	contexts := conversation.NewStore()
	agents := registry.NewAgentRegistry(cfg.Agents)

	classifiers := make([]sig.Classifier, 0, len(cfg.Signals.Classifiers))
	for _, cc := range cfg.Signals.Classifiers {
		classifiers = append(classifiers, sig.NewHTTPClassifier(cc.Name, cc.URL, cc.APIKey))
	}
	aggregator := sig.NewAggregator(classifiers, cfg.Signals.ClassifierTimeout)

	eng := engine.New(cfg, profiles, contexts, agents, ruleEngine, aggregator, decisions)
	reporter := feedback.NewReporter(decisions, profiles, contexts)

	srv := api.NewServer(cfg, eng, reporter, agents)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
	log.Info("shutdown complete")

	// Give the log writer a moment to flush when writing to file.
	time.Sleep(100 * time.Millisecond)
}

// loadConfig reads the YAML configuration, falling back to defaults when the
// file does not exist so the server can run out of the box.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Infof("configuration file %s not found, using defaults", path)
		cfg := config.DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.LoadConfig(path)
}

// loadRules builds the rule engine from the configured YAML table, falling
// back to the built-in table when no file exists.
func loadRules(path string) (*rules.Engine, error) {
	if path == "" {
		return rules.NewEngine(rules.DefaultTable())
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Infof("rule file %s not found, using the built-in table", path)
		return rules.NewEngine(rules.DefaultTable())
	}
	return rules.LoadFromFile(path)
}
