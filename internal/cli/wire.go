package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/ballotwatch/ballotwatch/internal/cache"
	"github.com/ballotwatch/ballotwatch/internal/corroborate"
	"github.com/ballotwatch/ballotwatch/internal/engine"
	"github.com/ballotwatch/ballotwatch/internal/model"
	"github.com/ballotwatch/ballotwatch/internal/rules"
	"github.com/ballotwatch/ballotwatch/internal/sink"
	"github.com/ballotwatch/ballotwatch/internal/util"
	"github.com/ballotwatch/ballotwatch/internal/worker"
)

// loadConfig merges defaults, the config file, and environment variables.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if viper.ConfigFileUsed() != "" {
		if err := viper.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}

// runtimeSinks bundles the audit writers opened for a run so the caller
// can close them and surface deferred write errors.
type runtimeSinks struct {
	provenance *sink.JSONLWriter
	reviews    *sink.JSONLWriter
}

func (s *runtimeSinks) close() error {
	var firstErr error
	for _, w := range []*sink.JSONLWriter{s.provenance, s.reviews} {
		if w == nil {
			continue
		}
		if err := w.Err(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// buildOrchestrator wires the rule engine, corroboration clients,
// rate limiter, robots policy, cache, and audit sinks from config.
// Layers without credentials or endpoints are simply left out; the
// orchestrator degrades gracefully.
func buildOrchestrator(cfg *model.Config) (*engine.Orchestrator, *runtimeSinks, error) {
	var clients []corroborate.Client

	if cfg.AI.APIKey != "" {
		aiClient, err := corroborate.NewAIClient(cfg.AI, cfg.HTTP)
		if err != nil {
			return nil, nil, fmt.Errorf("ai client: %w", err)
		}
		clients = append(clients, aiClient)
	} else if verbose {
		fmt.Fprintln(os.Stderr, "OPENAI_API_KEY not set; AI corroboration disabled")
	}

	if len(cfg.Official.Endpoints) > 0 {
		var store cache.Cache
		if cfg.Cache.Enabled {
			store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		}

		limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
		robots := util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)

		clients = append(clients, corroborate.NewOfficialClient(cfg.Official, cfg.HTTP, limiter, robots, store))
	} else if verbose {
		fmt.Fprintln(os.Stderr, "no official endpoints configured; official-source corroboration disabled")
	}

	sinks := &runtimeSinks{}
	var provenance engine.ProvenanceSink = sink.Discard{}
	var reviews engine.ReviewSink = sink.Discard{}

	if cfg.Output.ProvenancePath != "" {
		w, err := sink.NewJSONLWriter(cfg.Output.ProvenancePath)
		if err != nil {
			return nil, nil, fmt.Errorf("provenance sink: %w", err)
		}
		sinks.provenance = w
		provenance = w
	}
	if cfg.Output.ReviewPath != "" {
		w, err := sink.NewJSONLWriter(cfg.Output.ReviewPath)
		if err != nil {
			_ = sinks.close()
			return nil, nil, fmt.Errorf("review sink: %w", err)
		}
		sinks.reviews = w
		reviews = w
	}

	orchestrator := engine.New(cfg, rules.New(cfg.Rules), corroborate.NewRegistry(clients...), provenance, reviews)
	return orchestrator, sinks, nil
}
