// Copyright 2025 FinSight AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/invopop/jsonschema"
	"golang.org/x/sync/errgroup"

	finsight "github.com/finsight-ai/finsight"
	"github.com/finsight-ai/finsight/pkg/config"
	"github.com/finsight-ai/finsight/pkg/llm"
	"github.com/finsight-ai/finsight/pkg/logger"
	"github.com/finsight-ai/finsight/pkg/mcp"
	"github.com/finsight-ai/finsight/pkg/model"
	"github.com/finsight-ai/finsight/pkg/observability"
	"github.com/finsight-ai/finsight/pkg/orchestrator"
	"github.com/finsight-ai/finsight/pkg/queryparse"
	"github.com/finsight-ai/finsight/pkg/scenario"
	"github.com/finsight-ai/finsight/pkg/server"
	"github.com/finsight-ai/finsight/pkg/session"
	"github.com/finsight-ai/finsight/pkg/subagent"
	"github.com/finsight-ai/finsight/pkg/subagents"
)

// ServeCmd starts the HTTP service.
type ServeCmd struct {
	Config string `short:"c" help:"Path to config file." type:"path"`
	EnvVar string `name:"env-file" help:"Path to .env file." default:".env"`
}

// CheckCmd prints per-scenario pipeline readiness and exits non-zero when a
// required subagent is missing.
type CheckCmd struct {
	Config string `short:"c" help:"Path to config file." type:"path"`
}

// ValidateCmd validates a config file.
type ValidateCmd struct {
	Config string `short:"c" help:"Path to config file." required:"" type:"path"`
}

// SchemaCmd prints the configuration JSON schema.
type SchemaCmd struct{}

// VersionCmd prints version information.
type VersionCmd struct{}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func (c *ServeCmd) Run() error {
	if err := config.LoadDotEnv(c.EnvVar); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}

	level, _ := logger.ParseLevel(cfg.Logging.Level)
	log := logger.Init(logger.Options{Level: level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session store.
	var sessions session.Store
	switch cfg.Session.Backend {
	case "sqlite":
		store, err := session.NewSQLiteStore(cfg.Session.Path, cfg.Session.TTL)
		if err != nil {
			return err
		}
		defer store.Close()
		sessions = store
	default:
		sessions = session.NewMemoryStore(cfg.Session.TTL)
	}

	// Market data source: MCP servers when configured, synthetic otherwise.
	var quoteSource subagents.QuoteSource = &subagents.StaticQuoteSource{}
	if len(cfg.MCP) > 0 {
		manager := mcp.NewManager(cfg.MCP, log)
		if err := manager.Discover(ctx); err != nil {
			return fmt.Errorf("MCP discovery failed: %w", err)
		}
		defer manager.Close()
		quoteSource = &subagents.MCPQuoteSource{Manager: manager}
	}

	// LLM provider.
	var provider llm.Provider
	if cfg.LLM.Enabled {
		provider = llm.NewOpenAIProvider(cfg.LLM)
	}

	// Composition root: the one place the process-wide registry is used.
	registry := subagent.Default()
	for _, sa := range []subagent.Subagent{
		subagents.NewMarketDataAgent(quoteSource, log),
		subagents.NewRiskAgent(log),
		subagents.NewDashboardAgent(log),
		subagents.NewExplainerAgent(provider, log),
		subagents.NewPlannerAgent(log),
	} {
		if err := registry.Register(sa); err != nil {
			return fmt.Errorf("failed to register subagent: %w", err)
		}
	}

	recorder := observability.Recorder(observability.Noop{})
	if cfg.Metrics.Enabled {
		metrics, err := observability.InitMetrics()
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
		recorder = metrics
	}

	parser := queryparse.New(
		queryparse.WithMinConfidence(cfg.Parser.MinRuleConfidence),
		queryparse.WithLogger(log),
		queryparse.WithFallback(llmParseFallback(provider, recorder)),
	)

	orch := orchestrator.New(registry, sessions,
		orchestrator.WithClassifier(classifierFromConfig(cfg.Classifier)),
		orchestrator.WithParser(parser),
		orchestrator.WithRecorder(recorder),
		orchestrator.WithLogger(log),
		orchestrator.WithDefaultStepTimeout(cfg.Pipelines.DefaultStepTimeout),
		orchestrator.WithLLMParsing(cfg.Parser.AllowLLM && provider != nil),
	)

	srv := server.New(cfg.Server.Address(), orch, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
			Handler:           observability.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Info("metrics server listening", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if metricsServer != nil {
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		return srv.Stop(shutdownCtx)
	})

	log.Info("finsight started", "version", finsight.Version)
	return g.Wait()
}

// classifierFromConfig builds the intent classifier with the configured
// confidence tuning.
func classifierFromConfig(cfg config.ClassifierConfig) *scenario.Classifier {
	return scenario.NewClassifier(scenario.WithConfidenceParams(scenario.ConfidenceParams{
		Base:                cfg.BaseConfidence,
		PerMatch:            cfg.PerMatchBoost,
		MaxMatchBoosts:      cfg.MaxMatchBoosts,
		ClearWinnerBoost:    cfg.ClearWinnerBoost,
		RoleBoost:           cfg.RoleMatchBoost,
		Cap:                 cfg.ConfidenceCap,
		HeuristicConfidence: cfg.HeuristicConfidence,
	}))
}

// llmParseFallback adapts the LLM provider into the parser's fallback
// callback. It asks for a strict JSON answer and decodes it; any decoding
// problem surfaces as an error, which the parser swallows.
func llmParseFallback(provider llm.Provider, recorder observability.Recorder) queryparse.FallbackFunc {
	if provider == nil {
		return nil
	}
	return func(ctx context.Context, query string) ([]model.Position, error) {
		started := time.Now()
		text, err := provider.Generate(ctx, []llm.Message{
			{Role: "system", Content: "Extract portfolio positions from the user query. " +
				"Answer with a JSON array only, e.g. [{\"ticker\":\"SBER\",\"weight\":0.4}]. " +
				"Answer [] when the query contains no positions."},
			{Role: "user", Content: query},
		})
		recorder.RecordLLM(ctx, provider.ModelName(), time.Since(started), err != nil)
		if err != nil {
			return nil, err
		}
		var positions []model.Position
		if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &positions); err != nil {
			return nil, fmt.Errorf("llm returned unparsable positions: %w", err)
		}
		return positions, nil
	}
}

func (c *CheckCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}

	// Mirror the serve composition with offline collaborators: readiness
	// only needs names in the registry, not live backends.
	registry := subagent.NewRegistry()
	for _, sa := range []subagent.Subagent{
		subagents.NewMarketDataAgent(&subagents.StaticQuoteSource{}, nil),
		subagents.NewRiskAgent(nil),
		subagents.NewDashboardAgent(nil),
		subagents.NewExplainerAgent(nil, nil),
		subagents.NewPlannerAgent(nil),
	} {
		if err := registry.Register(sa); err != nil {
			return err
		}
	}

	orch := orchestrator.New(registry, session.NewMemoryStore(cfg.Session.TTL),
		orchestrator.WithDefaultStepTimeout(cfg.Pipelines.DefaultStepTimeout),
	)
	readiness := orch.Readiness()

	tags := make([]string, 0, len(readiness))
	byTag := make(map[string][]string)
	allReady := true
	for tag, steps := range readiness {
		tags = append(tags, tag.String())
		for _, st := range steps {
			mark := "ok"
			if !st.Ready {
				mark = "MISSING"
				if st.Required {
					allReady = false
				}
			}
			byTag[tag.String()] = append(byTag[tag.String()],
				fmt.Sprintf("  %-12s required=%-5v %s", st.Agent, st.Required, mark))
		}
	}
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Println(tag)
		for _, line := range byTag[tag] {
			fmt.Println(line)
		}
	}

	if !allReady {
		return fmt.Errorf("required subagents missing")
	}
	fmt.Println("all pipelines ready")
	return nil
}

func (c *ValidateCmd) Run() error {
	if _, err := config.Load(c.Config); err != nil {
		return err
	}
	fmt.Println("config valid")
	return nil
}

func (c *SchemaCmd) Run() error {
	schema := jsonschema.Reflect(&config.Config{})
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func (c *VersionCmd) Run() error {
	fmt.Printf("finsight %s\n", finsight.Version)
	return nil
}
