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

// Package subagents contains the concrete workers the orchestrator runs:
// market-data fetch, risk analytics, dashboard assembly, narrative
// explanation and planning hints.
package subagents

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"regexp"
	"time"

	"github.com/finsight-ai/finsight/pkg/mcp"
	"github.com/finsight-ai/finsight/pkg/model"
	"github.com/finsight-ai/finsight/pkg/pipeline"
	"github.com/finsight-ai/finsight/pkg/subagent"
)

// QuoteSource fetches market data for a ticker set.
type QuoteSource interface {
	Fetch(ctx context.Context, tickers []string) (*model.MarketData, error)
}

// MCPQuoteSource fetches quotes through an MCP tool server. The tool is
// expected to return a JSON document matching model.MarketData.
type MCPQuoteSource struct {
	Manager  *mcp.Manager
	ToolName string
}

func (s *MCPQuoteSource) Fetch(ctx context.Context, tickers []string) (*model.MarketData, error) {
	tool := s.ToolName
	if tool == "" {
		tool = "get_quotes"
	}
	raw, err := s.Manager.CallTool(ctx, tool, map[string]any{"tickers": tickers})
	if err != nil {
		return nil, err
	}

	var data model.MarketData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", tool, err)
	}
	return &data, nil
}

// StaticQuoteSource produces deterministic synthetic quotes, used for local
// development and tests when no MCP server is configured.
type StaticQuoteSource struct{}

func (s *StaticQuoteSource) Fetch(_ context.Context, tickers []string) (*model.MarketData, error) {
	now := time.Now()
	data := &model.MarketData{AsOf: now}
	for _, t := range tickers {
		seed := float64(hashTicker(t)%9000+1000) / 10 // 100.0 .. 999.9
		history := make([]float64, 30)
		price := seed
		for i := range history {
			// Small deterministic oscillation around the seed price.
			price = seed * (1 + 0.02*math.Sin(float64(i)+seed))
			history[i] = round2(price)
		}
		data.Quotes = append(data.Quotes, model.Quote{
			Ticker:    t,
			Price:     round2(price),
			Currency:  "RUB",
			ChangePct: round2((history[len(history)-1]/history[0] - 1) * 100),
			History:   history,
			AsOf:      now,
		})
	}
	return data, nil
}

func hashTicker(t string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(t))
	return h.Sum32()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var queryTickerPattern = regexp.MustCompile(`\b[A-Z]{2,6}\b`)

// MarketDataAgent resolves the ticker set for the request and fetches
// quotes for it.
type MarketDataAgent struct {
	source QuoteSource
	log    *slog.Logger
}

// NewMarketDataAgent creates the market-data subagent.
func NewMarketDataAgent(source QuoteSource, log *slog.Logger) *MarketDataAgent {
	if log == nil {
		log = slog.Default()
	}
	return &MarketDataAgent{source: source, log: log}
}

func (a *MarketDataAgent) Name() string {
	return pipeline.AgentMarketData
}

func (a *MarketDataAgent) Capabilities() []string {
	return []string{"market-data", "quotes"}
}

func (a *MarketDataAgent) Execute(ctx context.Context, ec *subagent.ExecutionContext) (*subagent.Result, error) {
	tickers := requestTickers(ec)
	if len(tickers) == 0 {
		return subagent.Errorf("market_data: no instruments to fetch"), nil
	}

	data, err := a.source.Fetch(ctx, tickers)
	if err != nil {
		return subagent.Errorf("market_data: fetch failed: %v", err), nil
	}

	if missing := missingTickers(tickers, data); len(missing) > 0 {
		if len(data.Quotes) == 0 {
			return subagent.Errorf("market_data: no quotes returned for %v", tickers), nil
		}
		return subagent.Partial(data, "market_data: no quotes for %v", missing).WithNextAgent(pipeline.AgentRisk), nil
	}

	a.log.Debug("fetched market data", "tickers", len(tickers))
	return subagent.Success(data).WithNextAgent(pipeline.AgentRisk), nil
}

// requestTickers prefers resolved portfolio positions and falls back to
// ticker-like tokens in the raw query.
func requestTickers(ec *subagent.ExecutionContext) []string {
	if raw, ok := ec.Result(subagent.ParamsKey); ok {
		if params, ok := raw.(*model.PortfolioParams); ok && len(params.Positions) > 0 {
			tickers := make([]string, 0, len(params.Positions))
			for _, p := range params.Positions {
				tickers = append(tickers, p.Ticker)
			}
			return tickers
		}
	}

	var tickers []string
	seen := make(map[string]bool)
	for _, m := range queryTickerPattern.FindAllString(ec.Query(), -1) {
		if !seen[m] {
			seen[m] = true
			tickers = append(tickers, m)
		}
	}
	return tickers
}

func missingTickers(requested []string, data *model.MarketData) []string {
	var missing []string
	for _, t := range requested {
		if _, ok := data.Find(t); !ok {
			missing = append(missing, t)
		}
	}
	return missing
}
