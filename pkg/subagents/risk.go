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

package subagents

import (
	"context"
	"log/slog"
	"math"

	"github.com/finsight-ai/finsight/pkg/model"
	"github.com/finsight-ai/finsight/pkg/pipeline"
	"github.com/finsight-ai/finsight/pkg/subagent"
)

const (
	// annualizationFactor converts daily volatility to annual.
	annualizationFactor = 252

	// var95Z is the one-sided 95% normal quantile.
	var95Z = 1.645
)

// defaultStressScenarios are the fixed shocks applied to every portfolio.
var defaultStressScenarios = []model.StressScenario{
	{Name: "market_correction", ShockPct: -10},
	{Name: "market_crash", ShockPct: -25},
	{Name: "rate_hike_200bp", ShockPct: -7},
	{Name: "fx_devaluation_15", ShockPct: -5},
}

// RiskAgent computes portfolio risk figures from positions and fetched
// market data. Pure computation, no I/O.
type RiskAgent struct {
	log *slog.Logger
}

// NewRiskAgent creates the risk-analytics subagent.
func NewRiskAgent(log *slog.Logger) *RiskAgent {
	if log == nil {
		log = slog.Default()
	}
	return &RiskAgent{log: log}
}

func (a *RiskAgent) Name() string {
	return pipeline.AgentRisk
}

func (a *RiskAgent) Capabilities() []string {
	return []string{"risk-analytics"}
}

func (a *RiskAgent) Execute(_ context.Context, ec *subagent.ExecutionContext) (*subagent.Result, error) {
	raw, ok := ec.Result(pipeline.AgentMarketData)
	if !ok {
		return subagent.Errorf("risk: market data not available"), nil
	}
	data, ok := raw.(*model.MarketData)
	if !ok || len(data.Quotes) == 0 {
		return subagent.Errorf("risk: market data payload is empty"), nil
	}

	positions := resolvePositions(ec, data)
	report := computeRisk(positions, data)

	if report.Volatility == 0 {
		return subagent.Partial(report,
			"risk: no price history available, volatility figures omitted",
		).WithNextAgent(pipeline.AgentDashboard), nil
	}
	return subagent.Success(report).WithNextAgent(pipeline.AgentDashboard), nil
}

// resolvePositions uses parsed portfolio positions when present, otherwise
// treats the fetched instruments as an equally weighted set.
func resolvePositions(ec *subagent.ExecutionContext, data *model.MarketData) []model.Position {
	if raw, ok := ec.Result(subagent.ParamsKey); ok {
		if params, ok := raw.(*model.PortfolioParams); ok && len(params.Positions) > 0 {
			return params.Positions
		}
	}

	equal := 1.0 / float64(len(data.Quotes))
	positions := make([]model.Position, 0, len(data.Quotes))
	for _, q := range data.Quotes {
		positions = append(positions, model.Position{Ticker: q.Ticker, Weight: equal})
	}
	return positions
}

func computeRisk(positions []model.Position, data *model.MarketData) *model.RiskReport {
	report := &model.RiskReport{}

	var portfolioVol float64
	for _, pos := range positions {
		pr := model.PositionRisk{Ticker: pos.Ticker, Weight: pos.Weight}
		if q, ok := data.Find(pos.Ticker); ok && len(q.History) > 1 {
			vol := annualizedVolatility(q.History)
			pr.Volatility = vol
			pr.VaR95 = var95Z * vol
			portfolioVol += pos.Weight * vol
		}
		report.Positions = append(report.Positions, pr)
	}

	report.Volatility = portfolioVol
	report.VaR95 = var95Z * portfolioVol
	report.MaxDrawdown = portfolioDrawdown(positions, data)

	// Stress impact scales with how volatile the portfolio is relative to a
	// 20% annual vol baseline.
	beta := 1.0
	if portfolioVol > 0 {
		beta = portfolioVol / 0.20
	}
	for _, s := range defaultStressScenarios {
		report.Stress = append(report.Stress, model.StressScenario{
			Name:      s.Name,
			ShockPct:  s.ShockPct,
			ImpactPct: round2(s.ShockPct * beta),
		})
	}

	return report
}

// annualizedVolatility computes the stddev of simple returns over the price
// history, scaled to one year.
func annualizedVolatility(history []float64) float64 {
	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		if history[i-1] == 0 {
			continue
		}
		returns = append(returns, history[i]/history[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(annualizationFactor)
}

// portfolioDrawdown computes the maximum peak-to-trough decline of the
// weighted portfolio value series.
func portfolioDrawdown(positions []model.Position, data *model.MarketData) float64 {
	length := 0
	for _, pos := range positions {
		if q, ok := data.Find(pos.Ticker); ok {
			if length == 0 || len(q.History) < length {
				length = len(q.History)
			}
		}
	}
	if length < 2 {
		return 0
	}

	series := make([]float64, length)
	for _, pos := range positions {
		q, ok := data.Find(pos.Ticker)
		if !ok || len(q.History) == 0 {
			continue
		}
		base := q.History[0]
		if base == 0 {
			continue
		}
		for i := 0; i < length; i++ {
			series[i] += pos.Weight * (q.History[i] / base)
		}
	}

	peak := series[0]
	maxDD := 0.0
	for _, v := range series[1:] {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
