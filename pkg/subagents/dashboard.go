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

	"github.com/finsight-ai/finsight/pkg/model"
	"github.com/finsight-ai/finsight/pkg/pipeline"
	"github.com/finsight-ai/finsight/pkg/subagent"
)

// DashboardAgent folds earlier step results into a dashboard specification
// consumed by the frontend renderer.
type DashboardAgent struct {
	log *slog.Logger
}

// NewDashboardAgent creates the dashboard subagent.
func NewDashboardAgent(log *slog.Logger) *DashboardAgent {
	if log == nil {
		log = slog.Default()
	}
	return &DashboardAgent{log: log}
}

func (a *DashboardAgent) Name() string {
	return pipeline.AgentDashboard
}

func (a *DashboardAgent) Capabilities() []string {
	return []string{"dashboard"}
}

func (a *DashboardAgent) Execute(_ context.Context, ec *subagent.ExecutionContext) (*subagent.Result, error) {
	spec := &model.DashboardSpec{Title: "Analysis"}

	if raw, ok := ec.Result(pipeline.AgentRisk); ok {
		if report, ok := raw.(*model.RiskReport); ok {
			spec.Widgets = append(spec.Widgets, riskWidgets(report)...)
		}
	}
	if raw, ok := ec.Result(pipeline.AgentMarketData); ok {
		if data, ok := raw.(*model.MarketData); ok {
			spec.Widgets = append(spec.Widgets, quotesWidget(data))
		}
	}

	if len(spec.Widgets) == 0 {
		return subagent.Errorf("dashboard: no upstream results to render"), nil
	}
	return subagent.Success(spec).WithNextAgent(pipeline.AgentExplainer), nil
}

func riskWidgets(report *model.RiskReport) []model.Widget {
	widgets := []model.Widget{{
		Type:  "metrics",
		Title: "Risk summary",
		Data: map[string]any{
			"volatility":   report.Volatility,
			"var_95":       report.VaR95,
			"max_drawdown": report.MaxDrawdown,
		},
	}}

	if len(report.Positions) > 0 {
		weights := make(map[string]any, len(report.Positions))
		for _, p := range report.Positions {
			weights[p.Ticker] = p.Weight
		}
		widgets = append(widgets, model.Widget{
			Type:  "pie",
			Title: "Allocation",
			Data:  map[string]any{"weights": weights},
		})
	}

	if len(report.Stress) > 0 {
		impacts := make(map[string]any, len(report.Stress))
		for _, s := range report.Stress {
			impacts[s.Name] = s.ImpactPct
		}
		widgets = append(widgets, model.Widget{
			Type:  "bar",
			Title: "Stress scenarios",
			Data:  map[string]any{"impacts": impacts},
		})
	}

	return widgets
}

func quotesWidget(data *model.MarketData) model.Widget {
	rows := make([]map[string]any, 0, len(data.Quotes))
	for _, q := range data.Quotes {
		rows = append(rows, map[string]any{
			"ticker":     q.Ticker,
			"price":      q.Price,
			"change_pct": q.ChangePct,
			"currency":   q.Currency,
		})
	}
	return model.Widget{
		Type:  "table",
		Title: "Quotes",
		Data:  map[string]any{"rows": rows},
	}
}
