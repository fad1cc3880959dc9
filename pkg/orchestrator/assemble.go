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

package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/finsight-ai/finsight/pkg/model"
	"github.com/finsight-ai/finsight/pkg/pipeline"
	"github.com/finsight-ai/finsight/pkg/subagent"
)

// assemble builds the response envelope from the execution context: the
// explainer's narrative, tabular views for the known result keys and the
// dashboard payload verbatim.
func (o *Orchestrator) assemble(req *model.AnalysisRequest, ec *subagent.ExecutionContext, run *pipelineRun) *model.AnalysisResponse {
	ru := req.IsRussian()

	resp := &model.AnalysisResponse{
		Status:    model.StatusSuccess,
		Text:      extractText(ec),
		Tables:    o.buildTables(ec, ru),
		Dashboard: extractDashboard(ec),
		Timestamp: time.Now(),
	}

	if !run.success {
		if strings.TrimSpace(resp.Text) != "" {
			resp.Status = model.StatusPartial
			resp.Error = strings.Join(ec.Errors(), "; ")
		} else {
			resp.Status = model.StatusError
			resp.Error = strings.Join(run.errors, "; ")
			if resp.Error == "" {
				resp.Error = strings.Join(ec.Errors(), "; ")
			}
		}
		return resp
	}

	if strings.TrimSpace(resp.Text) == "" {
		resp.Text = userMessage(ru,
			"К сожалению, не удалось подготовить текстовый разбор по этому запросу.",
			"Sorry, a narrative summary could not be produced for this request.")
	}
	return resp
}

// extractText pulls the narrative from the explainer result, accepting the
// typed payload, a raw string or a loose map with a text field.
func extractText(ec *subagent.ExecutionContext) string {
	raw, ok := ec.Result(pipeline.AgentExplainer)
	if !ok {
		return ""
	}
	switch v := raw.(type) {
	case *model.Explanation:
		return v.Text
	case model.Explanation:
		return v.Text
	case string:
		return v
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return text
		}
	}
	return ""
}

func extractDashboard(ec *subagent.ExecutionContext) *model.DashboardSpec {
	raw, ok := ec.Result(pipeline.AgentDashboard)
	if !ok {
		return nil
	}
	if spec, ok := raw.(*model.DashboardSpec); ok {
		return spec
	}
	return nil
}

func (o *Orchestrator) buildTables(ec *subagent.ExecutionContext, ru bool) []model.Table {
	var tables []model.Table

	if raw, ok := ec.Result(pipeline.AgentRisk); ok {
		if report, ok := raw.(*model.RiskReport); ok {
			if t := positionsTable(report, ru); t != nil {
				tables = append(tables, *t)
			}
			if t := stressTable(report, ru); t != nil {
				tables = append(tables, *t)
			}
		}
	}

	if raw, ok := ec.Result(pipeline.AgentMarketData); ok {
		if data, ok := raw.(*model.MarketData); ok && len(data.Quotes) > 1 {
			tables = append(tables, comparisonTable(data, ru))
		}
	}

	return tables
}

func positionsTable(report *model.RiskReport, ru bool) *model.Table {
	if len(report.Positions) == 0 {
		return nil
	}
	t := &model.Table{
		ID:    "positions",
		Title: userMessage(ru, "Позиции портфеля", "Portfolio positions"),
		Columns: []string{
			userMessage(ru, "Тикер", "Ticker"),
			userMessage(ru, "Вес", "Weight"),
			userMessage(ru, "Волатильность", "Volatility"),
			"VaR 95%",
		},
	}
	for _, p := range report.Positions {
		t.Rows = append(t.Rows, []string{
			p.Ticker,
			fmt.Sprintf("%.1f%%", p.Weight*100),
			fmt.Sprintf("%.1f%%", p.Volatility*100),
			fmt.Sprintf("%.1f%%", p.VaR95*100),
		})
	}
	return t
}

func stressTable(report *model.RiskReport, ru bool) *model.Table {
	if len(report.Stress) == 0 {
		return nil
	}
	t := &model.Table{
		ID:    "stress_scenarios",
		Title: userMessage(ru, "Стресс-сценарии", "Stress scenarios"),
		Columns: []string{
			userMessage(ru, "Сценарий", "Scenario"),
			userMessage(ru, "Шок", "Shock"),
			userMessage(ru, "Влияние на портфель", "Portfolio impact"),
		},
	}
	for _, s := range report.Stress {
		t.Rows = append(t.Rows, []string{
			s.Name,
			fmt.Sprintf("%+.1f%%", s.ShockPct),
			fmt.Sprintf("%+.1f%%", s.ImpactPct),
		})
	}
	return t
}

func comparisonTable(data *model.MarketData, ru bool) model.Table {
	t := model.Table{
		ID:    "securities_comparison",
		Title: userMessage(ru, "Сравнение инструментов", "Securities comparison"),
		Columns: []string{
			userMessage(ru, "Тикер", "Ticker"),
			userMessage(ru, "Цена", "Price"),
			userMessage(ru, "Изменение", "Change"),
			userMessage(ru, "Валюта", "Currency"),
		},
	}
	for _, q := range data.Quotes {
		t.Rows = append(t.Rows, []string{
			q.Ticker,
			fmt.Sprintf("%.2f", q.Price),
			fmt.Sprintf("%+.2f%%", q.ChangePct),
			q.Currency,
		})
	}
	return t
}
