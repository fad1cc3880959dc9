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
	"fmt"
	"log/slog"
	"strings"

	"github.com/finsight-ai/finsight/pkg/llm"
	"github.com/finsight-ai/finsight/pkg/model"
	"github.com/finsight-ai/finsight/pkg/pipeline"
	"github.com/finsight-ai/finsight/pkg/subagent"
)

const explainerSystemPrompt = `You are a financial analysis assistant.
Summarize the supplied analysis results for the user in their language.
Be concrete: cite the figures you were given. Do not invent numbers.`

// ExplainerAgent produces the narrative text of the response. When an LLM
// provider is configured it phrases the summary; otherwise (or when the
// provider fails) it falls back to a deterministic template.
type ExplainerAgent struct {
	provider llm.Provider
	log      *slog.Logger
}

// NewExplainerAgent creates the explainer subagent. provider may be nil.
func NewExplainerAgent(provider llm.Provider, log *slog.Logger) *ExplainerAgent {
	if log == nil {
		log = slog.Default()
	}
	return &ExplainerAgent{provider: provider, log: log}
}

func (a *ExplainerAgent) Name() string {
	return pipeline.AgentExplainer
}

func (a *ExplainerAgent) Capabilities() []string {
	return []string{"explainer", "text"}
}

func (a *ExplainerAgent) Execute(ctx context.Context, ec *subagent.ExecutionContext) (*subagent.Result, error) {
	summary := buildFactSummary(ec)
	if summary == "" {
		return subagent.Errorf("explainer: no upstream results to explain"), nil
	}

	if a.provider == nil {
		return subagent.Success(&model.Explanation{Text: summary}), nil
	}

	text, err := a.provider.Generate(ctx, []llm.Message{
		{Role: "system", Content: explainerSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Query: %s\n\nAnalysis results:\n%s", ec.Query(), summary)},
	})
	if err != nil {
		a.log.Warn("explainer LLM call failed, using template text", "error", err)
		return subagent.Partial(&model.Explanation{Text: summary},
			"explainer: llm unavailable: %v", err), nil
	}
	if strings.TrimSpace(text) == "" {
		return subagent.Partial(&model.Explanation{Text: summary},
			"explainer: llm returned empty text"), nil
	}
	return subagent.Success(&model.Explanation{Text: text}), nil
}

// buildFactSummary renders the accumulated results as plain text, both as
// LLM input and as the fallback narrative.
func buildFactSummary(ec *subagent.ExecutionContext) string {
	var sb strings.Builder

	if raw, ok := ec.Result(subagent.ParamsKey); ok {
		if params, ok := raw.(*model.PortfolioParams); ok && len(params.Positions) > 0 {
			sb.WriteString("Portfolio: ")
			for i, p := range params.Positions {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "%s %.1f%%", p.Ticker, p.Weight*100)
			}
			sb.WriteString(".\n")
		}
	}

	if raw, ok := ec.Result(pipeline.AgentMarketData); ok {
		if data, ok := raw.(*model.MarketData); ok && len(data.Quotes) > 0 {
			sb.WriteString("Quotes: ")
			for i, q := range data.Quotes {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "%s %.2f %s (%+.2f%%)", q.Ticker, q.Price, q.Currency, q.ChangePct)
			}
			sb.WriteString(".\n")
		}
	}

	if raw, ok := ec.Result(pipeline.AgentRisk); ok {
		if report, ok := raw.(*model.RiskReport); ok {
			fmt.Fprintf(&sb, "Risk: annual volatility %.1f%%, VaR(95%%) %.1f%%, max drawdown %.1f%%.\n",
				report.Volatility*100, report.VaR95*100, report.MaxDrawdown*100)
			if len(report.Stress) > 0 {
				sb.WriteString("Stress impact: ")
				for i, s := range report.Stress {
					if i > 0 {
						sb.WriteString(", ")
					}
					fmt.Fprintf(&sb, "%s %+.1f%%", s.Name, s.ImpactPct)
				}
				sb.WriteString(".\n")
			}
		}
	}

	return strings.TrimSpace(sb.String())
}
