package subagents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/pkg/model"
	"github.com/finsight-ai/finsight/pkg/pipeline"
	"github.com/finsight-ai/finsight/pkg/subagent"
)

func riskReportFixture() *model.RiskReport {
	return &model.RiskReport{
		Volatility:  0.25,
		VaR95:       0.41,
		MaxDrawdown: 0.12,
		Positions: []model.PositionRisk{
			{Ticker: "SBER", Weight: 0.6, Volatility: 0.3},
			{Ticker: "GAZP", Weight: 0.4, Volatility: 0.2},
		},
		Stress: []model.StressScenario{
			{Name: "market_crash", ShockPct: -25, ImpactPct: -31.25},
		},
	}
}

func TestDashboardAgentNoUpstreamResults(t *testing.T) {
	a := NewDashboardAgent(nil)
	ec := newContext(t, "query")

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, subagent.StatusError, res.Status)
}

func TestDashboardAgentFromRiskReport(t *testing.T) {
	a := NewDashboardAgent(nil)
	ec := newContext(t, "query")
	ec.SetResult(pipeline.AgentRisk, riskReportFixture())

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	require.Equal(t, subagent.StatusSuccess, res.Status)
	assert.Equal(t, pipeline.AgentExplainer, res.NextAgent)

	spec, ok := res.Payload.(*model.DashboardSpec)
	require.True(t, ok)

	types := make([]string, 0, len(spec.Widgets))
	for _, w := range spec.Widgets {
		types = append(types, w.Type)
	}
	assert.Equal(t, []string{"metrics", "pie", "bar"}, types)

	assert.Equal(t, 0.25, spec.Widgets[0].Data["volatility"])
	weights := spec.Widgets[1].Data["weights"].(map[string]any)
	assert.Equal(t, 0.6, weights["SBER"])
}

func TestDashboardAgentFromMarketData(t *testing.T) {
	a := NewDashboardAgent(nil)
	ec := newContext(t, "query")
	ec.SetResult(pipeline.AgentMarketData, marketDataFixture())

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	require.Equal(t, subagent.StatusSuccess, res.Status)

	spec := res.Payload.(*model.DashboardSpec)
	require.Len(t, spec.Widgets, 1)
	assert.Equal(t, "table", spec.Widgets[0].Type)

	rows := spec.Widgets[0].Data["rows"].([]map[string]any)
	assert.Len(t, rows, 2)
}

func TestDashboardAgentCombined(t *testing.T) {
	a := NewDashboardAgent(nil)
	ec := newContext(t, "query")
	ec.SetResult(pipeline.AgentRisk, riskReportFixture())
	ec.SetResult(pipeline.AgentMarketData, marketDataFixture())

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	spec := res.Payload.(*model.DashboardSpec)
	assert.Len(t, spec.Widgets, 4)
}
