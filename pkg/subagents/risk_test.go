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

func marketDataFixture() *model.MarketData {
	return &model.MarketData{
		Quotes: []model.Quote{
			{Ticker: "SBER", Price: 105, History: []float64{100, 110, 99, 105}},
			{Ticker: "GAZP", Price: 120, History: []float64{100, 95, 108, 120}},
		},
	}
}

func TestRiskAgentRequiresMarketData(t *testing.T) {
	a := NewRiskAgent(nil)

	t.Run("missing result", func(t *testing.T) {
		ec := newContext(t, "оцени риск")
		res, err := a.Execute(context.Background(), ec)
		require.NoError(t, err)
		assert.Equal(t, subagent.StatusError, res.Status)
	})

	t.Run("empty payload", func(t *testing.T) {
		ec := newContext(t, "оцени риск")
		ec.SetResult(pipeline.AgentMarketData, &model.MarketData{})
		res, err := a.Execute(context.Background(), ec)
		require.NoError(t, err)
		assert.Equal(t, subagent.StatusError, res.Status)
	})
}

func TestRiskAgentComputesReport(t *testing.T) {
	a := NewRiskAgent(nil)
	ec := withPositions(t, "оцени риск",
		model.Position{Ticker: "SBER", Weight: 0.5},
		model.Position{Ticker: "GAZP", Weight: 0.5},
	)
	ec.SetResult(pipeline.AgentMarketData, marketDataFixture())

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	require.Equal(t, subagent.StatusSuccess, res.Status)
	assert.Equal(t, pipeline.AgentDashboard, res.NextAgent)

	report, ok := res.Payload.(*model.RiskReport)
	require.True(t, ok)

	require.Len(t, report.Positions, 2)
	for _, p := range report.Positions {
		assert.Positive(t, p.Volatility)
		assert.InDelta(t, 1.645*p.Volatility, p.VaR95, 1e-9)
	}

	assert.Positive(t, report.Volatility)
	assert.InDelta(t, 1.645*report.Volatility, report.VaR95, 1e-9)
	assert.Greater(t, report.MaxDrawdown, 0.0)
	assert.Less(t, report.MaxDrawdown, 1.0)

	// The stress table carries all fixed shocks, scaled by portfolio beta.
	require.Len(t, report.Stress, 4)
	for _, s := range report.Stress {
		assert.Negative(t, s.ShockPct)
		assert.Negative(t, s.ImpactPct)
	}
}

func TestRiskAgentSingleAssetDrawdown(t *testing.T) {
	a := NewRiskAgent(nil)
	ec := withPositions(t, "оцени риск", model.Position{Ticker: "SBER", Weight: 1})
	ec.SetResult(pipeline.AgentMarketData, &model.MarketData{
		Quotes: []model.Quote{
			{Ticker: "SBER", History: []float64{100, 110, 99, 105}},
		},
	})

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	report := res.Payload.(*model.RiskReport)

	// Peak 110, trough 99: drawdown 11/110 = 10%.
	assert.InDelta(t, 0.1, report.MaxDrawdown, 1e-9)
}

func TestRiskAgentEqualWeightsWithoutPositions(t *testing.T) {
	a := NewRiskAgent(nil)
	ec := newContext(t, "сравни SBER и GAZP")
	ec.SetResult(pipeline.AgentMarketData, marketDataFixture())

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	report := res.Payload.(*model.RiskReport)

	require.Len(t, report.Positions, 2)
	assert.InDelta(t, 0.5, report.Positions[0].Weight, 1e-9)
	assert.InDelta(t, 0.5, report.Positions[1].Weight, 1e-9)
}

func TestRiskAgentNoHistoryIsPartial(t *testing.T) {
	a := NewRiskAgent(nil)
	ec := withPositions(t, "оцени риск", model.Position{Ticker: "SBER", Weight: 1})
	ec.SetResult(pipeline.AgentMarketData, &model.MarketData{
		Quotes: []model.Quote{{Ticker: "SBER", Price: 280}},
	})

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, subagent.StatusPartial, res.Status)

	// The degraded report still carries the position list and stress table.
	report := res.Payload.(*model.RiskReport)
	require.Len(t, report.Positions, 1)
	assert.Zero(t, report.Volatility)
	assert.Len(t, report.Stress, 4)
}
