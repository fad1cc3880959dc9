package subagents

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/pkg/model"
	"github.com/finsight-ai/finsight/pkg/subagent"
)

// fakeQuoteSource serves a fixed quote set, or fails.
type fakeQuoteSource struct {
	data *model.MarketData
	err  error
}

func (f *fakeQuoteSource) Fetch(context.Context, []string) (*model.MarketData, error) {
	return f.data, f.err
}

func newContext(t *testing.T, query string) *subagent.ExecutionContext {
	t.Helper()
	ec, err := subagent.NewExecutionContext(query, "sess")
	require.NoError(t, err)
	return ec
}

func withPositions(t *testing.T, query string, positions ...model.Position) *subagent.ExecutionContext {
	t.Helper()
	ec := newContext(t, query)
	ec.SetResult(subagent.ParamsKey, &model.PortfolioParams{Positions: positions})
	return ec
}

func TestStaticQuoteSource(t *testing.T) {
	src := &StaticQuoteSource{}
	ctx := context.Background()

	data, err := src.Fetch(ctx, []string{"SBER", "GAZP"})
	require.NoError(t, err)
	require.Len(t, data.Quotes, 2)

	for _, q := range data.Quotes {
		assert.NotZero(t, q.Price)
		assert.Equal(t, "RUB", q.Currency)
		assert.Len(t, q.History, 30)
	}

	// Quotes are deterministic per ticker.
	again, err := src.Fetch(ctx, []string{"SBER", "GAZP"})
	require.NoError(t, err)
	assert.Equal(t, data.Quotes[0].History, again.Quotes[0].History)
	assert.Equal(t, data.Quotes[0].Price, again.Quotes[0].Price)

	// Different tickers get different price levels.
	assert.NotEqual(t, data.Quotes[0].Price, data.Quotes[1].Price)
}

func TestMarketDataAgentTickersFromPositions(t *testing.T) {
	a := NewMarketDataAgent(&StaticQuoteSource{}, nil)
	ec := withPositions(t, "оцени риск портфеля",
		model.Position{Ticker: "SBER", Weight: 0.6},
		model.Position{Ticker: "GAZP", Weight: 0.4},
	)

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	require.Equal(t, subagent.StatusSuccess, res.Status)

	data, ok := res.Payload.(*model.MarketData)
	require.True(t, ok)
	require.Len(t, data.Quotes, 2)
	assert.Equal(t, "SBER", data.Quotes[0].Ticker)
	assert.Equal(t, "GAZP", data.Quotes[1].Ticker)
}

func TestMarketDataAgentTickersFromQuery(t *testing.T) {
	a := NewMarketDataAgent(&StaticQuoteSource{}, nil)
	ec := newContext(t, "сравни SBER и GAZP и снова SBER")

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	require.Equal(t, subagent.StatusSuccess, res.Status)

	data := res.Payload.(*model.MarketData)
	// Duplicates collapse.
	require.Len(t, data.Quotes, 2)
}

func TestMarketDataAgentNoTickers(t *testing.T) {
	a := NewMarketDataAgent(&StaticQuoteSource{}, nil)
	ec := newContext(t, "привет, как дела?")

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, subagent.StatusError, res.Status)
	assert.Contains(t, res.Err, "no instruments")
}

func TestMarketDataAgentFetchFailure(t *testing.T) {
	a := NewMarketDataAgent(&fakeQuoteSource{err: fmt.Errorf("moex unavailable")}, nil)
	ec := newContext(t, "SBER GAZP")

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, subagent.StatusError, res.Status)
	assert.Contains(t, res.Err, "moex unavailable")
}

func TestMarketDataAgentPartialCoverage(t *testing.T) {
	src := &fakeQuoteSource{data: &model.MarketData{
		Quotes: []model.Quote{{Ticker: "SBER", Price: 280}},
	}}
	a := NewMarketDataAgent(src, nil)
	ec := newContext(t, "SBER GAZP")

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, subagent.StatusPartial, res.Status)
	assert.Contains(t, res.Err, "GAZP")
	assert.NotNil(t, res.Payload)
}

func TestMarketDataAgentEmptyAnswer(t *testing.T) {
	src := &fakeQuoteSource{data: &model.MarketData{}}
	a := NewMarketDataAgent(src, nil)
	ec := newContext(t, "SBER GAZP")

	res, err := a.Execute(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, subagent.StatusError, res.Status)
	assert.Contains(t, res.Err, "no quotes returned")
}
