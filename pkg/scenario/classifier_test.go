package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name  string
		query string
		role  string
		want  Tag
	}{
		{
			name:  "russian portfolio risk query",
			query: "Оцени риск портфеля: SBER 40%, GAZP 30%, LKOH 30%",
			want:  PortfolioRisk,
		},
		{
			name:  "english portfolio risk query",
			query: "what is the volatility and drawdown of my portfolio?",
			want:  PortfolioRisk,
		},
		{
			name:  "liquidity query",
			query: "Какая у нас ликвидность на конец месяца?",
			want:  CFOLiquidity,
		},
		{
			name:  "issuer comparison",
			query: "compare the credit quality of these bonds",
			want:  IssuerCompare,
		},
		{
			name:  "securities comparison keywords",
			query: "compare SBER vs GAZP",
			want:  SecuritiesCompare,
		},
		{
			name:  "index scan",
			query: "просканируй индекс IMOEX",
			want:  IndexScan,
		},
		{
			name:  "smalltalk is unknown",
			query: "привет, как дела?",
			want:  Unknown,
		},
		{
			name:  "empty query is unknown",
			query: "",
			want:  Unknown,
		},
		{
			name:  "whitespace query is unknown",
			query: "   \t\n",
			want:  Unknown,
		},
		{
			name:  "two bare tickers fall back to comparison",
			query: "SBER GAZP",
			want:  SecuritiesCompare,
		},
		{
			name:  "single bare ticker falls back to overview",
			query: "AAPL",
			want:  SecurityOverview,
		},
		{
			name:  "role default when nothing matches",
			query: "что делать дальше",
			role:  "cfo",
			want:  CFOLiquidity,
		},
		{
			name:  "role priority breaks keyword tie",
			query: "риск и ликвидность",
			role:  "cfo",
			want:  CFOLiquidity,
		},
		{
			name:  "tie without role resolves by declaration order",
			query: "риск и ликвидность",
			want:  PortfolioRisk,
		},
		{
			name:  "role name is case insensitive",
			query: "что делать дальше",
			role:  " CFO ",
			want:  CFOLiquidity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.query, tt.role))
		})
	}
}

func TestClassifyWithConfidence(t *testing.T) {
	c := NewClassifier()

	t.Run("empty query scores zero", func(t *testing.T) {
		tag, conf := c.ClassifyWithConfidence("", "")
		assert.Equal(t, Unknown, tag)
		assert.Equal(t, 0.0, conf)
	})

	t.Run("unmatched query scores zero", func(t *testing.T) {
		tag, conf := c.ClassifyWithConfidence("привет, как дела?", "")
		assert.Equal(t, Unknown, tag)
		assert.Equal(t, 0.0, conf)
	})

	t.Run("two keyword matches with clear winner", func(t *testing.T) {
		// "риск" and "портфел" match, no competitor: 0.5 + 0.15 + 0.1.
		tag, conf := c.ClassifyWithConfidence(
			"Оцени риск портфеля: SBER 40%, GAZP 30%, LKOH 30%", "")
		assert.Equal(t, PortfolioRisk, tag)
		assert.InDelta(t, 0.75, conf, 1e-9)
	})

	t.Run("match boosts are capped", func(t *testing.T) {
		// Six patterns match but only three count; clear winner and role
		// boosts push the score past the cap.
		tag, conf := c.ClassifyWithConfidence(
			"risk volatility drawdown portfolio var стресс", "risk_manager")
		assert.Equal(t, PortfolioRisk, tag)
		assert.InDelta(t, 0.98, conf, 1e-9)
	})

	t.Run("tie denies the clear winner boost", func(t *testing.T) {
		// One match each for risk and liquidity; role picks liquidity and
		// adds only the role boost.
		tag, conf := c.ClassifyWithConfidence("риск и ликвидность", "cfo")
		assert.Equal(t, CFOLiquidity, tag)
		assert.InDelta(t, 0.6, conf, 1e-9)
	})

	t.Run("ticker heuristic scores low", func(t *testing.T) {
		tag, conf := c.ClassifyWithConfidence("SBER GAZP", "")
		assert.Equal(t, SecuritiesCompare, tag)
		assert.InDelta(t, 0.3, conf, 1e-9)

		tag, conf = c.ClassifyWithConfidence("AAPL", "")
		assert.Equal(t, SecurityOverview, tag)
		assert.InDelta(t, 0.3, conf, 1e-9)
	})

	t.Run("role default scores low", func(t *testing.T) {
		tag, conf := c.ClassifyWithConfidence("что делать дальше", "treasurer")
		assert.Equal(t, CFOLiquidity, tag)
		assert.InDelta(t, 0.3, conf, 1e-9)
	})
}

func TestClassifierOptions(t *testing.T) {
	t.Run("custom confidence params", func(t *testing.T) {
		params := DefaultConfidenceParams()
		params.Base = 0.4
		params.ClearWinnerBoost = 0

		c := NewClassifier(WithConfidenceParams(params))
		tag, conf := c.ClassifyWithConfidence("оцени риск", "")
		assert.Equal(t, PortfolioRisk, tag)
		assert.InDelta(t, 0.4, conf, 1e-9)
	})

	t.Run("custom role priorities", func(t *testing.T) {
		c := NewClassifier(WithRolePriorities(map[string][]Tag{
			"quant": {IndexScan},
		}))
		assert.Equal(t, IndexScan, c.Classify("чем заняться", "quant"))
	})
}

func TestTagValid(t *testing.T) {
	for _, tag := range All() {
		assert.True(t, tag.Valid(), tag)
	}
	assert.True(t, Unknown.Valid())
	assert.False(t, Tag("made_up").Valid())
}

func TestAllExcludesUnknown(t *testing.T) {
	require.NotEmpty(t, All())
	for _, tag := range All() {
		assert.NotEqual(t, Unknown, tag)
	}
}
