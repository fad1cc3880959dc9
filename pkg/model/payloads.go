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

package model

import "time"

// Position is one portfolio holding with a normalized weight in [0, 1].
type Position struct {
	Ticker string  `json:"ticker" mapstructure:"ticker"`
	Weight float64 `json:"weight" mapstructure:"weight"`
}

// PortfolioParams is the resolved parameter set for portfolio-oriented
// scenarios. It is persisted to the session store between turns and stored
// in the execution context under the reserved parameters key.
type PortfolioParams struct {
	Positions []Position `json:"positions" mapstructure:"positions"`
}

// Quote is a single instrument snapshot, optionally with a price history.
type Quote struct {
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name,omitempty"`
	Price     float64   `json:"price,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	ChangePct float64   `json:"change_pct,omitempty"`
	History   []float64 `json:"history,omitempty"`
	AsOf      time.Time `json:"as_of,omitempty"`
}

// MarketData is the market-data step payload.
type MarketData struct {
	Quotes []Quote   `json:"quotes,omitempty"`
	AsOf   time.Time `json:"as_of,omitempty"`
}

// Find returns the quote for a ticker, if present.
func (m *MarketData) Find(ticker string) (Quote, bool) {
	for _, q := range m.Quotes {
		if q.Ticker == ticker {
			return q, true
		}
	}
	return Quote{}, false
}

// PositionRisk holds per-position risk figures.
type PositionRisk struct {
	Ticker     string  `json:"ticker"`
	Weight     float64 `json:"weight,omitempty"`
	Volatility float64 `json:"volatility,omitempty"`
	VaR95      float64 `json:"var_95,omitempty"`
}

// StressScenario is one shock applied to the portfolio.
type StressScenario struct {
	Name      string  `json:"name"`
	ShockPct  float64 `json:"shock_pct,omitempty"`
	ImpactPct float64 `json:"impact_pct,omitempty"`
}

// RiskReport is the risk-analytics step payload.
type RiskReport struct {
	Volatility  float64          `json:"volatility,omitempty"`
	VaR95       float64          `json:"var_95,omitempty"`
	MaxDrawdown float64          `json:"max_drawdown,omitempty"`
	Positions   []PositionRisk   `json:"positions,omitempty"`
	Stress      []StressScenario `json:"stress,omitempty"`
}

// ComparisonRow is one metric compared across instruments.
type ComparisonRow struct {
	Metric string             `json:"metric"`
	Values map[string]float64 `json:"values,omitempty"`
}

// Comparison is the securities-comparison step payload.
type Comparison struct {
	Tickers []string        `json:"tickers,omitempty"`
	Rows    []ComparisonRow `json:"rows,omitempty"`
}

// Widget is one dashboard element. Data is intentionally opaque: its shape
// belongs to the dashboard renderer, not to the orchestration layer.
type Widget struct {
	Type  string         `json:"type"`
	Title string         `json:"title,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// DashboardSpec is the dashboard step payload, passed through to the
// response verbatim.
type DashboardSpec struct {
	Title   string   `json:"title,omitempty"`
	Widgets []Widget `json:"widgets,omitempty"`
}

// Explanation is the explainer step payload.
type Explanation struct {
	Text string `json:"text,omitempty"`
}
