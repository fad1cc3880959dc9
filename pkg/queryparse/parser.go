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

// Package queryparse extracts structured portfolio parameters from free-text
// queries. Extraction is rule-based with an optional LLM fallback callback
// for low-confidence results.
package queryparse

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/finsight-ai/finsight/pkg/model"
)

// Result sources.
const (
	SourceRules = "rules"
	SourceLLM   = "llm"
	SourceNone  = "none"
)

// Confidence levels assigned by the rule-based extractor.
const (
	confidenceExplicit = 0.9 // ticker + weight pairs found
	confidenceInferred = 0.6 // bare tickers, equal weights assumed
	confidenceNone     = 0.0
)

// Result is the outcome of one parse attempt.
type Result struct {
	Positions  []model.Position
	Confidence float64
	Source     string
	Message    string
}

// FallbackFunc is an optional escalation path, typically LLM-backed. A
// failing callback is swallowed; the rule-based result is used instead.
type FallbackFunc func(ctx context.Context, query string) ([]model.Position, error)

// Parser extracts portfolio positions from queries.
type Parser struct {
	minConfidence float64
	fallback      FallbackFunc
	log           *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithMinConfidence sets the rule-based confidence below which the fallback
// is consulted.
func WithMinConfidence(min float64) Option {
	return func(p *Parser) {
		p.minConfidence = min
	}
}

// WithFallback installs the escalation callback.
func WithFallback(fn FallbackFunc) Option {
	return func(p *Parser) {
		p.fallback = fn
	}
}

// WithLogger sets the parser logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Parser) {
		p.log = log
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{
		minConfidence: 0.7,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	// tickerWeightPattern matches an uppercase 2-6 letter token followed by
	// a number, optionally a percent sign: "SBER 40%", "GAZP: 0.3".
	tickerWeightPattern = regexp.MustCompile(`\b([A-Z]{2,6})\b\s*[:\-–]?\s*(\d+(?:[.,]\d+)?)\s*%?`)

	// bareTickerPattern matches ticker-like tokens with no weight attached.
	bareTickerPattern = regexp.MustCompile(`\b[A-Z]{2,6}\b`)
)

// ParsePortfolio extracts positions from the query. Weights above 1 are
// treated as percentages; the final set is normalized to sum to 1.0. When
// rule-based confidence falls below the minimum and allowLLM is set, the
// fallback callback is consulted and preferred if it yields any positions.
func (p *Parser) ParsePortfolio(ctx context.Context, query string, allowLLM bool) Result {
	ruleResult := p.parseRules(query)

	if ruleResult.Confidence >= p.minConfidence || p.fallback == nil || !allowLLM {
		return ruleResult
	}

	positions, err := p.fallback(ctx, query)
	if err != nil {
		p.log.Debug("parser fallback failed, keeping rule-based result", "error", err)
		return ruleResult
	}
	if len(positions) == 0 {
		return ruleResult
	}

	return Result{
		Positions:  Normalize(positions),
		Confidence: p.minConfidence,
		Source:     SourceLLM,
	}
}

func (p *Parser) parseRules(query string) Result {
	if positions := extractWeighted(query); len(positions) > 0 {
		return Result{
			Positions:  Normalize(positions),
			Confidence: confidenceExplicit,
			Source:     SourceRules,
		}
	}

	if positions := extractBare(query); len(positions) > 0 {
		return Result{
			Positions:  Normalize(positions),
			Confidence: confidenceInferred,
			Source:     SourceRules,
			Message:    "weights not specified, assumed equal shares",
		}
	}

	return Result{
		Confidence: confidenceNone,
		Source:     SourceNone,
		Message:    "no portfolio positions recognized in query",
	}
}

func extractWeighted(query string) []model.Position {
	var positions []model.Position
	seen := make(map[string]bool)
	for _, m := range tickerWeightPattern.FindAllStringSubmatch(query, -1) {
		ticker := m[1]
		if seen[ticker] {
			continue
		}
		raw := strings.ReplaceAll(m[2], ",", ".")
		weight, err := strconv.ParseFloat(raw, 64)
		if err != nil || weight <= 0 {
			continue
		}
		if weight > 1 {
			// Values above 1 are percentages.
			weight /= 100
		}
		seen[ticker] = true
		positions = append(positions, model.Position{Ticker: ticker, Weight: weight})
	}
	return positions
}

func extractBare(query string) []model.Position {
	var tickers []string
	seen := make(map[string]bool)
	for _, m := range bareTickerPattern.FindAllString(query, -1) {
		if !seen[m] {
			seen[m] = true
			tickers = append(tickers, m)
		}
	}
	if len(tickers) == 0 {
		return nil
	}

	equal := 1.0 / float64(len(tickers))
	positions := make([]model.Position, 0, len(tickers))
	for _, t := range tickers {
		positions = append(positions, model.Position{Ticker: t, Weight: equal})
	}
	return positions
}

// Normalize rescales weights to sum to 1.0. Normalization is skipped when
// the total is not positive.
func Normalize(positions []model.Position) []model.Position {
	total := 0.0
	for _, pos := range positions {
		total += pos.Weight
	}
	if total <= 0 {
		return positions
	}

	out := make([]model.Position, len(positions))
	for i, pos := range positions {
		out[i] = model.Position{Ticker: pos.Ticker, Weight: pos.Weight / total}
	}
	return out
}

// WeightsSumValid reports whether weights sum to 1.0 within tolerance.
func WeightsSumValid(positions []model.Position) bool {
	total := 0.0
	for _, pos := range positions {
		total += pos.Weight
	}
	return math.Abs(total-1.0) < 1e-9
}
