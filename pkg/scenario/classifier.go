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

package scenario

import (
	"regexp"
	"strings"
)

// ConfidenceParams are the tuning constants for confidence scoring. The
// defaults are empirical values carried over from production tuning; they are
// configuration, not normative behavior.
type ConfidenceParams struct {
	Base                float64
	PerMatch            float64
	MaxMatchBoosts      int
	ClearWinnerBoost    float64
	RoleBoost           float64
	Cap                 float64
	HeuristicConfidence float64
}

// DefaultConfidenceParams returns the stock tuning values.
func DefaultConfidenceParams() ConfidenceParams {
	return ConfidenceParams{
		Base:                0.5,
		PerMatch:            0.15,
		MaxMatchBoosts:      3,
		ClearWinnerBoost:    0.1,
		RoleBoost:           0.1,
		Cap:                 0.98,
		HeuristicConfidence: 0.3,
	}
}

// tagPatterns binds a tag to its ordered keyword patterns. Patterns are
// matched against the lowercased query, so they are written lowercase.
type tagPatterns struct {
	tag      Tag
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		res = append(res, regexp.MustCompile(e))
	}
	return res
}

// defaultPatterns covers both Russian and English phrasings. Declaration
// order matches All() and decides ties.
func defaultPatterns() []tagPatterns {
	return []tagPatterns{
		{PortfolioRisk, compileAll(
			`риск`, `волатильн`, `просадк`, `стресс`, `портфел`,
			`\bvar\b`, `risk`, `volatility`, `drawdown`, `portfolio`,
		)},
		{CFOLiquidity, compileAll(
			`ликвидн`, `денежн`, `казначейств`, `платеж`,
			`liquidity`, `cash\s?flow`, `treasury`,
		)},
		{IssuerCompare, compileAll(
			`эмитент`, `облигаци`, `кредитн`,
			`issuer`, `\bbonds?\b`, `credit`,
		)},
		{SecurityOverview, compileAll(
			`обзор`, `котировк`, `что\s+по\b`, `расскажи`,
			`overview`, `\bquote\b`,
		)},
		{SecuritiesCompare, compileAll(
			`сравн`, `против`,
			`compare`, `\bvs\b`, `versus`,
		)},
		{IndexScan, compileAll(
			`индекс`, `скрин`, `\bimoex\b`, `\brtsi\b`,
			`\bindex\b`, `\bscan\b`, `screen`,
		)},
	}
}

// tickerPattern is the short whitelist of ticker-like tokens used by the
// heuristic fallback. Matched against the original (not lowercased) query.
var tickerPattern = regexp.MustCompile(
	`\b(SBER|GAZP|LKOH|ROSN|GMKN|NVTK|TATN|VTBR|YNDX|MOEX|MGNT|MTSS|ALRS|` +
		`CHMF|PLZL|AFLT|POLY|SNGS|PHOR|RUAL|` +
		`AAPL|MSFT|TSLA|AMZN|NVDA|GOOG|META|NFLX)\b`)

// defaultRolePriorities maps a user role to its tag priority list. The first
// entry doubles as the role's default tag when no pattern matches.
func defaultRolePriorities() map[string][]Tag {
	return map[string][]Tag{
		"cfo":               {CFOLiquidity, PortfolioRisk},
		"treasurer":         {CFOLiquidity, IndexScan},
		"risk_manager":      {PortfolioRisk, IndexScan},
		"portfolio_manager": {PortfolioRisk, SecuritiesCompare},
		"analyst":           {IssuerCompare, SecuritiesCompare, IndexScan},
	}
}

// Classifier maps a query (plus optional user role) to a Tag. It is pure and
// deterministic: no I/O, no randomness.
type Classifier struct {
	params         ConfidenceParams
	patterns       []tagPatterns
	rolePriorities map[string][]Tag
}

// ClassifierOption customizes a Classifier.
type ClassifierOption func(*Classifier)

// WithConfidenceParams overrides the confidence tuning constants.
func WithConfidenceParams(p ConfidenceParams) ClassifierOption {
	return func(c *Classifier) {
		c.params = p
	}
}

// WithRolePriorities overrides the role priority table.
func WithRolePriorities(priorities map[string][]Tag) ClassifierOption {
	return func(c *Classifier) {
		c.rolePriorities = priorities
	}
}

// NewClassifier builds a classifier with the default pattern table.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		params:         DefaultConfidenceParams(),
		patterns:       defaultPatterns(),
		rolePriorities: defaultRolePriorities(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// matchSource records which stage of the algorithm produced the tag.
type matchSource int

const (
	sourceNone matchSource = iota
	sourceRegex
	sourceRoleDefault
	sourceTicker
)

type classification struct {
	tag    Tag
	source matchSource
	best   int // match count of the winning tag
	second int // match count of the closest competitor
}

// Classify returns the scenario tag for a query.
func (c *Classifier) Classify(query, role string) Tag {
	return c.classify(query, role).tag
}

// ClassifyWithConfidence returns the tag plus a confidence score in [0, 1].
func (c *Classifier) ClassifyWithConfidence(query, role string) (Tag, float64) {
	cl := c.classify(query, role)

	switch cl.source {
	case sourceRegex:
		boosts := cl.best
		if boosts > c.params.MaxMatchBoosts {
			boosts = c.params.MaxMatchBoosts
		}
		conf := c.params.Base + c.params.PerMatch*float64(boosts-1)
		if cl.second*2 <= cl.best {
			conf += c.params.ClearWinnerBoost
		}
		if c.roleprefers(role, cl.tag) {
			conf += c.params.RoleBoost
		}
		if conf > c.params.Cap {
			conf = c.params.Cap
		}
		return cl.tag, conf
	case sourceRoleDefault, sourceTicker:
		return cl.tag, c.params.HeuristicConfidence
	default:
		return Unknown, 0.0
	}
}

func (c *Classifier) classify(query, role string) classification {
	if strings.TrimSpace(query) == "" {
		return classification{tag: Unknown, source: sourceNone}
	}

	lowered := strings.ToLower(query)

	counts := make(map[Tag]int, len(c.patterns))
	for _, tp := range c.patterns {
		n := 0
		for _, re := range tp.patterns {
			if re.MatchString(lowered) {
				n++
			}
		}
		if n > 0 {
			counts[tp.tag] = n
		}
	}

	if len(counts) > 0 {
		// Role priority breaks ties even against the raw match leader.
		if prio, ok := c.rolePriorities[normalizeRole(role)]; ok {
			for _, t := range prio {
				if counts[t] > 0 {
					best, second := rank(counts, t)
					return classification{tag: t, source: sourceRegex, best: best, second: second}
				}
			}
		}
		winner := c.winnerByCount(counts)
		best, second := rank(counts, winner)
		return classification{tag: winner, source: sourceRegex, best: best, second: second}
	}

	if prio, ok := c.rolePriorities[normalizeRole(role)]; ok && len(prio) > 0 {
		return classification{tag: prio[0], source: sourceRoleDefault}
	}

	switch n := countDistinctTickers(query); {
	case n >= 2:
		return classification{tag: SecuritiesCompare, source: sourceTicker}
	case n == 1:
		return classification{tag: SecurityOverview, source: sourceTicker}
	}

	return classification{tag: Unknown, source: sourceNone}
}

// winnerByCount picks the tag with the highest match count; ties resolve by
// pattern declaration order, which keeps the result deterministic.
func (c *Classifier) winnerByCount(counts map[Tag]int) Tag {
	winner := Unknown
	best := 0
	for _, tp := range c.patterns {
		if n := counts[tp.tag]; n > best {
			winner = tp.tag
			best = n
		}
	}
	return winner
}

// rank returns the winner's count and the best count among the other tags.
func rank(counts map[Tag]int, winner Tag) (best, second int) {
	best = counts[winner]
	for t, n := range counts {
		if t != winner && n > second {
			second = n
		}
	}
	return best, second
}

func (c *Classifier) roleprefers(role string, tag Tag) bool {
	prio, ok := c.rolePriorities[normalizeRole(role)]
	if !ok {
		return false
	}
	for _, t := range prio {
		if t == tag {
			return true
		}
	}
	return false
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func countDistinctTickers(query string) int {
	seen := make(map[string]struct{})
	for _, m := range tickerPattern.FindAllString(query, -1) {
		seen[m] = struct{}{}
	}
	return len(seen)
}
