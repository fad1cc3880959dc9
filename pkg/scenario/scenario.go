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

// Package scenario defines the closed set of request scenarios and the
// intent classifier that maps a free-text query to one of them.
package scenario

// Tag is a coarse intent category driving which pipeline runs.
type Tag string

const (
	PortfolioRisk     Tag = "portfolio_risk"
	CFOLiquidity      Tag = "cfo_liquidity"
	IssuerCompare     Tag = "issuer_compare"
	SecurityOverview  Tag = "security_overview"
	SecuritiesCompare Tag = "securities_compare"
	IndexScan         Tag = "index_scan"
	Unknown           Tag = "unknown"
)

// All returns every classifiable tag in declaration order. The order is
// load-bearing: it breaks ties during classification.
func All() []Tag {
	return []Tag{
		PortfolioRisk,
		CFOLiquidity,
		IssuerCompare,
		SecurityOverview,
		SecuritiesCompare,
		IndexScan,
	}
}

// Valid reports whether t is a member of the closed enumeration.
func (t Tag) Valid() bool {
	switch t {
	case PortfolioRisk, CFOLiquidity, IssuerCompare,
		SecurityOverview, SecuritiesCompare, IndexScan, Unknown:
		return true
	}
	return false
}

func (t Tag) String() string {
	return string(t)
}
