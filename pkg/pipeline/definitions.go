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

package pipeline

import (
	"time"

	"github.com/finsight-ai/finsight/pkg/scenario"
)

// Table maps every classifiable scenario to its pipeline. The classifier's
// output space must stay a subset of this table's key space; a missing entry
// at execution time is a configuration error, not a user error.
type Table map[scenario.Tag]*Pipeline

// DefaultTable returns the static scenario table.
func DefaultTable() Table {
	return Table{
		scenario.PortfolioRisk: {
			Description:    "portfolio risk assessment",
			DefaultTimeout: 30 * time.Second,
			Steps: []Step{
				{Agent: AgentPlanner},
				{Agent: AgentMarketData, Required: true},
				{Agent: AgentRisk, Required: true, DependsOn: []string{AgentMarketData}},
				{Agent: AgentDashboard, DependsOn: []string{AgentRisk}},
				{Agent: AgentExplainer, Timeout: 60 * time.Second},
			},
		},
		scenario.CFOLiquidity: {
			Description:    "liquidity and cash position review",
			DefaultTimeout: 30 * time.Second,
			Steps: []Step{
				{Agent: AgentPlanner},
				{Agent: AgentMarketData, Required: true},
				{Agent: AgentRisk, Required: true, DependsOn: []string{AgentMarketData}},
				{Agent: AgentDashboard, DependsOn: []string{AgentRisk}},
				{Agent: AgentExplainer, Timeout: 60 * time.Second},
			},
		},
		scenario.IssuerCompare: {
			Description:    "issuer credit comparison",
			DefaultTimeout: 30 * time.Second,
			Steps: []Step{
				{Agent: AgentMarketData, Required: true},
				{Agent: AgentDashboard, DependsOn: []string{AgentMarketData}},
				{Agent: AgentExplainer, Required: true, Timeout: 60 * time.Second},
			},
		},
		scenario.SecurityOverview: {
			Description:    "single security overview",
			DefaultTimeout: 20 * time.Second,
			Steps: []Step{
				{Agent: AgentMarketData, Required: true},
				{Agent: AgentDashboard, DependsOn: []string{AgentMarketData}},
				{Agent: AgentExplainer, Timeout: 60 * time.Second},
			},
		},
		scenario.SecuritiesCompare: {
			Description:    "side-by-side securities comparison",
			DefaultTimeout: 30 * time.Second,
			Steps: []Step{
				{Agent: AgentMarketData, Required: true},
				{Agent: AgentRisk, DependsOn: []string{AgentMarketData}},
				{Agent: AgentExplainer, Timeout: 60 * time.Second},
			},
		},
		scenario.IndexScan: {
			Description:    "index constituents scan",
			DefaultTimeout: 45 * time.Second,
			Steps: []Step{
				{Agent: AgentMarketData, Required: true},
				{Agent: AgentExplainer, Timeout: 60 * time.Second},
			},
		},
	}
}

// PortfolioScenarios lists scenarios that require resolved portfolio
// positions before execution.
func PortfolioScenarios() map[scenario.Tag]bool {
	return map[scenario.Tag]bool{
		scenario.PortfolioRisk: true,
		scenario.CFOLiquidity:  true,
	}
}
