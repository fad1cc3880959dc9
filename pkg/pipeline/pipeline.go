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

// Package pipeline declares the per-scenario execution plans: which
// subagents run, in what order, with what timeouts and dependencies.
package pipeline

import (
	"time"

	"github.com/finsight-ai/finsight/pkg/subagent"
)

// Well-known subagent names. Pipelines reference subagents by name; the
// binding to a registered instance happens at execution time, so a registry
// may be populated after pipeline definitions exist.
const (
	AgentMarketData = "market_data"
	AgentRisk       = "risk"
	AgentDashboard  = "dashboard"
	AgentExplainer  = "explainer"
	AgentPlanner    = "planner"
)

// Step is one declarative pipeline unit.
type Step struct {
	// Agent names the subagent to run, resolved at execution time.
	Agent string

	// Required aborts the whole pipeline when this step hard-fails.
	Required bool

	// Timeout bounds the step; zero falls back to the pipeline default,
	// then to the global default.
	Timeout time.Duration

	// DependsOn lists result keys that must be present in the context
	// before this step runs; otherwise the step is skipped.
	DependsOn []string

	// ResultKey stores the step output; defaults to the agent name.
	ResultKey string
}

// Key returns the effective result key.
func (s Step) Key() string {
	if s.ResultKey != "" {
		return s.ResultKey
	}
	return s.Agent
}

// EffectiveTimeout resolves the step timeout against the pipeline and
// global defaults.
func (s Step) EffectiveTimeout(pipelineDefault, globalDefault time.Duration) time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	if pipelineDefault > 0 {
		return pipelineDefault
	}
	return globalDefault
}

// Pipeline is the ordered execution plan for one scenario.
type Pipeline struct {
	Description    string
	DefaultTimeout time.Duration
	Steps          []Step
}

// StepNames returns the agent names in declaration order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Agent
	}
	return names
}

// StepReadiness reports whether one step's subagent is currently present in
// a registry.
type StepReadiness struct {
	Agent    string
	Required bool
	Ready    bool
}

// Readiness reports, without executing anything, whether each step of the
// pipeline can currently be resolved against the registry. Used for startup
// validation and health checks.
func (p *Pipeline) Readiness(reg *subagent.Registry) []StepReadiness {
	out := make([]StepReadiness, 0, len(p.Steps))
	for _, s := range p.Steps {
		out = append(out, StepReadiness{
			Agent:    s.Agent,
			Required: s.Required,
			Ready:    reg.Contains(s.Agent),
		})
	}
	return out
}

// Ready reports whether every required step can be resolved.
func (p *Pipeline) Ready(reg *subagent.Registry) bool {
	for _, s := range p.Steps {
		if s.Required && !reg.Contains(s.Agent) {
			return false
		}
	}
	return true
}
