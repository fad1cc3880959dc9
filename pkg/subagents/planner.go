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

package subagents

import (
	"context"
	"log/slog"

	"github.com/finsight-ai/finsight/pkg/model"
	"github.com/finsight-ai/finsight/pkg/pipeline"
	"github.com/finsight-ai/finsight/pkg/subagent"
)

// PlannerAgent surfaces caller-provided step hints into the execution
// context metadata. Hints are advisory: the pipeline order is fixed by the
// scenario table and the hints only show up in the debug block.
type PlannerAgent struct {
	log *slog.Logger
}

// NewPlannerAgent creates the planner subagent.
func NewPlannerAgent(log *slog.Logger) *PlannerAgent {
	if log == nil {
		log = slog.Default()
	}
	return &PlannerAgent{log: log}
}

func (a *PlannerAgent) Name() string {
	return pipeline.AgentPlanner
}

func (a *PlannerAgent) Capabilities() []string {
	return []string{"planning"}
}

func (a *PlannerAgent) Execute(_ context.Context, ec *subagent.ExecutionContext) (*subagent.Result, error) {
	hints, ok := ec.Meta(model.MetaPlannerHints)
	if !ok {
		return subagent.Success(map[string]any{"hints": nil}), nil
	}
	a.log.Debug("planner hints supplied by caller")
	return subagent.Success(map[string]any{"hints": hints}).WithNextAgent(pipeline.AgentMarketData), nil
}
