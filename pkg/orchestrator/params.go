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

package orchestrator

import (
	"context"

	"github.com/mitchellh/mapstructure"

	"github.com/finsight-ai/finsight/pkg/model"
	"github.com/finsight-ai/finsight/pkg/pipeline"
	"github.com/finsight-ai/finsight/pkg/queryparse"
	"github.com/finsight-ai/finsight/pkg/scenario"
	"github.com/finsight-ai/finsight/pkg/subagent"
)

const positionsField = "positions"

// resolveParams merges request parameters in increasing priority: session
// history, caller-supplied metadata, then (for portfolio scenarios with no
// positions yet) positions parsed from the query text. The merged set is
// persisted back to the session store and stored in the execution context
// under the reserved key. A non-nil return aborts the request.
func (o *Orchestrator) resolveParams(ctx context.Context, req *model.AnalysisRequest, ec *subagent.ExecutionContext, tag scenario.Tag) *model.AnalysisResponse {
	merged := make(map[string]any)

	// (a) Session history. Expired entries are already dropped by the store.
	stored, err := o.sessions.Get(ctx, ec.SessionID())
	if err != nil {
		o.log.Warn("session lookup failed", "session", ec.SessionID(), "error", err)
	} else {
		for k, v := range stored {
			merged[k] = v
		}
	}

	// (b) Caller-supplied parameters win over session history.
	if raw, ok := req.Metadata[model.MetaParameters]; ok {
		if m, ok := raw.(map[string]any); ok {
			for k, v := range m {
				merged[k] = v
			}
		}
	}

	params := decodePortfolio(merged)

	// (c) Parse the query only for portfolio scenarios with nothing resolved.
	needsPositions := pipeline.PortfolioScenarios()[tag]
	if needsPositions && len(params.Positions) == 0 {
		parsed := o.parser.ParsePortfolio(ctx, ec.Query(), o.allowLLM)
		if len(parsed.Positions) > 0 {
			params.Positions = parsed.Positions
			merged[positionsField] = parsed.Positions
			ec.SetMeta("parse_source", parsed.Source)
			ec.SetMeta("parse_confidence", parsed.Confidence)
		}
	}

	if needsPositions && len(params.Positions) == 0 {
		return errorResponse(
			userMessage(req.IsRussian(),
				"Укажите состав портфеля, например: \"SBER 40%, GAZP 30%, LKOH 30%\".",
				"Please specify the portfolio composition, e.g. \"SBER 40%, GAZP 30%, LKOH 30%\"."),
			nil)
	}

	if len(merged) > 0 {
		if err := o.sessions.Set(ctx, ec.SessionID(), merged); err != nil {
			o.log.Warn("failed to persist session parameters", "session", ec.SessionID(), "error", err)
		}
	}

	ec.SetResult(subagent.ParamsKey, params)
	return nil
}

// decodePortfolio extracts positions from a loosely typed parameter map.
// Values may be []model.Position (same process) or []map[string]any (JSON
// round-trip through the session store or request metadata).
func decodePortfolio(params map[string]any) *model.PortfolioParams {
	out := &model.PortfolioParams{}

	raw, ok := params[positionsField]
	if !ok {
		return out
	}

	if positions, ok := raw.([]model.Position); ok {
		out.Positions = queryparse.Normalize(positions)
		return out
	}

	var decoded []model.Position
	if err := mapstructure.WeakDecode(raw, &decoded); err != nil {
		return out
	}
	out.Positions = queryparse.Normalize(decoded)
	return out
}
