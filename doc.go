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

// Package finsight is a multi-agent orchestration layer for a
// financial-analysis assistant.
//
// An incoming natural-language request is classified into a scenario
// (portfolio risk, liquidity review, securities comparison and so on), a
// per-scenario pipeline of subagents is executed against external tool
// servers, and the results are aggregated into a structured response with
// narrative text, tables and a dashboard specification.
//
// The building blocks live under pkg/:
//
//   - scenario: intent classification with confidence scoring
//   - queryparse: rule-based portfolio extraction with LLM fallback
//   - pipeline: declarative per-scenario execution plans
//   - subagent: the worker contract, result variants and the registry
//   - subagents: the concrete workers (market data, risk, dashboard,
//     explainer, planner)
//   - orchestrator: the request lifecycle and pipeline executor
//   - server: the HTTP API
//
// The cmd/finsight command wires everything together.
package finsight
