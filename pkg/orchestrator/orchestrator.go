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

// Package orchestrator drives the full request lifecycle: classify the
// query into a scenario, resolve the scenario's pipeline, resolve request
// parameters, execute the pipeline step by step and assemble the unified
// response.
//
// The orchestrator itself never returns an error or panics outward; every
// failure mode is folded into the response envelope.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finsight-ai/finsight/pkg/model"
	"github.com/finsight-ai/finsight/pkg/observability"
	"github.com/finsight-ai/finsight/pkg/pipeline"
	"github.com/finsight-ai/finsight/pkg/queryparse"
	"github.com/finsight-ai/finsight/pkg/scenario"
	"github.com/finsight-ai/finsight/pkg/session"
	"github.com/finsight-ai/finsight/pkg/subagent"
)

// DefaultStepTimeout bounds a step when neither the step nor its pipeline
// declares a timeout.
const DefaultStepTimeout = 30 * time.Second

// Orchestrator coordinates one analysis request end to end. Construct it
// with explicit dependencies; the only shared mutable collaborators are the
// registry and the session store, both safe for concurrent use.
type Orchestrator struct {
	registry    *subagent.Registry
	sessions    session.Store
	classifier  *scenario.Classifier
	parser      *queryparse.Parser
	pipelines   pipeline.Table
	recorder    observability.Recorder
	log         *slog.Logger
	stepTimeout time.Duration
	allowLLM    bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClassifier overrides the intent classifier.
func WithClassifier(c *scenario.Classifier) Option {
	return func(o *Orchestrator) {
		o.classifier = c
	}
}

// WithParser overrides the portfolio query parser.
func WithParser(p *queryparse.Parser) Option {
	return func(o *Orchestrator) {
		o.parser = p
	}
}

// WithPipelines overrides the scenario pipeline table.
func WithPipelines(t pipeline.Table) Option {
	return func(o *Orchestrator) {
		o.pipelines = t
	}
}

// WithRecorder installs a metrics recorder.
func WithRecorder(r observability.Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithDefaultStepTimeout overrides the global step timeout fallback.
func WithDefaultStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.stepTimeout = d
	}
}

// WithLLMParsing toggles the parser's LLM fallback for this orchestrator.
func WithLLMParsing(allow bool) Option {
	return func(o *Orchestrator) {
		o.allowLLM = allow
	}
}

// New creates an Orchestrator bound to a registry and session store.
func New(registry *subagent.Registry, sessions session.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:    registry,
		sessions:    sessions,
		classifier:  scenario.NewClassifier(),
		parser:      queryparse.New(),
		pipelines:   pipeline.DefaultTable(),
		recorder:    observability.Noop{},
		log:         slog.Default(),
		stepTimeout: DefaultStepTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Readiness reports, per scenario, whether each pipeline step can currently
// be resolved against the registry.
func (o *Orchestrator) Readiness() map[scenario.Tag][]pipeline.StepReadiness {
	out := make(map[scenario.Tag][]pipeline.StepReadiness, len(o.pipelines))
	for tag, pl := range o.pipelines {
		out[tag] = pl.Readiness(o.registry)
	}
	return out
}

// Handle processes one analysis request. It always returns a response:
// anything escaping the normal flow is caught and converted into an
// error-status response carrying the failure's type and message.
func (o *Orchestrator) Handle(ctx context.Context, req *model.AnalysisRequest) (resp *model.AnalysisResponse) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("request handling panicked", "panic", r)
			resp = errorResponse(fmt.Sprintf("%T: %v", r, r), nil)
		}
		if resp != nil {
			o.recorder.RecordRequest(ctx, debugScenario(resp), string(resp.Status), time.Since(started))
		}
	}()

	// 1. Extract the query.
	query, ok := req.CurrentQuery()
	if !ok {
		return errorResponse("request contains no user message", nil)
	}

	ec, err := subagent.NewExecutionContext(query, req.SessionID)
	if err != nil {
		return errorResponse(err.Error(), nil)
	}
	ec.SetUserRole(req.UserRole)
	ec.SetLocale(req.Locale)
	for k, v := range req.Metadata {
		ec.SetMeta(k, v)
	}

	// 2. Classify.
	tag, confidence := o.classifier.ClassifyWithConfidence(query, req.UserRole)
	ec.SetScenario(tag.String())
	ec.SetMeta("confidence", confidence)
	if tag == scenario.Unknown {
		o.log.Info("query not classifiable", "session", ec.SessionID())
		return errorResponse(
			userMessage(req.IsRussian(),
				"Не удалось определить тип запроса. Уточните, что нужно проанализировать.",
				"Could not determine the request type. Please clarify what to analyze."),
			&model.DebugInfo{
				Scenario:   tag.String(),
				Confidence: confidence,
				Duration:   time.Since(started),
			})
	}

	// 3. Resolve the pipeline. The classifier's output space is a subset of
	// the table's key space; a miss here is a configuration error.
	pl, ok := o.pipelines[tag]
	if !ok {
		o.log.Error("no pipeline configured for scenario", "scenario", tag)
		return errorResponse(fmt.Sprintf("no pipeline configured for scenario %q", tag), nil)
	}

	// 4. Resolve parameters.
	if abort := o.resolveParams(ctx, req, ec, tag); abort != nil {
		abort.Debug = &model.DebugInfo{
			Scenario:   tag.String(),
			Confidence: confidence,
			Duration:   time.Since(started),
		}
		return abort
	}

	// 5. Execute.
	o.log.Info("executing pipeline",
		"scenario", tag,
		"session", ec.SessionID(),
		"steps", len(pl.Steps),
	)
	run := o.executePipeline(ctx, pl, ec)

	// 6. Assemble.
	resp = o.assemble(req, ec, run)
	resp.Debug = &model.DebugInfo{
		Scenario:     tag.String(),
		Confidence:   confidence,
		StepsRun:     run.attempted,
		Trace:        run.trace,
		Duration:     time.Since(started),
		PlannerHints: metaOrNil(ec, model.MetaPlannerHints),
	}
	return resp
}

func errorResponse(msg string, debug *model.DebugInfo) *model.AnalysisResponse {
	return &model.AnalysisResponse{
		Status:    model.StatusError,
		Error:     msg,
		Debug:     debug,
		Timestamp: time.Now(),
	}
}

func userMessage(russian bool, ru, en string) string {
	if russian {
		return ru
	}
	return en
}

func metaOrNil(ec *subagent.ExecutionContext, key string) any {
	if v, ok := ec.Meta(key); ok {
		return v
	}
	return nil
}

func debugScenario(resp *model.AnalysisResponse) string {
	if resp.Debug != nil && resp.Debug.Scenario != "" {
		return resp.Debug.Scenario
	}
	return "unknown"
}
