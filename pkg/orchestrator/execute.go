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
	"fmt"
	"time"

	"github.com/finsight-ai/finsight/pkg/model"
	"github.com/finsight-ai/finsight/pkg/pipeline"
	"github.com/finsight-ai/finsight/pkg/subagent"
)

// Trace statuses beyond the subagent result statuses.
const (
	traceSkipped = "skipped"
)

// pipelineRun is the aggregate outcome of one pipeline execution.
type pipelineRun struct {
	// success is false after a required-step hard failure, or when a
	// required step was skipped over a missing dependency.
	success   bool
	attempted []string
	trace     []model.TraceEntry
	errors    []string
}

// executePipeline runs the steps strictly sequentially in declared order.
//
// Failure semantics: a required-step hard failure (missing subagent,
// timeout, error result, escaped panic) truncates the pipeline; optional
// failures, partial results and dependency skips let it run to completion
// with degraded output. A required step skipped over a missing dependency
// flips the aggregate success flag but does not halt execution.
func (o *Orchestrator) executePipeline(ctx context.Context, pl *pipeline.Pipeline, ec *subagent.ExecutionContext) *pipelineRun {
	run := &pipelineRun{success: true}

	for _, step := range pl.Steps {
		// Dependency gate: silent degradation, not failure.
		if missing := unmetDependency(step, ec); missing != "" {
			run.addTrace(step.Agent, traceSkipped, 0,
				fmt.Sprintf("dependency %q not satisfied", missing))
			if step.Required {
				msg := fmt.Sprintf("required step %s skipped: dependency %q not satisfied", step.Agent, missing)
				ec.AppendError(msg)
				run.errors = append(run.errors, msg)
				run.success = false
			}
			continue
		}

		sa, found := o.registry.Get(step.Agent)
		if !found {
			if step.Required {
				_, err := o.registry.GetRequired(step.Agent)
				msg := err.Error()
				ec.AppendError(msg)
				run.errors = append(run.errors, msg)
				run.addTrace(step.Agent, string(subagent.StatusError), 0, msg)
				run.success = false
				break
			}
			run.addTrace(step.Agent, traceSkipped, 0, "subagent not registered")
			continue
		}

		run.attempted = append(run.attempted, step.Agent)
		timeout := step.EffectiveTimeout(pl.DefaultTimeout, o.stepTimeout)

		started := time.Now()
		res, timedOut := o.runStep(ctx, sa, ec, timeout)
		elapsed := time.Since(started)

		if timedOut {
			msg := fmt.Sprintf("%s: timed out after %v", step.Agent, timeout)
			ec.AppendError(msg)
			run.addTrace(step.Agent, string(subagent.StatusError), elapsed, msg)
			o.recorder.RecordStep(ctx, step.Agent, "error", elapsed)
			if step.Required {
				run.errors = append(run.errors, msg)
				run.success = false
				break
			}
			continue
		}

		switch res.Status {
		case subagent.StatusSuccess:
			ec.SetResult(step.Key(), res.Payload)
			run.addTrace(step.Agent, string(res.Status), elapsed, "")
			o.recorder.RecordStep(ctx, step.Agent, "success", elapsed)

		case subagent.StatusPartial:
			// Downstream steps should still see partial data.
			if res.Payload != nil {
				ec.SetResult(step.Key(), res.Payload)
			}
			ec.AppendError(res.Err)
			run.addTrace(step.Agent, string(res.Status), elapsed, res.Err)
			o.recorder.RecordStep(ctx, step.Agent, "partial", elapsed)
			// Partial never aborts, required or not.

		case subagent.StatusError:
			ec.AppendError(res.Err)
			run.errors = append(run.errors, res.Err)
			run.addTrace(step.Agent, string(res.Status), elapsed, res.Err)
			o.recorder.RecordStep(ctx, step.Agent, "error", elapsed)
			if step.Required {
				run.success = false
				o.log.Warn("required step failed, truncating pipeline",
					"step", step.Agent, "error", res.Err)
				return run
			}
		}
	}

	return run
}

// runStep invokes SafeExecute under a bounded wait. On timeout the
// orchestrator stops waiting; the call itself may keep running until its
// goroutine finishes, which is acceptable because results delivered after
// the deadline are discarded.
func (o *Orchestrator) runStep(ctx context.Context, sa subagent.Subagent, ec *subagent.ExecutionContext, timeout time.Duration) (*subagent.Result, bool) {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan *subagent.Result, 1)
	go func() {
		done <- subagent.SafeExecute(stepCtx, sa, ec)
	}()

	select {
	case res := <-done:
		return res, false
	case <-stepCtx.Done():
		return nil, true
	}
}

func unmetDependency(step pipeline.Step, ec *subagent.ExecutionContext) string {
	for _, dep := range step.DependsOn {
		if !ec.HasResult(dep) {
			return dep
		}
	}
	return ""
}

func (r *pipelineRun) addTrace(step, status string, d time.Duration, errMsg string) {
	r.trace = append(r.trace, model.TraceEntry{
		Step:     step,
		Status:   status,
		Duration: d,
		Error:    errMsg,
	})
}
