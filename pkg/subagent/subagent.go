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

// Package subagent defines the worker contract the orchestrator drives: a
// Subagent implements Execute, the orchestrator always calls SafeExecute,
// and every outcome is a Result variant rather than a raised error.
package subagent

import (
	"context"
	"fmt"
)

// Subagent is a single-responsibility worker invoked by the orchestrator.
type Subagent interface {
	// Name is the unique registry key.
	Name() string

	// Capabilities lists declared capability tags for discovery.
	Capabilities() []string

	// Execute runs the subagent against the shared context. Failures should
	// be returned as error-status Results; a non-nil error return is
	// reserved for unexpected programmer errors.
	Execute(ctx context.Context, ec *ExecutionContext) (*Result, error)
}

// SafeExecute is the hardened wrapper the orchestrator calls. It converts
// panics, error returns and nil results into error-status Results, so the
// call can never raise.
func SafeExecute(ctx context.Context, sa Subagent, ec *ExecutionContext) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Errorf("%s: panic: %v", sa.Name(), r)
		}
	}()

	res, err := sa.Execute(ctx, ec)
	if err != nil {
		return Errorf("%s: %v", sa.Name(), err)
	}
	if res == nil {
		return Errorf("%s: returned no result", sa.Name())
	}
	return res
}

// Func adapts a plain function into a Subagent, mostly for tests and small
// inline workers.
type Func struct {
	AgentName string
	Caps      []string
	Fn        func(ctx context.Context, ec *ExecutionContext) (*Result, error)
}

func (f *Func) Name() string {
	return f.AgentName
}

func (f *Func) Capabilities() []string {
	return f.Caps
}

func (f *Func) Execute(ctx context.Context, ec *ExecutionContext) (*Result, error) {
	if f.Fn == nil {
		return nil, fmt.Errorf("no function bound")
	}
	return f.Fn(ctx, ec)
}
