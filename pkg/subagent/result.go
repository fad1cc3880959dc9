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

package subagent

import "fmt"

// Status is the terminal state of one subagent invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusError   Status = "error"
)

// Result is the outcome of one subagent invocation. Construct results via
// Success, Partial and Errorf so the status/payload/error contract holds:
// success carries a payload and no error, error carries an error message and
// no payload guarantee, partial may carry both.
type Result struct {
	Status Status
	// Payload is the step output. Known result keys map to the typed
	// payloads in pkg/model.
	Payload any
	// Err is the problem description for partial and error results.
	Err string
	// NextAgent is a non-binding suggestion for the next step; the pipeline
	// does not enforce it.
	NextAgent string
}

// Success builds a success result.
func Success(payload any) *Result {
	return &Result{Status: StatusSuccess, Payload: payload}
}

// Partial builds a partial result: some usable data plus a problem
// description. Partial results never abort the pipeline.
func Partial(payload any, format string, args ...any) *Result {
	return &Result{
		Status:  StatusPartial,
		Payload: payload,
		Err:     fmt.Sprintf(format, args...),
	}
}

// Errorf builds an error result with no usable payload.
func Errorf(format string, args ...any) *Result {
	return &Result{Status: StatusError, Err: fmt.Sprintf(format, args...)}
}

// WithNextAgent attaches a next-agent hint.
func (r *Result) WithNextAgent(name string) *Result {
	r.NextAgent = name
	return r
}

// OK reports whether the result carries usable data.
func (r *Result) OK() bool {
	return r.Status == StatusSuccess || (r.Status == StatusPartial && r.Payload != nil)
}
