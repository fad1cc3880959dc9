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

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ParamsKey is the reserved result key under which the orchestrator stores
// the resolved request parameters.
const ParamsKey = "parameters"

// ExecutionContext is the per-request mutable state threaded through a
// pipeline. It is owned by the orchestrator for the request's lifetime and
// handed to subagents one at a time; pipeline steps run sequentially, the
// lock only covers observers such as debug endpoints.
type ExecutionContext struct {
	mu sync.RWMutex

	query     string
	sessionID string
	userRole  string
	scenario  string
	locale    string

	resultKeys []string // insertion order of results
	results    map[string]any
	errors     []string
	metadata   map[string]any

	createdAt time.Time
}

// NewExecutionContext creates a context for one request. The query must be
// non-empty; a session id is generated when absent.
func NewExecutionContext(query, sessionID string) (*ExecutionContext, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &ExecutionContext{
		query:     query,
		sessionID: sessionID,
		results:   make(map[string]any),
		metadata:  make(map[string]any),
		createdAt: time.Now(),
	}, nil
}

// Query returns the original query text.
func (ec *ExecutionContext) Query() string {
	return ec.query
}

// SessionID returns the session identifier.
func (ec *ExecutionContext) SessionID() string {
	return ec.sessionID
}

// UserRole returns the optional user role.
func (ec *ExecutionContext) UserRole() string {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.userRole
}

// SetUserRole records the user role.
func (ec *ExecutionContext) SetUserRole(role string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.userRole = role
}

// Scenario returns the classified scenario tag, if set.
func (ec *ExecutionContext) Scenario() string {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.scenario
}

// SetScenario records the classified scenario tag.
func (ec *ExecutionContext) SetScenario(tag string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.scenario = tag
}

// Locale returns the request locale tag.
func (ec *ExecutionContext) Locale() string {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.locale
}

// SetLocale records the request locale tag.
func (ec *ExecutionContext) SetLocale(locale string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.locale = locale
}

// SetResult stores a step result under its result key, preserving insertion
// order for later extraction.
func (ec *ExecutionContext) SetResult(key string, payload any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if _, exists := ec.results[key]; !exists {
		ec.resultKeys = append(ec.resultKeys, key)
	}
	ec.results[key] = payload
}

// Result returns the payload stored under key.
func (ec *ExecutionContext) Result(key string) (any, bool) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	v, ok := ec.results[key]
	return v, ok
}

// HasResult reports whether a result key is present.
func (ec *ExecutionContext) HasResult(key string) bool {
	_, ok := ec.Result(key)
	return ok
}

// ResultKeys returns the result keys in insertion order.
func (ec *ExecutionContext) ResultKeys() []string {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	out := make([]string, len(ec.resultKeys))
	copy(out, ec.resultKeys)
	return out
}

// AppendError records a step-level error message.
func (ec *ExecutionContext) AppendError(msg string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.errors = append(ec.errors, msg)
}

// Errors returns accumulated error messages in order.
func (ec *ExecutionContext) Errors() []string {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	out := make([]string, len(ec.errors))
	copy(out, ec.errors)
	return out
}

// SetMeta stores free-form request metadata (locale, confidence, planner
// hints).
func (ec *ExecutionContext) SetMeta(key string, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.metadata[key] = value
}

// Meta returns a metadata value.
func (ec *ExecutionContext) Meta(key string) (any, bool) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	v, ok := ec.metadata[key]
	return v, ok
}

// CreatedAt returns the context creation time.
func (ec *ExecutionContext) CreatedAt() time.Time {
	return ec.createdAt
}
