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

// Package model defines the request/response envelopes and the typed result
// payloads exchanged between the orchestrator and its subagents.
//
// Payload types are deliberately loose: every field is optional so that
// partial results produced by degraded pipeline runs still decode cleanly.
package model

import (
	"strings"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry of the inbound conversation.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Reserved metadata keys on AnalysisRequest.Metadata.
const (
	// MetaParameters carries pre-parsed parameters supplied by the caller.
	MetaParameters = "parameters"

	// MetaPlannerHints carries planner-produced step hints.
	MetaPlannerHints = "planner_hints"
)

// AnalysisRequest is the inbound request envelope.
//
// The current query is the content of the most recent message with role
// "user"; requests without such a message are rejected before any pipeline
// work starts.
type AnalysisRequest struct {
	Messages  []Message      `json:"messages"`
	UserRole  string         `json:"user_role,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Locale    string         `json:"locale,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// CurrentQuery returns the content of the most recent user message, or ""
// when the request contains no user message.
func (r *AnalysisRequest) CurrentQuery() (string, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content, true
		}
	}
	return "", false
}

// IsRussian reports whether the request locale selects Russian output.
func (r *AnalysisRequest) IsRussian() bool {
	return strings.HasPrefix(strings.ToLower(r.Locale), "ru")
}

// ResponseStatus is the terminal status of one analysis request.
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusError   ResponseStatus = "error"
	StatusPartial ResponseStatus = "partial"
)

// Table is a named tabular view extracted from step results.
type Table struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// TraceEntry records the outcome of one attempted pipeline step.
type TraceEntry struct {
	Step     string        `json:"step"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// DebugInfo is the optional diagnostics block attached to a response.
type DebugInfo struct {
	Scenario     string        `json:"scenario"`
	Confidence   float64       `json:"confidence"`
	StepsRun     []string      `json:"steps_run,omitempty"`
	Trace        []TraceEntry  `json:"trace,omitempty"`
	Duration     time.Duration `json:"duration"`
	PlannerHints any           `json:"planner_hints,omitempty"`
}

// AnalysisResponse is the outbound response envelope.
type AnalysisResponse struct {
	Status    ResponseStatus `json:"status"`
	Text      string         `json:"text,omitempty"`
	Tables    []Table        `json:"tables,omitempty"`
	Dashboard *DashboardSpec `json:"dashboard,omitempty"`
	Debug     *DebugInfo     `json:"debug,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
