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

// Package llm provides the chat-completions client used by the explainer
// subagent and the query parser's fallback path. The orchestration layer
// only sees Generate succeed or fail; retries and rate limits are handled
// inside the HTTP client.
package llm

import "context"

// Message is one chat turn sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider generates a completion for a message list.
type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
	ModelName() string
}
