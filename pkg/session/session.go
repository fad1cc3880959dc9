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

// Package session stores previously resolved request parameters per session,
// so repeat turns do not re-parse the query. Entries expire after a TTL that
// is refreshed on every Set; expiry is checked lazily at read time, there is
// no background sweeper.
package session

import (
	"context"
	"sync"
	"time"
)

// Store is the session parameter store contract.
type Store interface {
	// Get returns the parameters for a session, or an empty map when the
	// session is unknown or expired.
	Get(ctx context.Context, sessionID string) (map[string]any, error)

	// Set stores parameters for a session and refreshes its TTL.
	Set(ctx context.Context, sessionID string, params map[string]any) error

	// Clear removes a session.
	Clear(ctx context.Context, sessionID string) error
}

type entry struct {
	expiresAt time.Time
	params    map[string]any
}

// MemoryStore is the in-process Store implementation. Safe for concurrent
// use; all operations go through one lock.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return map[string]any{}, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, sessionID)
		return map[string]any{}, nil
	}

	// Copy so callers cannot mutate stored state.
	out := make(map[string]any, len(e.params))
	for k, v := range e.params {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID string, params map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make(map[string]any, len(params))
	for k, v := range params {
		stored[k] = v
	}
	s.entries[sessionID] = entry{
		expiresAt: s.now().Add(s.ttl),
		params:    stored,
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}
