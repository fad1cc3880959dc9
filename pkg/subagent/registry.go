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
	"sort"
	"strings"
	"sync"
)

// Registry is a concurrent-safe name-to-subagent mapping with a secondary
// capability index. All operations are serialized through one lock;
// contention is negligible next to the network latency of subagent calls.
type Registry struct {
	mu     sync.Mutex
	agents map[string]Subagent
}

// NewRegistry creates an empty registry. Construct one per process (or per
// test) and inject it; the process-wide Default exists only for the
// application's composition root.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Subagent)}
}

// Register adds a subagent. Names are unique: registering an existing name
// fails and callers must Unregister first to replace.
func (r *Registry) Register(sa Subagent) error {
	name := sa.Name()
	if name == "" {
		return fmt.Errorf("subagent name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("subagent %q already registered", name)
	}
	r.agents[name] = sa
	return nil
}

// Unregister removes a subagent by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; !exists {
		return fmt.Errorf("subagent %q not found", name)
	}
	delete(r.agents, name)
	return nil
}

// Get returns the subagent for name; absence is not an error.
func (r *Registry) Get(name string) (Subagent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sa, ok := r.agents[name]
	return sa, ok
}

// GetRequired returns the subagent for name or an error listing the
// currently available names, sorted, for diagnostics.
func (r *Registry) GetRequired(name string) (Subagent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sa, ok := r.agents[name]; ok {
		return sa, nil
	}

	names := make([]string, 0, len(r.agents))
	for n := range r.agents {
		names = append(names, n)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("subagent %q not found, available: [%s]", name, strings.Join(names, ", "))
}

// Contains reports whether a subagent with the given name is registered.
func (r *Registry) Contains(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.agents[name]
	return ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.agents))
	for n := range r.agents {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByCapability returns all subagents declaring the given capability tag.
// Many subagents may share a capability.
func (r *Registry) ByCapability(capability string) []Subagent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Subagent
	for _, sa := range r.agents {
		for _, c := range sa.Capabilities() {
			if c == capability {
				out = append(out, sa)
				break
			}
		}
	}
	return out
}

// Len returns the number of registered subagents.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.agents)
}

// Range calls fn for each registered subagent until fn returns false.
// Iteration happens over a snapshot, so fn may call back into the registry.
func (r *Registry) Range(fn func(name string, sa Subagent) bool) {
	r.mu.Lock()
	snapshot := make(map[string]Subagent, len(r.agents))
	for n, sa := range r.agents {
		snapshot[n] = sa
	}
	r.mu.Unlock()

	for n, sa := range snapshot {
		if !fn(n, sa) {
			return
		}
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry. Prefer dedicated instances in
// tests to avoid cross-test leakage.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}
