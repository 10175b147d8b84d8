// Copyright 2025 The A2A Authors
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

package a2a

import "maps"

// MaxContextKeys is the maximum number of facts a [TaskContext] can hold.
const MaxContextKeys = 64

// TaskContext holds structured facts extracted from a conversation, keyed by attribute name.
// Every key is written at most once.
type TaskContext map[string]any

// SetIfAbsent stores the value if the key is not present yet and the context is not full.
// It reports whether the value was stored.
func (c *TaskContext) SetIfAbsent(key string, value any) bool {
	if key == "" || value == nil {
		return false
	}
	if *c == nil {
		*c = make(TaskContext)
	}
	if _, ok := (*c)[key]; ok {
		return false
	}
	if len(*c) >= MaxContextKeys {
		return false
	}
	(*c)[key] = value
	return true
}

// Has reports whether a fact with the provided key is present.
func (c TaskContext) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// String returns the fact as a string or an empty string if it's missing or has a different type.
func (c TaskContext) String(key string) string {
	if s, ok := c[key].(string); ok {
		return s
	}
	return ""
}

// Merge copies facts from other using fill-if-absent semantics and returns the keys that were added.
func (c *TaskContext) Merge(other map[string]any) []string {
	var added []string
	for _, k := range sortedKeys(other) {
		if c.SetIfAbsent(k, other[k]) {
			added = append(added, k)
		}
	}
	return added
}

// Clone returns a shallow copy of the context.
func (c TaskContext) Clone() TaskContext {
	if c == nil {
		return nil
	}
	return maps.Clone(c)
}
