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

// Package utils contains small helpers shared across the module.
package utils

import (
	"encoding/json"
	"fmt"
)

// DeepCopy returns a copy of v which shares no memory with the original.
// The value is copied through its JSON representation, so only exported fields survive.
func DeepCopy[T any](v T) (T, error) {
	var result T
	data, err := json.Marshal(v)
	if err != nil {
		return result, fmt.Errorf("deep copy marshal failed: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("deep copy unmarshal failed: %w", err)
	}
	return result, nil
}

// Ptr returns a pointer to the provided value.
func Ptr[T any](v T) *T {
	return &v
}
