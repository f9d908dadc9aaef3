// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cor (Chain of Responsibility) is the workflow engine underneath the
// submission pipeline. This file defines BaseContext, the default Context
// implementation, plus the scoped-context helper the submission workflow uses
// to isolate retryable segments: each commit attempt runs over a fresh child
// context seeded with selected keys, so a failed attempt's errors never bleed
// into the next attempt.
package cor

import (
	"context"
	"log"
	"os"
)

// BaseContext is the default implementation of the Context interface.
type BaseContext struct {
	data      map[string]interface{} // Key-value data shared between commands.
	errors    map[string]error       // Failures keyed by the command that recorded them.
	tempFiles []string               // Paths removed when Close runs.
	context   context.Context        // Standard Go context for cancellation and tracing.
}

// NewBaseContext constructs an empty workflow context.
func NewBaseContext() Context {
	return &BaseContext{
		data:      make(map[string]interface{}),
		errors:    make(map[string]error),
		tempFiles: make([]string, 0),
	}
}

// NewScopedContext constructs a child context for a retryable chain segment.
// The child shares the parent's Go context and receives copies of the named
// keys; its data, errors, and temp files are otherwise independent. Callers
// that let a scoped context create temp files must merge them back with
// MergeTempFiles so the outer Close still removes them.
//
// Inputs:
//   - parent: the context the segment is scoped under.
//   - keys: the data keys to copy into the child.
//
// Outputs:
//   - Context: the fresh child context.
func NewScopedContext(parent Context, keys ...string) Context {
	child := NewBaseContext()
	child.SetContext(parent.GetContext())
	for _, key := range keys {
		if value := parent.Get(key); value != nil {
			child.Add(key, value)
		}
	}
	return child
}

// MergeTempFiles registers every temp file tracked by child onto parent.
// Used when a scoped context is discarded but its files must survive until
// the outer workflow finishes.
func MergeTempFiles(parent Context, child Context) {
	for _, file := range child.GetTempFiles() {
		parent.AddTempFile(file)
	}
}

// FirstError returns one recorded failure from the context, or nil. Chains
// stop at the first failing command by default, so contexts hold at most one
// error on the standard path and the pick is deterministic in practice.
func FirstError(ctx Context) error {
	for _, err := range ctx.GetErrors() {
		return err
	}
	return nil
}

// SetContext replaces the standard Go context. The chain uses this to scope
// each command under its own span.
func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

// GetContext returns the current standard Go context.
func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close removes every registered temporary file.
func (c *BaseContext) Close() {
	for _, file := range c.GetTempFiles() {
		err := os.Remove(file)
		if err != nil && !os.IsNotExist(err) {
			log.Printf("failed to remove temporary file '%s': %v\n", file, err)
		}
	}
}

// Add stores a key-value pair and returns the context for fluent use.
func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

// AddTempFile registers a file path for removal when Close runs.
func (c *BaseContext) AddTempFile(file string) {
	c.tempFiles = append(c.tempFiles, file)
}

// GetTempFiles returns every registered temporary file path.
func (c *BaseContext) GetTempFiles() []string {
	return c.tempFiles
}

// AddError records a failure under the given key.
func (c *BaseContext) AddError(key string, err error) {
	c.errors[key] = err
}

// GetErrors returns every recorded failure keyed by command name.
func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

// Get returns the value stored under key, or nil.
func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

// Remove deletes the value stored under key.
func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

// HasErrors reports whether any command has recorded a failure.
func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}
