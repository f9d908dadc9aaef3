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
// submission pipeline. A workflow is a Chain of Commands sharing one Context;
// each command reads its input from the context, does one unit of work, and
// writes its output back for the next command. The engine carries tracing and
// metrics for every command so a workflow run is observable end to end.
//
// This file defines the interfaces. The Base* types in the sibling files are
// the default implementations every concrete command embeds.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the reserved context keys the chain uses to pipe data
// between commands.
const (
	// CtxIn is the default key a command reads its primary input from. The
	// chain populates it with the previous command's output.
	CtxIn = "__IN__"
	// CtxOut is the default key a command writes its primary output to. The
	// chain moves the value to CtxIn before the next command runs.
	CtxOut = "__OUT__"
)

// Context is the shared state for one workflow execution: a property bag for
// data flowing between commands, an error collector, and a registry of
// temporary files to remove when the run finishes. It also carries the
// standard Go context so commands observe cancellation and trace propagation.
type Context interface {
	// SetContext replaces the standard Go context. The chain uses this to
	// scope each command's work under that command's span.
	SetContext(context context.Context)

	// GetContext returns the current standard Go context.
	GetContext() context.Context

	// Add stores a key-value pair and returns the Context for fluent use.
	Add(key string, value interface{}) Context

	// AddError records a failure under the given key, conventionally the
	// name of the command that produced it.
	AddError(key string, err error)

	// GetErrors returns every recorded failure keyed by command name.
	GetErrors() map[string]error

	// Get returns the value stored under key, or nil.
	Get(key string) interface{}

	// Remove deletes the value stored under key.
	Remove(key string)

	// HasErrors reports whether any command has recorded a failure.
	HasErrors() bool

	// AddTempFile registers a file path for removal when Close runs.
	AddTempFile(file string)

	// GetTempFiles returns every registered temporary file path.
	GetTempFiles() []string

	// Close removes the registered temporary files. Defer it where the
	// context is created.
	Close()
}

// Executable is anything with a single unit of execution logic over a
// workflow Context.
type Executable interface {
	// Execute runs the unit of work, reading inputs from and writing
	// outputs and errors to the given Context.
	Execute(context Context)
}

// Command is one atomic, instrumented step of a workflow.
type Command interface {
	Executable

	// GetName returns the command name used in spans, metrics, and error keys.
	GetName() string

	// GetInputParam returns the context key this command reads its primary
	// input from.
	GetInputParam() string

	// GetOutputParam returns the context key this command writes its
	// primary output to.
	GetOutputParam() string

	// IsExecutable is the precondition check the chain runs before Execute.
	IsExecutable(context Context) bool

	// GetTracer returns the tracer spans for this command are created from.
	GetTracer() trace.Tracer

	// GetMeter returns the meter the command's instruments are created from.
	GetMeter() metric.Meter

	// GetSuccessCounter returns the counter incremented on success.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns the counter incremented on failure.
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command, so
// chains nest (composite pattern); the submission workflow uses this to run
// its commit segment as a sub-chain per attempt.
type Chain interface {
	Command

	// ContinueOnFailure configures whether the chain keeps executing
	// commands after one records an error. The default is to stop.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
