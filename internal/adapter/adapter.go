// Package adapter defines the contract between the dispatch engine and the
// tools that perform real side effects. The engine and registry never talk
// to shell commands, VCS tools, or scripts directly — only through this
// interface.
package adapter

import (
	"path/filepath"

	"github.com/dcpsystems/dcp/internal/model"
)

// ExecutionContext is everything an adapter needs to carry out one action.
type ExecutionContext struct {
	Action      model.Action
	ProjectRoot string
	Environment string
	ModulePath  string
	DryRun      bool
	Params      map[string]interface{}
}

// WorkingDir resolves the directory an adapter should operate in.
func (c ExecutionContext) WorkingDir() string {
	if c.ModulePath != "" {
		return filepath.Join(c.ProjectRoot, c.ModulePath)
	}
	return c.ProjectRoot
}

// Param reads a string param, or returns def if absent/not-a-string.
func (c ExecutionContext) Param(key, def string) string {
	v, ok := c.Params[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// Adapter performs one category of external side effect (shell commands,
// VCS operations, in-process scripting, ...) and must never panic or
// propagate an error out of Execute — all failures surface as a Receipt
// with Status == model.ReceiptFailed. The registry is the only caller.
type Adapter interface {
	// Name is the adapter identifier actions reference (e.g. "shell").
	Name() string

	// Available reports whether the adapter's underlying tool can run in
	// this environment. Must be fast and must never panic.
	Available() bool

	// Validate checks that ctx.Action can be executed by this adapter,
	// returning a human-readable reason when it cannot.
	Validate(ctx ExecutionContext) (bool, string)

	// Execute performs the action and returns a Receipt. MUST NOT panic;
	// all failure modes are captured in the Receipt.
	Execute(ctx ExecutionContext) model.Receipt
}
