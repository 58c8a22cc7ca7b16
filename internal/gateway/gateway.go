// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package gateway ties policy, execution and audit together for a single
// command request.
package gateway

import (
	"context"
	"log/slog"
	"os"
	"os/user"

	"github.com/google/uuid"

	"github.com/marcelocantos/sudo-mcp/internal/audit"
	"github.com/marcelocantos/sudo-mcp/internal/executor"
	"github.com/marcelocantos/sudo-mcp/internal/policy"
)

// Evaluator decides whether a command may run.
type Evaluator interface {
	Evaluate(command string) policy.Verdict
}

// Runner executes an allowed command.
type Runner interface {
	Execute(ctx context.Context, command string, timeoutSeconds int) executor.Result
}

// Recorder persists audit records. Record must not fail from the caller's
// point of view.
type Recorder interface {
	Record(r audit.Record)
}

// State is a step in the handling of one request.
type State int

const (
	StateEvaluating State = iota
	StateDenied
	StateExecuting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateEvaluating:
		return "evaluating"
	case StateDenied:
		return "denied"
	case StateExecuting:
		return "executing"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Observer is called on every state transition of a request.
type Observer func(requestID string, from, to State)

// Option configures a Gateway.
type Option func(*Gateway)

// WithObserver installs a transition hook.
func WithObserver(o Observer) Option {
	return func(g *Gateway) { g.observer = o }
}

// WithLogger sets the logger. Defaults to discarding.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithUser overrides the user name written to audit records.
func WithUser(name string) Option {
	return func(g *Gateway) { g.user = name }
}

// Gateway is the single entry point for command requests. It holds no
// per-request state and may be shared across goroutines.
type Gateway struct {
	policy   Evaluator
	runner   Runner
	audit    Recorder
	user     string
	observer Observer
	logger   *slog.Logger
}

// New creates a Gateway.
func New(ev Evaluator, run Runner, rec Recorder, opts ...Option) *Gateway {
	g := &Gateway{policy: ev, runner: run, audit: rec}
	for _, opt := range opts {
		opt(g)
	}
	if g.user == "" {
		g.user = CurrentUser()
	}
	if g.logger == nil {
		g.logger = slog.New(slog.DiscardHandler)
	}
	return g
}

// Handle evaluates command, runs it if allowed, and records the attempt
// either way. The audit record is written before Handle returns. A denied
// command never reaches the Runner.
func (g *Gateway) Handle(ctx context.Context, command string, timeoutSeconds int) executor.Result {
	id := uuid.NewString()
	log := g.logger.With("request_id", id)

	var (
		verdict policy.Verdict
		result  executor.Result
	)

	state := StateEvaluating
	for state != StateDone {
		next := state
		switch state {
		case StateEvaluating:
			verdict = g.policy.Evaluate(command)
			if verdict.IsAllowed() {
				next = StateExecuting
			} else {
				next = StateDenied
			}

		case StateDenied:
			log.Warn("command denied", "command", command, "reason", verdict.Reason)
			g.audit.Record(audit.Denied(id, command, g.user, verdict.Reason))
			result = executor.Blocked(verdict.Reason)
			next = StateDone

		case StateExecuting:
			log.Info("executing command", "command", command, "timeout_seconds", timeoutSeconds)
			result = g.runner.Execute(ctx, command, timeoutSeconds)
			g.audit.Record(audit.Executed(id, command, g.user, result))
			log.Info("command finished",
				"outcome", result.Outcome.String(),
				"exit_code", result.ExitCode)
			next = StateDone
		}
		g.transition(id, state, next)
		state = next
	}
	return result
}

func (g *Gateway) transition(id string, from, to State) {
	if g.observer != nil {
		g.observer(id, from, to)
	}
}

// CurrentUser returns the name of the OS user running the gateway, falling
// back to $USER and then "unknown".
func CurrentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
