// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/marcelocantos/sudo-mcp/internal/rules"
)

// Engine evaluates commands against a fixed Ruleset. It holds no mutable
// state, so one Engine serves any number of concurrent callers.
type Engine struct {
	rules  *rules.Ruleset
	logger *slog.Logger
}

// NewEngine creates an Engine. Pass rules.Disabled() to allow every
// non-empty command.
func NewEngine(rs *rules.Ruleset, logger *slog.Logger) *Engine {
	if rs == nil {
		panic("policy: nil ruleset")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{rules: rs, logger: logger}
}

// Evaluate checks command against rs without logging.
func Evaluate(rs *rules.Ruleset, command string) Verdict {
	return NewEngine(rs, nil).Evaluate(command)
}

// Evaluate runs the checks in order: empty input, exact matches, patterns,
// then the first token against blocked binaries. The first hit wins.
//
// A pattern that exceeds its match budget counts as not matching and the
// remaining patterns still run. This fails open for that one pattern: a
// command crafted to be slow against a single pattern can slip past it, but
// an expensive legitimate command never turns into a stalled gateway.
func (e *Engine) Evaluate(command string) Verdict {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return Denied("Command cannot be empty")
	}

	if entry, ok := e.rules.ExactMatch(trimmed); ok {
		return Denied(fmt.Sprintf("Command exactly matches blocklist: '%s'", entry))
	}

	for _, p := range e.rules.Patterns() {
		matched, err := p.Match(trimmed)
		if err != nil {
			e.logger.Warn("pattern match abandoned",
				"pattern", p.String(), "command_len", len(trimmed), "err", err)
			continue
		}
		if matched {
			return Denied(fmt.Sprintf("Command matches dangerous pattern: %s", p.String()))
		}
	}

	if fields := strings.Fields(trimmed); len(fields) > 0 {
		if _, ok := e.rules.BlockedBinary(fields[0]); ok {
			return Denied(fmt.Sprintf("Binary '%s' is blocked", fields[0]))
		}
	}

	return Allowed()
}
