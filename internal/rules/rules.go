package rules

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultMatchTimeout bounds a single pattern match attempt.
const DefaultMatchTimeout = time.Second

// Document is the uncompiled form of a blocklist: three plain string lists.
// Every list is optional.
type Document struct {
	ExactMatches    []string `yaml:"ExactMatches" json:"ExactMatches"`
	RegexPatterns   []string `yaml:"RegexPatterns" json:"RegexPatterns"`
	BlockedBinaries []string `yaml:"BlockedBinaries" json:"BlockedBinaries"`
}

// Len returns the total number of rules in the document.
func (d Document) Len() int {
	return len(d.ExactMatches) + len(d.RegexPatterns) + len(d.BlockedBinaries)
}

// ConfigurationError reports a blocklist that could not be loaded or compiled.
// A gateway must refuse to start on one rather than run with a partial policy.
type ConfigurationError struct {
	Source string // file path, profile name, or "document"
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("blocklist %s: %v", e.Source, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Pattern is a compiled, case-insensitive blocklist pattern with a bounded
// match time.
type Pattern struct {
	re *regexp2.Regexp
}

// String returns the pattern source.
func (p Pattern) String() string {
	return p.re.String()
}

// Match reports whether s matches the pattern. A match that exceeds the
// pattern's time budget returns an error.
func (p Pattern) Match(s string) (bool, error) {
	return p.re.MatchString(s)
}

// Ruleset is an immutable, compiled blocklist. It is safe for concurrent
// reads; nothing mutates it after Compile returns.
type Ruleset struct {
	exact    []string
	patterns []Pattern
	binaries []string
	source   Document
}

// Compile builds a Ruleset from a document. Duplicate entries are kept.
func Compile(doc Document) (*Ruleset, error) {
	return CompileWithTimeout(doc, DefaultMatchTimeout)
}

// CompileWithTimeout is Compile with an explicit per-match time budget.
func CompileWithTimeout(doc Document, timeout time.Duration) (*Ruleset, error) {
	rs := &Ruleset{
		exact:    clean(doc.ExactMatches),
		binaries: clean(doc.BlockedBinaries),
		source: Document{
			ExactMatches:    append([]string(nil), doc.ExactMatches...),
			RegexPatterns:   append([]string(nil), doc.RegexPatterns...),
			BlockedBinaries: append([]string(nil), doc.BlockedBinaries...),
		},
	}
	for i, src := range doc.RegexPatterns {
		re, err := regexp2.Compile(src, regexp2.IgnoreCase)
		if err != nil {
			return nil, &ConfigurationError{
				Source: "document",
				Err:    fmt.Errorf("pattern %d %q: %w", i, src, err),
			}
		}
		re.MatchTimeout = timeout
		rs.patterns = append(rs.patterns, Pattern{re: re})
	}
	return rs, nil
}

// MustCompile is Compile for documents known to be valid.
func MustCompile(doc Document) *Ruleset {
	rs, err := Compile(doc)
	if err != nil {
		panic(err)
	}
	return rs
}

// Disabled returns a Ruleset with no rules. Every non-empty command passes it.
func Disabled() *Ruleset {
	return &Ruleset{}
}

// ExactMatch returns the entry that command equals, ignoring case.
// The caller trims command.
func (rs *Ruleset) ExactMatch(command string) (string, bool) {
	for _, entry := range rs.exact {
		if strings.EqualFold(command, entry) {
			return entry, true
		}
	}
	return "", false
}

// Patterns returns the compiled patterns in declaration order.
func (rs *Ruleset) Patterns() []Pattern {
	return append([]Pattern(nil), rs.patterns...)
}

// BlockedBinary reports whether token, or its path basename, names a blocked
// binary, ignoring case.
func (rs *Ruleset) BlockedBinary(token string) (string, bool) {
	base := filepath.Base(token)
	for _, bin := range rs.binaries {
		if strings.EqualFold(token, bin) || strings.EqualFold(base, bin) {
			return bin, true
		}
	}
	return "", false
}

// Len returns the total number of rules.
func (rs *Ruleset) Len() int {
	return len(rs.exact) + len(rs.patterns) + len(rs.binaries)
}

// Document returns a copy of the lists the Ruleset was compiled from.
func (rs *Ruleset) Document() Document {
	return Document{
		ExactMatches:    append([]string(nil), rs.source.ExactMatches...),
		RegexPatterns:   append([]string(nil), rs.source.RegexPatterns...),
		BlockedBinaries: append([]string(nil), rs.source.BlockedBinaries...),
	}
}

// clean drops blank entries and trims the rest. Blank entries would otherwise
// never match anything after the empty-command check.
func clean(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
