// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package policy

// Decision represents the outcome of policy evaluation.
type Decision int

const (
	Allow Decision = iota // command may reach the elevation backend
	Deny                  // command is blocked
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Verdict is a structured policy decision. Reason is empty for Allow and
// always set for Deny; it is shown to the caller and written to the audit log.
type Verdict struct {
	Decision Decision
	Reason   string
}

// Allowed returns an Allow verdict.
func Allowed() Verdict {
	return Verdict{Decision: Allow}
}

// Denied returns a Deny verdict with the given reason.
func Denied(reason string) Verdict {
	if reason == "" {
		reason = "Command denied by policy"
	}
	return Verdict{Decision: Deny, Reason: reason}
}

// IsAllowed reports whether the verdict permits execution.
func (v Verdict) IsAllowed() bool {
	return v.Decision == Allow
}
