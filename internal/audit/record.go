package audit

import (
	"time"

	"github.com/marcelocantos/sudo-mcp/internal/executor"
)

// EventType distinguishes the two kinds of audit record.
type EventType string

const (
	EventExecuted EventType = "CommandExecuted"
	EventDenied   EventType = "CommandDenied"
)

// Record is one line of the audit log. Seq, Time, PrevHash and Hash are
// assigned by the Sink; callers fill in the rest.
type Record struct {
	Seq            uint64    `json:"seq"`
	Time           time.Time `json:"timestamp"`
	EventType      EventType `json:"event_type"`
	RequestID      string    `json:"request_id,omitempty"`
	Command        string    `json:"command"` // verbatim, never truncated
	User           string    `json:"user"`
	Success        bool      `json:"success"`
	ExitCode       *int32    `json:"exit_code,omitempty"` // executed only
	ErrorMessage   *string   `json:"error_message,omitempty"`
	DenialReason   string    `json:"denial_reason,omitempty"` // denied only
	StandardOutput *string   `json:"standard_output,omitempty"`
	StandardError  *string   `json:"standard_error,omitempty"`
	PrevHash       string    `json:"prev_hash"`
	Hash           string    `json:"hash"` // SHA-256 of this record with Hash empty
}

// Denied builds the record for a command the policy blocked.
func Denied(requestID, command, user, reason string) Record {
	return Record{
		EventType:    EventDenied,
		RequestID:    requestID,
		Command:      command,
		User:         user,
		DenialReason: reason,
	}
}

// Executed builds the record for a command that reached the executor.
func Executed(requestID, command, user string, r executor.Result) Record {
	code := r.ExitCode
	return Record{
		EventType:      EventExecuted,
		RequestID:      requestID,
		Command:        command,
		User:           user,
		Success:        r.Success,
		ExitCode:       &code,
		ErrorMessage:   r.ErrorMessage,
		StandardOutput: r.StandardOutput,
		StandardError:  r.StandardError,
	}
}
