package executor

import "fmt"

// SentinelExitCode marks a result that has no real process exit status:
// timeout, cancellation, spawn failure, or a blocked command.
const SentinelExitCode int32 = -1

// Exit codes pkexec uses to report an authorisation outcome.
const (
	ExitAuthCancelled int32 = 126
	ExitAuthFailed    int32 = 127
)

// Outcome classifies a Result for logging.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeValidationDenied
	OutcomeTimeout
	OutcomeAuthorizationCancelled
	OutcomeAuthorizationFailed
	OutcomeProcessFailure
	OutcomeSpawnError
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeValidationDenied:
		return "validation_denied"
	case OutcomeTimeout:
		return "execution_timeout"
	case OutcomeAuthorizationCancelled:
		return "authorization_cancelled"
	case OutcomeAuthorizationFailed:
		return "authorization_failed"
	case OutcomeProcessFailure:
		return "process_failure"
	case OutcomeSpawnError:
		return "spawn_error"
	case OutcomeCancelled:
		return "cancelled_by_caller"
	default:
		return "unknown"
	}
}

// Result is the caller-visible outcome of one request.
// Success is true exactly when ExitCode is 0.
type Result struct {
	Success        bool    `json:"Success"`
	StandardOutput *string `json:"StandardOutput"`
	StandardError  *string `json:"StandardError"`
	ExitCode       int32   `json:"ExitCode"`
	ErrorMessage   *string `json:"ErrorMessage"`

	Outcome Outcome `json:"-"`
}

// Blocked builds the result returned for a command the policy denied.
func Blocked(reason string) Result {
	return Result{
		ExitCode:     SentinelExitCode,
		ErrorMessage: ptr("Command blocked: " + reason),
		Outcome:      OutcomeValidationDenied,
	}
}

func exited(code int32, stdout, stderr string) Result {
	r := Result{
		Success:        code == 0,
		StandardOutput: ptr(stdout),
		StandardError:  ptr(stderr),
		ExitCode:       code,
	}
	switch code {
	case 0:
		r.Outcome = OutcomeSucceeded
	case ExitAuthCancelled:
		r.Outcome = OutcomeAuthorizationCancelled
		r.ErrorMessage = ptr("Authorisation cancelled — user dismissed authentication dialogue")
	case ExitAuthFailed:
		r.Outcome = OutcomeAuthorizationFailed
		r.ErrorMessage = ptr("Authorisation failed — user not authorised to execute this command")
	default:
		r.Outcome = OutcomeProcessFailure
		r.ErrorMessage = ptr(fmt.Sprintf("Command failed with exit code %d", code))
	}
	return r
}

func timedOut(seconds int) Result {
	return Result{
		ExitCode:     SentinelExitCode,
		ErrorMessage: ptr(fmt.Sprintf("Command execution timed out after %d seconds", seconds)),
		Outcome:      OutcomeTimeout,
	}
}

func cancelled() Result {
	return Result{
		ExitCode:     SentinelExitCode,
		ErrorMessage: ptr("Command execution was cancelled"),
		Outcome:      OutcomeCancelled,
	}
}

func spawnFailed(err error) Result {
	return Result{
		ExitCode:      SentinelExitCode,
		ErrorMessage:  ptr("Failed to execute command: " + err.Error()),
		StandardError: ptr(fmt.Sprintf("%T: %v", err, err)),
		Outcome:       OutcomeSpawnError,
	}
}

// Str dereferences an optional result field.
func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string { return &s }
