package detect

import (
	"fmt"
	"time"
)

// Reason classifies why a probe did not report Installed.
type Reason string

const (
	ReasonEmptyTarget    Reason = "empty_target"
	ReasonNotFound       Reason = "not_found"
	ReasonUnreadable     Reason = "unreadable"
	ReasonNoMatch        Reason = "no_match"
	ReasonBadPattern     Reason = "bad_pattern"
	ReasonSpawnFailed    Reason = "spawn_failed"
	ReasonNonZeroExit    Reason = "non_zero_exit"
	ReasonTimeout        Reason = "timeout"
	ReasonVersionUnknown Reason = "version_unknown"
	ReasonVersionTooOld  Reason = "version_too_old"
	ReasonUnsupported    Reason = "unsupported_method"
)

type ProbeError struct {
	Reason Reason
	Detail string
	Err    error
}

func (e *ProbeError) Error() string {
	switch {
	case e.Err != nil && e.Detail != "":
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Detail, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
	}
	return string(e.Reason)
}

func (e *ProbeError) Unwrap() error { return e.Err }

func probeErr(reason Reason, detail string, err error) *ProbeError {
	return &ProbeError{Reason: reason, Detail: detail, Err: err}
}

// Result is the outcome of one probe. Err is nil exactly when Installed is true.
type Result struct {
	Installed bool
	Path      string
	Output    string
	Duration  time.Duration
	Err       *ProbeError
}
