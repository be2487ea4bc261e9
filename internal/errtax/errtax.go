// Package errtax implements the flat error taxonomy shared by the
// validator, compiler, execution loop, and RcaCursor. The classifier is
// the only place that inspects error strings; everywhere else pattern
// matches on Class.
package errtax

import (
	"errors"
	"fmt"
	"strings"
)

// Class is one of the taxonomy tags a failure can carry.
type Class string

const (
	MetricNotFound       Class = "MetricNotFound"
	DimensionNotFound    Class = "DimensionNotFound"
	DimensionNotAllowed  Class = "DimensionNotAllowed"
	ColumnNotFound       Class = "ColumnNotFound"
	TableNotFound        Class = "TableNotFound"
	AmbiguousColumn      Class = "AmbiguousColumn"
	InvalidAggregation   Class = "InvalidAggregation"
	TimeGrainMismatch    Class = "TimeGrainMismatch"
	JoinPathFailure      Class = "JoinPathFailure"
	CompilerError        Class = "CompilerError"
	ExecutionError       Class = "ExecutionError"
)

// Error is a taxonomy-tagged error. It wraps an optional cause and carries
// a free-form message used both for display and, at the loop boundary,
// for recovery-prompt construction.
type Error struct {
	Class   Class
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Class)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, errtax.MetricNotFound)-style class checks by
// comparing against a bare *Error carrying only a Class.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) && t.Message == "" && t.Cause == nil {
		return e.Class == t.Class
	}
	return false
}

// New constructs a tagged error.
func New(class Class, format string, args ...any) *Error {
	return &Error{Class: class, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an existing error without discarding it.
func Wrap(class Class, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Class: class, Message: msg, Cause: cause}
}

// ClassOf returns the taxonomy class carried by err, classifying unknown
// errors by substring matching on the message (spec §7: "Classification is
// by substring matching on error messages ... unknown → ExecutionError").
func ClassOf(err error) Class {
	if err == nil {
		return ""
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Class
	}
	return classifyMessage(err.Error())
}

// classifyMessage is the sole place in the codebase allowed to inspect a
// raw error string for taxonomy purposes.
func classifyMessage(msg string) Class {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "metric not found") || strings.Contains(lower, "unknown metric"):
		return MetricNotFound
	case strings.Contains(lower, "dimension not allowed"):
		return DimensionNotAllowed
	case strings.Contains(lower, "dimension not found") || strings.Contains(lower, "unknown dimension"):
		return DimensionNotFound
	case strings.Contains(lower, "column not found"):
		return ColumnNotFound
	case strings.Contains(lower, "table not found"):
		return TableNotFound
	case strings.Contains(lower, "ambiguous column"):
		return AmbiguousColumn
	case strings.Contains(lower, "aggregation"):
		return InvalidAggregation
	case strings.Contains(lower, "grain"):
		return TimeGrainMismatch
	case strings.Contains(lower, "join path") || strings.Contains(lower, "cannot safely join") || strings.Contains(lower, "cyclic") || strings.Contains(lower, "unreachable"):
		return JoinPathFailure
	case strings.Contains(lower, "parse") || strings.Contains(lower, "function call") || strings.Contains(lower, "malformed"):
		return CompilerError
	default:
		return ExecutionError
	}
}

// Retryable reports whether the loop should attempt local recovery for the
// given class (all classes in the taxonomy are locally recoverable by
// re-prompting; only the repeated-error guard or attempt budget stops it).
func Retryable(c Class) bool {
	switch c {
	case "":
		return false
	default:
		return true
	}
}
