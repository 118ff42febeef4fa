package diagerr

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Kind string

const (
	CollaboratorUnavailable Kind = "CollaboratorUnavailable"
	MalformedTable          Kind = "MalformedTable"
	SchemaMismatch          Kind = "SchemaMismatch"
	UnitMismatch            Kind = "UnitMismatch"
	InvalidParameter        Kind = "InvalidParameter"
)

// Error is a diagnostic failure scoped to a subject (a node, a pod, a
// parameter name, or a whole tool invocation).
type Error struct {
	Kind    Kind
	Subject string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Subject != "" {
		msg += " [" + e.Subject + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, subject, op string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Op: op, Err: err}
}

func Unavailable(subject, op string, err error) *Error {
	return newErr(CollaboratorUnavailable, subject, op, err)
}

func Malformed(subject string, format string, a ...any) *Error {
	return newErr(MalformedTable, subject, "parse table", fmt.Errorf(format, a...))
}

func Schema(subject string, format string, a ...any) *Error {
	return newErr(SchemaMismatch, subject, "decode", fmt.Errorf(format, a...))
}

func Units(op string, left, right string) *Error {
	return newErr(UnitMismatch, "", op, fmt.Errorf("%s vs %s", left, right))
}

func Invalid(param string, format string, a ...any) *Error {
	return newErr(InvalidParameter, param, "validate", fmt.Errorf(format, a...))
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Descriptor is the structured form of an error handed to the protocol layer.
type Descriptor struct {
	Kind    Kind   `json:"kind"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

func Describe(err error) Descriptor {
	var de *Error
	if errors.As(err, &de) {
		msg := de.Op
		if de.Err != nil {
			msg = de.Err.Error()
		}
		return Descriptor{Kind: de.Kind, Subject: de.Subject, Message: msg}
	}
	return Descriptor{Kind: CollaboratorUnavailable, Message: err.Error()}
}

func (d Descriptor) JSON() string {
	b, _ := json.Marshal(d)
	return string(b)
}
