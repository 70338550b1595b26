// Package modelerr defines the error taxonomy shared by the dynamics,
// working memory and unification packages.
//
// Three families exist:
//   - ConfigError: bad dynamics parameters. Fatal, reported only at setup.
//   - StructuralError: a malformed fragment or graph reference. Recoverable;
//     the caller can discard the candidate and continue.
//   - NumericAnomaly: NaN or overflow after integration. Fatal modeling defect.
package modelerr

import (
	"errors"
	"fmt"
)

// Structural error kinds. Match with errors.Is.
var (
	ErrNoHead          = errors.New("fragment has no head node")
	ErrMultipleHeads   = errors.New("fragment has multiple head nodes")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrDanglingLink    = errors.New("dangling link reference")
	ErrUnknownInstance = errors.New("unknown instance")
	ErrDuplicateID     = errors.New("duplicate id")
	ErrDuplicateLink   = errors.New("duplicate link")
	ErrIncompatible    = errors.New("filler incompatible with slot")
)

// ConfigError reports an invalid configuration parameter.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// StructuralError wraps one of the structural sentinels with the offending
// element.
type StructuralError struct {
	Kind    error
	Subject string
	Detail  string
}

func (e *StructuralError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: %s (%s)", e.Kind, e.Subject, e.Detail)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Subject)
}

// Unwrap exposes the sentinel so errors.Is works on the kind.
func (e *StructuralError) Unwrap() error {
	return e.Kind
}

// Structural builds a StructuralError.
func Structural(kind error, subject, detail string) error {
	return &StructuralError{Kind: kind, Subject: subject, Detail: detail}
}

// NumericAnomaly reports a non-finite activation produced by integration.
type NumericAnomaly struct {
	InstanceID string
	Tick       int
	Value      float64
}

func (e *NumericAnomaly) Error() string {
	return fmt.Sprintf("numeric anomaly: instance %s at tick %d produced %v", e.InstanceID, e.Tick, e.Value)
}

// IsFatal reports whether err belongs to a fatal family (configuration or
// numeric anomaly).
func IsFatal(err error) bool {
	var ce *ConfigError
	var na *NumericAnomaly
	return errors.As(err, &ce) || errors.As(err, &na)
}
