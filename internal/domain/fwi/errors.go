package fwi

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel error kinds. Use errors.Is to classify failures.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNumericDomain = errors.New("numeric domain error")
)

// InputError reports an argument outside its accepted range.
type InputError struct {
	Op     string
	Field  string
	Value  float64
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s=%g: %s", e.Op, e.Field, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// DomainError reports an intermediate term that would take a logarithm,
// fractional power or division outside its domain.
type DomainError struct {
	Op    string
	Term  string
	Value float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s=%g outside function domain", e.Op, e.Term, e.Value)
}

func (e *DomainError) Unwrap() error { return ErrNumericDomain }

func invalid(op, field string, v float64, reason string) error {
	return &InputError{Op: op, Field: field, Value: v, Reason: reason}
}

func checkFinite(op, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(op, field, v, "must be finite")
	}
	return nil
}

func checkRange(op, field string, v, lo, hi float64) error {
	if err := checkFinite(op, field, v); err != nil {
		return err
	}
	if v < lo || v > hi {
		return invalid(op, field, v, fmt.Sprintf("must be within [%g, %g]", lo, hi))
	}
	return nil
}

func checkNonNegative(op, field string, v float64) error {
	if err := checkFinite(op, field, v); err != nil {
		return err
	}
	if v < 0 {
		return invalid(op, field, v, "must not be negative")
	}
	return nil
}

func checkMonth(op string, m int) error {
	if m < 1 || m > 12 {
		return invalid(op, "month", float64(m), "must be within [1, 12]")
	}
	return nil
}

// positive guards logarithm arguments and fractional-power bases.
func positive(op, term string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return &DomainError{Op: op, Term: term, Value: v}
	}
	return nil
}

// nonZero guards divisors.
func nonZero(op, term string, v float64) error {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return &DomainError{Op: op, Term: term, Value: v}
	}
	return nil
}
