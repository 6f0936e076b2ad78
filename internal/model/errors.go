package model

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrUnknownColumn        = errors.New("unknown column")
	ErrUnknownUnit          = errors.New("unknown unit")
	ErrSchemaMismatch       = errors.New("schema mismatch")
	ErrUnsupportedStatistic = errors.New("unsupported statistic")
	ErrNotFound             = errors.New("not found")
)

// UnknownColumnError reports an identifier missing from a matrix's columns.
type UnknownColumnError struct {
	Column string
	Source string
}

func (e *UnknownColumnError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("unknown column %q", e.Column)
	}
	return fmt.Sprintf("%s: unknown column %q", e.Source, e.Column)
}

func (e *UnknownColumnError) Unwrap() error { return ErrUnknownColumn }

// UnknownUnitError reports a unit id absent from the unit list or matrix rows.
type UnknownUnitError struct {
	UnitID string
	Reason string
}

func (e *UnknownUnitError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unknown unit %q", e.UnitID)
	}
	return fmt.Sprintf("unknown unit %q: %s", e.UnitID, e.Reason)
}

func (e *UnknownUnitError) Unwrap() error { return ErrUnknownUnit }

// SchemaMismatchError reports inconsistent table structure across scenarios.
type SchemaMismatchError struct {
	Scenario string
	Property string
	Detail   string
}

func (e *SchemaMismatchError) Error() string {
	msg := "schema mismatch"
	if e.Scenario != "" {
		msg += fmt.Sprintf(" in scenario %q", e.Scenario)
	}
	if e.Property != "" {
		msg += fmt.Sprintf(" for property %q", e.Property)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// UnsupportedStatisticError reports a subtype with no numeric diff rule.
type UnsupportedStatisticError struct {
	Property string
	Subtype  string
}

func (e *UnsupportedStatisticError) Error() string {
	return fmt.Sprintf("unsupported statistic %q for property %q", e.Subtype, e.Property)
}

func (e *UnsupportedStatisticError) Unwrap() error { return ErrUnsupportedStatistic }
