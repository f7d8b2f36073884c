// Package engine turns daily service entries into revenue, pay, daily
// recaps and monthly reports.
//
// Every function here is pure: inputs are taken by value, nothing is
// cached between calls, and no I/O happens. Anomalies in the data never
// abort a computation; they degrade to a best-effort figure plus a
// Condition describing what was wrong.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"bukukas/internal/core"
)

type ConditionKind string

const (
	MissingReference ConditionKind = "MissingReference"
	InvalidQuantity  ConditionKind = "InvalidQuantity"
	BonusExceedsMain ConditionKind = "BonusExceedsMain"
	OverrideConflict ConditionKind = "OverrideConflict"
)

var (
	ErrMissingReference = errors.New("missing reference")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrBonusExceedsMain = errors.New("bonus quantity exceeds main quantity")
	ErrOverrideConflict = errors.New("override conflict")

	// ErrReferenceNotFound is what payroll reports for an unknown employee.
	ErrReferenceNotFound = ErrMissingReference
)

// Condition is a non-fatal anomaly found while computing.
type Condition struct {
	Kind       ConditionKind `json:"kind"`
	Date       core.Date     `json:"date,omitempty"`
	EmployeeID string        `json:"employeeId,omitempty"`
	ServiceID  string        `json:"serviceId,omitempty"`
	Detail     string        `json:"detail,omitempty"`
}

func (c Condition) sentinel() error {
	switch c.Kind {
	case MissingReference:
		return ErrMissingReference
	case InvalidQuantity:
		return ErrInvalidQuantity
	case BonusExceedsMain:
		return ErrBonusExceedsMain
	case OverrideConflict:
		return ErrOverrideConflict
	default:
		return nil
	}
}

func (c Condition) Error() string {
	var b strings.Builder
	b.WriteString(string(c.Kind))
	if c.Date != "" {
		fmt.Fprintf(&b, " date=%s", c.Date)
	}
	if c.EmployeeID != "" {
		fmt.Fprintf(&b, " employee=%s", c.EmployeeID)
	}
	if c.ServiceID != "" {
		fmt.Fprintf(&b, " service=%s", c.ServiceID)
	}
	if c.Detail != "" {
		b.WriteString(": ")
		b.WriteString(c.Detail)
	}
	return b.String()
}

// Is lets errors.Is match a Condition against its kind's sentinel.
func (c Condition) Is(target error) bool {
	s := c.sentinel()
	return s != nil && s == target
}

// Conditions is an ordered list of anomalies.
type Conditions []Condition

// Has reports whether any condition matches kind.
func (cs Conditions) Has(kind ConditionKind) bool {
	for _, c := range cs {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

// Count returns the number of conditions per kind.
func (cs Conditions) Count() map[ConditionKind]int {
	out := map[ConditionKind]int{}
	for _, c := range cs {
		out[c.Kind]++
	}
	return out
}

// Err joins the conditions into a single error, or nil if there are none.
func (cs Conditions) Err() error {
	if len(cs) == 0 {
		return nil
	}
	errs := make([]error, len(cs))
	for i, c := range cs {
		errs[i] = c
	}
	return errors.Join(errs...)
}
