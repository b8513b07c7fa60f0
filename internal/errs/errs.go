// Package errs defines the error taxonomy shared by the compiler pipeline,
// the scheduler and the executor. Every error names the offending step and
// the property or resource at fault so a user can locate the problem in
// their procedure without a stack trace.
package errs

import (
	"fmt"
	"strings"
	"time"
)

// ParseError reports malformed procedure or graph source.
type ParseError struct {
	File   string
	Detail string
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("parse error: %s", e.Detail)
	}
	return fmt.Sprintf("parse error in %s: %s", e.File, e.Detail)
}

// UnknownVesselError reports a step property referencing a vessel that is
// not present in the hardware graph.
type UnknownVesselError struct {
	Step   string // step kind plus tree position, e.g. "Add[2]"
	Prop   string
	Vessel string
}

func (e *UnknownVesselError) Error() string {
	return fmt.Sprintf(
		"%s: property %q references unknown vessel %q",
		e.Step, e.Prop, e.Vessel)
}

// UnknownReagentError reports a step property referencing a reagent that is
// not declared in the procedure's Reagents section.
type UnknownReagentError struct {
	Step    string
	Prop    string
	Reagent string
}

func (e *UnknownReagentError) Error() string {
	return fmt.Sprintf(
		"%s: property %q references unknown reagent %q",
		e.Step, e.Prop, e.Reagent)
}

// ResolutionError reports a graph query that could not be satisfied while
// filling a step's internal properties, e.g. no reachable waste vessel.
type ResolutionError struct {
	Step   string
	Detail string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: resolution failed: %s", e.Step, e.Detail)
}

// StepExpansionError reports an abstract step whose expansion preconditions
// were not met. It aborts compilation; expansion never silently degrades.
type StepExpansionError struct {
	Step   string
	Detail string
}

func (e *StepExpansionError) Error() string {
	return fmt.Sprintf("%s: cannot expand: %s", e.Step, e.Detail)
}

// Violation is a single failed sanity check. Violations are collected
// exhaustively, never reported one at a time.
type Violation struct {
	Step string
	Msg  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Step, v.Msg)
}

// SanityError is the batch of all violations found in one checker pass.
// A non-empty batch is a hard compilation failure.
type SanityError struct {
	Violations []Violation
}

func (e *SanityError) Error() string {
	lines := make([]string, 0, len(e.Violations)+1)
	lines = append(lines, fmt.Sprintf("%d sanity check(s) failed:", len(e.Violations)))
	for _, v := range e.Violations {
		lines = append(lines, "  - "+v.String())
	}
	return strings.Join(lines, "\n")
}

// StaleArtifactError reports a frozen artifact executed or scheduled
// against a hardware graph other than the one it was compiled for.
type StaleArtifactError struct {
	Procedure string
	Want      string
	Got       string
}

func (e *StaleArtifactError) Error() string {
	return fmt.Sprintf(
		"%s: artifact was compiled against graph %.12s, current graph is %.12s; recompile",
		e.Procedure, e.Want, e.Got)
}

// SchedulingError reports that no valid interleaving was found within the
// chosen strategy's bound.
type SchedulingError struct {
	Strategy string
	Detail   string
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("scheduling with %s failed: %s", e.Strategy, e.Detail)
}

// TimeoutError reports a dynamic step whose runtime condition was never
// satisfied within its declared timeout.
type TimeoutError struct {
	Step  string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: condition not met after %s", e.Step, e.After)
}
