package runner

import (
	"errors"
	"fmt"
)

// Step identifies where in the run pipeline a failure happened. Every
// failure is terminal for the run and is classified by the step it occurred
// in, which also determines the process exit code.
type Step int

const (
	StepLoad Step = iota + 1
	StepClient
	StepCompile
	StepInput
	StepExecute
	StepReport
)

func (s Step) String() string {
	switch s {
	case StepLoad:
		return "load"
	case StepClient:
		return "client"
	case StepCompile:
		return "compile"
	case StepInput:
		return "input"
	case StepExecute:
		return "execute"
	case StepReport:
		return "report"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// ExitCode returns the process exit code for a failure at this step:
// load=2, client=3, compile=4, input=5, execute=6, report=7.
func (s Step) ExitCode() int { return int(s) + 1 }

// Error is a run failure tagged with the pipeline step it occurred in.
type Error struct {
	Step Step
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

func failAt(step Step, err error) *Error {
	return &Error{Step: step, Err: err}
}

// NewError tags err with the given step. Used by callers that perform a
// pipeline step themselves (e.g. printing the report).
func NewError(step Step, err error) *Error {
	return failAt(step, err)
}

// ExitCode maps an error from Run to a process exit code: 0 for nil, the
// step code for a classified failure, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var runErr *Error
	if errors.As(err, &runErr) {
		return runErr.Step.ExitCode()
	}
	return 1
}
