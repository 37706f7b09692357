package runner

import (
	"errors"
	"fmt"
	"testing"
)

func TestStep_ExitCodes(t *testing.T) {
	tests := []struct {
		step Step
		want int
	}{
		{StepLoad, 2},
		{StepClient, 3},
		{StepCompile, 4},
		{StepInput, 5},
		{StepExecute, 6},
		{StepReport, 7},
	}

	for _, tt := range tests {
		if got := tt.step.ExitCode(); got != tt.want {
			t.Errorf("%s.ExitCode() = %d; want %d", tt.step, got, tt.want)
		}
	}
}

func TestStep_String(t *testing.T) {
	tests := []struct {
		step Step
		want string
	}{
		{StepLoad, "load"},
		{StepClient, "client"},
		{StepCompile, "compile"},
		{StepInput, "input"},
		{StepExecute, "execute"},
		{StepReport, "report"},
		{Step(42), "step(42)"},
	}

	for _, tt := range tests {
		if got := tt.step.String(); got != tt.want {
			t.Errorf("Step(%d).String() = %q; want %q", int(tt.step), got, tt.want)
		}
	}
}

func TestError_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("file not found")
	err := NewError(StepLoad, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false; want true")
	}

	want := "load: file not found"
	if err.Error() != want {
		t.Errorf("Error() = %q; want %q", err.Error(), want)
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d; want 0", got)
	}

	if got := ExitCode(fmt.Errorf("plain")); got != 1 {
		t.Errorf("ExitCode(plain) = %d; want 1", got)
	}

	wrapped := fmt.Errorf("outer: %w", NewError(StepExecute, fmt.Errorf("fault")))
	if got := ExitCode(wrapped); got != 6 {
		t.Errorf("ExitCode(wrapped execute error) = %d; want 6", got)
	}
}
