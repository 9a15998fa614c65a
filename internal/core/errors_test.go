package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	e := &Error{Code: "TEST", Message: "something broke"}
	if got := e.Error(); got != "[TEST] something broke" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := WrapError(e, fmt.Errorf("root cause"))
	if got := wrapped.Error(); got != "[TEST] something broke: root cause" {
		t.Errorf("Error() with cause = %q", got)
	}
}

func TestError_Is(t *testing.T) {
	cause := fmt.Errorf("bad step")
	err := WrapError(ErrConfigInvalid, cause)

	if !errors.Is(err, ErrConfigInvalid) {
		t.Error("errors.Is should match by code")
	}
	if errors.Is(err, ErrInputInvalid) {
		t.Error("errors.Is matched a different code")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should unwrap to the cause")
	}
}

func TestError_As(t *testing.T) {
	err := fmt.Errorf("outer: %w", WrapError(ErrGridExplosion, nil))
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatal("errors.As failed")
	}
	if ce.Code != "GRID_EXPLOSION" {
		t.Errorf("Code = %q, want GRID_EXPLOSION", ce.Code)
	}
}
