package logger

import (
	"testing"
)

func TestNew_Production(t *testing.T) {
	log, err := New(false)
	if err != nil {
		t.Fatalf("New(false) error = %v", err)
	}
	defer log.Sync()

	log.Info("test message")
}

func TestNew_Development(t *testing.T) {
	log, err := New(true)
	if err != nil {
		t.Fatalf("New(true) error = %v", err)
	}
	defer log.Sync()
}

func TestForRun(t *testing.T) {
	if got := ForRun(nil, "abc"); got == nil {
		t.Fatal("ForRun(nil) should return a usable logger")
	}
	log, err := New(false)
	if err != nil {
		t.Fatalf("New(false) error = %v", err)
	}
	scoped := ForRun(log, "abc")
	if scoped == log {
		t.Error("ForRun should return a child logger")
	}
	scoped.Info("scoped message")
}