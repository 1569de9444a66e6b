package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	// Save original logger
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")

	if !called {
		t.Error("Custom logger was not called")
	}

	// Setting nil should install a no-op logger rather than panic
	SetLogger(nil)
	Logf("test message")

	noOpCalled := false
	SetLogger(func(format string, v ...interface{}) {
		noOpCalled = true
	})
	Logf("test")
	if !noOpCalled {
		t.Error("Test logger should have been called")
	}

	noOpCalled = false
	SetLogger(nil)
	Logf("test")
	if noOpCalled {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestDebugf_Gated(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		DisableDebug()
	}()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})

	// Disabled by default: nothing reaches the logger
	Debugf("hidden %d", 1)
	if len(lines) != 0 {
		t.Fatalf("Debugf logged while disabled: %v", lines)
	}

	EnableDebug()
	Debugf("visible %d", 2)
	if len(lines) != 1 {
		t.Fatalf("Debugf did not log while enabled, got %d lines", len(lines))
	}

	DisableDebug()
	Debugf("hidden again")
	if len(lines) != 1 {
		t.Fatalf("Debugf logged after DisableDebug: %v", lines)
	}
}
