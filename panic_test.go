package taskz

import (
	"strings"
	"testing"
)

func TestPanicError(t *testing.T) {
	t.Run("ErrorMessageIncludesRecoveredValue", func(t *testing.T) {
		pe := &PanicError{Recovered: "kaboom"}
		if !strings.Contains(pe.Error(), "kaboom") {
			t.Errorf("expected recovered value in message, got %q", pe.Error())
		}
	})
}

func TestRecoverTask(t *testing.T) {
	t.Run("CapturesPanicIntoError", func(t *testing.T) {
		var err error
		func() {
			defer recoverTask("test-task", &err)
			panic("oh no")
		}()

		if err == nil {
			t.Fatal("expected recoverTask to capture the panic as an error")
		}
		var pe *PanicError
		if pe, _ = err.(*PanicError); pe == nil {
			t.Fatalf("expected a *PanicError, got %T", err)
		}
		if pe.Recovered != "oh no" {
			t.Errorf("expected recovered value 'oh no', got %v", pe.Recovered)
		}
	})

	t.Run("NoPanicLeavesErrorNil", func(t *testing.T) {
		var err error
		func() {
			defer recoverTask("test-task", &err)
		}()

		if err != nil {
			t.Errorf("expected nil error when no panic occurred, got %v", err)
		}
	})
}
