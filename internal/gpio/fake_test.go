package gpio

import (
	"errors"
	"testing"
)

func TestFakeDriverConfigureStartsLow(t *testing.T) {
	f := NewFakeDriver()

	if err := f.ConfigureOutput(13); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.ReadLevel(13); got != Low {
		t.Errorf("expected LOW after configure, got %s", got)
	}
	if len(f.Configured) != 1 || f.Configured[0] != 13 {
		t.Errorf("expected Configured=[13], got %v", f.Configured)
	}
}

func TestFakeDriverWriteCountsToggles(t *testing.T) {
	f := NewFakeDriver()
	f.ConfigureOutput(5)

	f.WriteLevel(5, High)
	f.WriteLevel(5, High) // same level, not a toggle
	f.WriteLevel(5, Low)

	if got := f.Toggles(5); got != 2 {
		t.Errorf("expected 2 toggles, got %d", got)
	}
	if got := f.WriteCount(); got != 3 {
		t.Errorf("expected 3 writes, got %d", got)
	}
	if got := f.Level(5); got != Low {
		t.Errorf("expected LOW, got %s", got)
	}
}

func TestFakeDriverUnconfiguredPin(t *testing.T) {
	f := NewFakeDriver()

	f.WriteLevel(9, High)
	if err := f.LastError(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if got := f.WriteCount(); got != 0 {
		t.Errorf("write to unconfigured pin should not be recorded, got %d", got)
	}
	if err := f.LastError(); err != nil {
		t.Errorf("LastError should clear, got %v", err)
	}
}

func TestFakeDriverConfigureError(t *testing.T) {
	f := NewFakeDriver()
	f.ConfigureError = errors.New("simulated error")

	err := f.ConfigureOutput(1)
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
	if len(f.Configured) != 0 {
		t.Errorf("expected no configured pins, got %v", f.Configured)
	}
}

func TestFakeDriverClose(t *testing.T) {
	f := NewFakeDriver()

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
	if err := f.Close(); err == nil {
		t.Error("expected error on second Close()")
	}
}

func TestFakeDriverReset(t *testing.T) {
	f := NewFakeDriver()
	f.ConfigureOutput(2)
	f.WriteLevel(2, High)

	f.Reset()

	if len(f.Configured) != 0 || f.WriteCount() != 0 || f.Toggles(2) != 0 {
		t.Error("expected empty state after Reset")
	}
}

func TestLevelInvert(t *testing.T) {
	if Low.Invert() != High {
		t.Error("Low.Invert() should be High")
	}
	if High.Invert() != Low {
		t.Error("High.Invert() should be Low")
	}
	if High.String() != "HIGH" || Low.String() != "LOW" {
		t.Errorf("unexpected strings %q %q", High.String(), Low.String())
	}
}
