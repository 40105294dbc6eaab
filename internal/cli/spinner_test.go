package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestSpinner_NonTerminalPrintsOnce(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner("Waiting for approval...").SetWriter(&buf)
	s.colorize = false

	s.Start()
	s.Start() // second start is a no-op
	s.Success("Approved.")

	out := buf.String()
	if strings.Count(out, "Waiting for approval...") != 1 {
		t.Fatalf("prefix should print exactly once, got %q", out)
	}
	if !strings.Contains(out, "✓ Approved.") {
		t.Fatalf("missing success line in %q", out)
	}
}

func TestSpinner_FailMark(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner("Broadcasting...").SetWriter(&buf)
	s.colorize = false

	s.Start()
	s.Fail("Rejected by ledger.")

	if !strings.Contains(buf.String(), "✗ Rejected by ledger.") {
		t.Fatalf("missing failure line in %q", buf.String())
	}
}

func TestSpinner_StopIdempotent(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner("x").SetWriter(&buf)
	s.colorize = false

	s.Start()
	s.Stop()
	s.Stop()
}
