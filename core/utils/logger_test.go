package utils

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLoggerForEnvWritesJSONInProd(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLoggerForEnv("prod", &buf)
	lg.Printf("swept %d incidents", 3)
	out := buf.String()
	if !strings.Contains(out, `"msg":"swept 3 incidents"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
	lg.Debugf("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug line should be filtered in prod")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var lg *Logger
	lg.Printf("x")
	lg.Errorf("y")
	if lg.With("k", "v") != nil {
		t.Fatalf("expected nil logger from nil receiver")
	}
}

func TestManualClockAdvance(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewManualClock(start)
	c.Advance(90 * time.Minute)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("unexpected time %s", got)
	}
}
