package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestQuotaBar(t *testing.T) {
	tests := []struct {
		used, max int
		filled    int
		suffix    string
	}{
		{0, 5, 0, "0/5"},
		{2, 5, 8, "2/5"},
		{5, 5, 20, "5/5"},
		{7, 5, 20, "7/5"},
		{1, 0, 0, "1/0"},
	}

	for _, tt := range tests {
		got := QuotaBar(tt.used, tt.max)
		if n := strings.Count(got, ProgressBar); n != tt.filled {
			t.Errorf("QuotaBar(%d, %d) has %d filled cells, want %d", tt.used, tt.max, n, tt.filled)
		}
		if !strings.HasSuffix(got, tt.suffix) {
			t.Errorf("QuotaBar(%d, %d) = %q, want suffix %q", tt.used, tt.max, got, tt.suffix)
		}
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := map[time.Duration]string{
		-time.Second:                  "expired",
		0:                             "expired",
		42 * time.Second:              "42s",
		3*time.Minute + 5*time.Second: "3m05s",
		23*time.Hour + 59*time.Minute: "23h59m",
	}
	for d, want := range tests {
		if got := FormatRemaining(d); got != want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, "failed to load state", errors.New("boom"))
	if !strings.Contains(buf.String(), "failed to load state: boom") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
