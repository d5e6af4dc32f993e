package mcp

import "testing"

func TestNegotiateVersionAcceptsSupportedVersion(t *testing.T) {
	got := NegotiateVersion("2025-03-26")
	if got != "2025-03-26" {
		t.Fatalf("expected exact match echoed back, got %s", got)
	}
}

func TestNegotiateVersionFallsBackToLatest(t *testing.T) {
	got := NegotiateVersion("1999-01-01")
	if got != LatestProtocolVersion {
		t.Fatalf("expected fallback to latest, got %s", got)
	}
}

func TestLoggingLevelAllows(t *testing.T) {
	cases := []struct {
		min, msg LoggingLevel
		want     bool
	}{
		{LogWarning, LogDebug, false},
		{LogWarning, LogWarning, true},
		{LogWarning, LogEmergency, true},
		{LogDebug, LogDebug, true},
		{LogEmergency, LogCritical, false},
	}
	for _, c := range cases {
		if got := c.min.Allows(c.msg); got != c.want {
			t.Errorf("%s.Allows(%s) = %v, want %v", c.min, c.msg, got, c.want)
		}
	}
}
