package instance

import "testing"

func TestIDPrefersConfiguredValue(t *testing.T) {
	t.Setenv(envWorkerID, "cron-a")
	if got := ID(); got != "cron-a" {
		t.Fatalf("expected configured id, got %q", got)
	}
}

func TestIDFallsBack(t *testing.T) {
	t.Setenv(envWorkerID, "")
	if ID() == "" {
		t.Fatal("expected a non-empty fallback id")
	}
}
