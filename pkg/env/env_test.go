package env

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("RECRUITMENT_TEST_VALUE", "  ")
	if got := Get("RECRUITMENT_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("blank value should use fallback, got %q", got)
	}
	t.Setenv("RECRUITMENT_TEST_VALUE", "set")
	if got := Get("RECRUITMENT_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("expected set, got %q", got)
	}
}

func TestFirstPrefersEarlierKeys(t *testing.T) {
	t.Setenv("RECRUITMENT_TEST_A", "")
	t.Setenv("RECRUITMENT_TEST_B", "b")
	if got := First("none", "RECRUITMENT_TEST_A", "RECRUITMENT_TEST_B"); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	t.Setenv("RECRUITMENT_TEST_A", "a")
	if got := First("none", "RECRUITMENT_TEST_A", "RECRUITMENT_TEST_B"); got != "a" {
		t.Fatalf("expected a, got %q", got)
	}
	if got := First("none"); got != "none" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
