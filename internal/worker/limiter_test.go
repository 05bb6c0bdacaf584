package worker

import (
	"context"
	"testing"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected burst 1 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://sos.la.gov/elections"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "https://vote.org/la"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_PerDomainBudget(t *testing.T) {
	// 1 rps, burst 1: a second request to the same domain exhausts it,
	// other domains are unaffected.
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://sos.la.gov/elections"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
	if limiter.Allow("https://sos.la.gov/elections") {
		t.Error("expected exhausted budget for sos.la.gov")
	}
	if !limiter.Allow("https://vote.org/la") {
		t.Error("expected fresh budget for vote.org")
	}
}

func TestExtractDomain(t *testing.T) {
	domain, err := extractDomain("https://sos.la.gov/elections")
	if err != nil {
		t.Fatalf("extractDomain failed: %v", err)
	}
	if domain != "sos.la.gov" {
		t.Errorf("expected sos.la.gov, got %s", domain)
	}

	if _, err := extractDomain("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
