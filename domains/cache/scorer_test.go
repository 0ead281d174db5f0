package cache

import (
	"math"
	"testing"
	"time"
)

func TestInitialScore(t *testing.T) {
	if got := InitialScore(10, 100); got != 0.1 {
		t.Errorf("expected 0.1, got %f", got)
	}
	if got := InitialScore(0, 100); got != 0 {
		t.Errorf("expected 0 for free computation, got %f", got)
	}
	if got := InitialScore(10, 0); got != 0 {
		t.Errorf("expected 0 for zero size, got %f", got)
	}
}

func TestAccessMultiplier(t *testing.T) {
	// half_life 1 doubles the value on every retrieval
	if got := AccessMultiplier(1); math.Abs(got-2) > 1e-12 {
		t.Errorf("expected 2, got %f", got)
	}
	// half_life 2 compounds by sqrt(2)
	if got := AccessMultiplier(2); math.Abs(got-math.Sqrt2) > 1e-12 {
		t.Errorf("expected sqrt(2), got %f", got)
	}
}

func TestBumpScoreHalfLifeTwo(t *testing.T) {
	// cost 10s, size 10 bytes, half_life 2: unit initial value, four
	// retrievals compound to 7 + 3*sqrt(2).
	score := InitialScore(10, 10)
	if score != 1 {
		t.Fatalf("expected initial score 1, got %f", score)
	}

	for i := 0; i < 4; i++ {
		score = BumpScore(score, 10, 10, 2)
	}

	expected := 7 + 3*math.Sqrt2
	if math.Abs(score-expected) > 1e-9 {
		t.Errorf("expected %f after four retrievals, got %f", expected, score)
	}
}

func TestBumpScoreRewardsRetrieval(t *testing.T) {
	// A cheap result retrieved often must overtake an expensive one never
	// touched again.
	hot := InitialScore(1, 1000)
	cold := InitialScore(100, 1000)

	for i := 0; i < 50; i++ {
		hot = BumpScore(hot, 1, 1000, 10)
	}

	if hot <= cold {
		t.Errorf("expected hot entry (%f) to outrank cold entry (%f)", hot, cold)
	}
}

func TestProtected(t *testing.T) {
	now := time.Now().UTC()

	e := &CacheEntry{ProtectedUntil: now.Add(time.Hour)}
	if !e.Protected(now) {
		t.Error("entry inside protected period should be protected")
	}

	e.ProtectedUntil = now.Add(-time.Second)
	if e.Protected(now) {
		t.Error("entry past protected period should not be protected")
	}
}
