package match_test

import (
	"math"
	"testing"

	"cardscan/internal/config"
	"cardscan/internal/match"
)

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestConfidencePerfectMatch(t *testing.T) {
	if got := match.Confidence(0, 60); !approx(got, 1) {
		t.Fatalf("Confidence(0, 60) = %f, want 1", got)
	}
}

func TestConfidenceWeightsComponents(t *testing.T) {
	if got, want := match.Confidence(0.2, 45), 0.6*0.8+0.4*0.75; !approx(got, want) {
		t.Fatalf("Confidence(0.2, 45) = %f, want %f", got, want)
	}
	if got, want := match.Confidence(0.8, 10), 0.6*0.2+0.4*(10.0/60.0); !approx(got, want) {
		t.Fatalf("Confidence(0.8, 10) = %f, want %f", got, want)
	}
}

func TestConfidenceFloorsDistanceTerm(t *testing.T) {
	if got := match.Confidence(1, 0); !approx(got, 0) {
		t.Fatalf("Confidence(1, 0) = %f, want 0", got)
	}
	// Cosine distance can reach 2; the visual term never goes negative.
	if got := match.Confidence(1.5, 30); !approx(got, 0.2) {
		t.Fatalf("Confidence(1.5, 30) = %f, want 0.2", got)
	}
}

func TestConfidenceSaturatesInliers(t *testing.T) {
	if got := match.Confidence(0, 100); !approx(got, 1) {
		t.Fatalf("Confidence(0, 100) = %f, want 1", got)
	}
	if a, b := match.Confidence(0.4, 60), match.Confidence(0.4, 200); !approx(a, b) {
		t.Fatalf("confidence kept growing past saturation: %f then %f", a, b)
	}
}

func TestConfidenceMonotonic(t *testing.T) {
	prev := -1.0
	for inliers := 0; inliers <= 80; inliers += 5 {
		got := match.Confidence(0.3, inliers)
		if got < prev {
			t.Fatalf("confidence decreased at %d inliers: %f < %f", inliers, got, prev)
		}
		prev = got
	}

	prev = 2.0
	for distance := 0.0; distance <= 1.0; distance += 0.1 {
		got := match.Confidence(distance, 30)
		if got > prev {
			t.Fatalf("confidence increased at distance %f: %f > %f", distance, got, prev)
		}
		prev = got
	}
}

func TestDecideBoundaries(t *testing.T) {
	scorer := match.NewScorer(config.Matcher{AcceptConfidence: 0.85, ReviewConfidence: 0.70})

	cases := []struct {
		confidence float64
		want       match.Decision
	}{
		{0.95, match.Accept},
		{0.85, match.Accept},
		{0.8499, match.Review},
		{0.70, match.Review},
		{0.6999, match.Reject},
		{0, match.Reject},
	}
	for _, c := range cases {
		if got := scorer.Decide(c.confidence); got != c.want {
			t.Fatalf("Decide(%f) = %s, want %s", c.confidence, got, c.want)
		}
	}
}

func TestNewScorerDefaults(t *testing.T) {
	scorer := match.NewScorer(config.Matcher{})

	if got := scorer.Decide(0.85); got != match.Accept {
		t.Fatalf("Decide(0.85) = %s, want accept", got)
	}
	if got := scorer.Decide(0.70); got != match.Review {
		t.Fatalf("Decide(0.70) = %s, want review", got)
	}
	if got := scorer.Decide(0.69); got != match.Reject {
		t.Fatalf("Decide(0.69) = %s, want reject", got)
	}
}

func TestDecisionString(t *testing.T) {
	if match.Accept.String() != "accept" || match.Review.String() != "review" || match.Reject.String() != "reject" {
		t.Fatalf("unexpected decision names: %s %s %s", match.Accept, match.Review, match.Reject)
	}
}
