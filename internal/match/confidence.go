// Package match fuses visual-index distance and geometric inlier evidence
// into a single confidence and maps it onto the accept/review/reject policy.
package match

import "cardscan/internal/config"

// inlierSaturation is the inlier count at which geometric evidence stops
// adding confidence. Sixty consistent correspondences already indicate a
// near-certain physical match at the working image size.
const inlierSaturation = 60

const (
	distanceWeight = 0.6
	inlierWeight   = 0.4
)

// Confidence fuses cosine distance and inlier count into [0,1]. Pure; the
// result is always recomputed from its inputs and never persisted alone.
func Confidence(distance float64, inliers int) float64 {
	visual := max(0, 1-distance)
	geometric := min(1, float64(inliers)/inlierSaturation)
	return distanceWeight*visual + inlierWeight*geometric
}

// Decision classifies a fused confidence against the configured thresholds.
type Decision int

const (
	Reject Decision = iota
	Review
	Accept
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Review:
		return "review"
	default:
		return "reject"
	}
}

// Scorer applies the configured confidence thresholds to fused scores.
type Scorer struct {
	accept float64
	review float64
}

// NewScorer builds a scorer from matcher configuration, falling back to the
// default thresholds when unset.
func NewScorer(cfg config.Matcher) Scorer {
	accept := cfg.AcceptConfidence
	if accept <= 0 {
		accept = 0.85
	}
	review := cfg.ReviewConfidence
	if review <= 0 {
		review = 0.70
	}
	return Scorer{accept: accept, review: review}
}

// Decide maps a confidence onto the three-way decision. Accept requires
// meeting the accept threshold; the band below it down to the review
// threshold asks for manual review; everything else rejects.
func (s Scorer) Decide(confidence float64) Decision {
	switch {
	case confidence >= s.accept:
		return Accept
	case confidence >= s.review:
		return Review
	default:
		return Reject
	}
}
