package vision

import (
	"image"

	"cardscan/internal/cards"
	"cardscan/internal/config"
)

const (
	defaultMaxFeatures = 1000
	defaultRatio       = 0.75
	defaultThresholdPx = 5.0
)

// Verifier computes geometric agreement between a query image and candidate
// reference images.
type Verifier struct {
	maxFeatures int
	ratio       float64
	threshold   float64
}

// NewVerifier builds a verifier from matcher configuration, substituting
// the standard feature budget, ratio, and reprojection threshold for unset
// values.
func NewVerifier(cfg config.Matcher) *Verifier {
	v := &Verifier{
		maxFeatures: cfg.MaxFeatures,
		ratio:       cfg.RatioTest,
		threshold:   cfg.RANSACThresholdPx,
	}
	if v.maxFeatures <= 0 {
		v.maxFeatures = defaultMaxFeatures
	}
	if v.ratio <= 0 {
		v.ratio = defaultRatio
	}
	if v.threshold <= 0 {
		v.threshold = defaultThresholdPx
	}
	return v
}

// features bundles one image's keypoints and descriptors.
type features struct {
	keypoints   []Keypoint
	descriptors []Descriptor
}

func (v *Verifier) extract(img *image.Gray) features {
	keypoints := DetectKeypoints(img, v.maxFeatures)
	return features{keypoints: keypoints, descriptors: ComputeDescriptors(img, keypoints)}
}

// CountInliers reports how many keypoint correspondences between the two
// images agree with a single planar homography. With fewer than eight
// ratio-test survivors the raw survivor count is returned instead; too few
// points for a reliable fit.
func (v *Verifier) CountInliers(query, candidate *image.Gray) int {
	return v.verify(v.extract(query), candidate)
}

func (v *Verifier) verify(queryFeatures features, candidate *image.Gray) int {
	candidateFeatures := v.extract(candidate)
	matches := matchDescriptors(queryFeatures.descriptors, candidateFeatures.descriptors, v.ratio)
	if len(matches) < minHomographyMatches {
		return len(matches)
	}

	src := make([]point, len(matches))
	dst := make([]point, len(matches))
	for i, m := range matches {
		qk := queryFeatures.keypoints[m.query]
		tk := candidateFeatures.keypoints[m.train]
		src[i] = point{x: float64(qk.X), y: float64(qk.Y)}
		dst[i] = point{x: float64(tk.X), y: float64(tk.Y)}
	}
	return ransacInliers(src, dst, v.threshold)
}

// Rerank evaluates the first topK candidates (callers pass them ordered by
// ascending embedding distance) and returns the one with the most inliers.
// Unreadable reference images are skipped; when every candidate fails to
// load the result is ("", -1), the no-evidence sentinel. Ties keep the
// earlier, embedding-closer candidate.
func (v *Verifier) Rerank(query *image.Gray, candidates []cards.VisualCandidate, topK int) (string, int) {
	if topK > len(candidates) {
		topK = len(candidates)
	}
	bestID := ""
	bestInliers := -1
	if topK <= 0 {
		return bestID, bestInliers
	}

	queryFeatures := v.extract(query)
	for _, candidate := range candidates[:topK] {
		img, err := Load(candidate.ImagePath)
		if err != nil {
			continue
		}
		if inliers := v.verify(queryFeatures, img); inliers > bestInliers {
			bestID = candidate.CardID
			bestInliers = inliers
		}
	}
	return bestID, bestInliers
}
