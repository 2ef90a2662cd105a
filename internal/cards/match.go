package cards

// VisualCandidate is one hit from a visual index query. Distance is cosine
// distance in [0,2]; 0 means identical direction. Name and ImagePath come
// from the index metadata so the verifier can load the reference image
// without a catalog round trip.
type VisualCandidate struct {
	CardID    string
	Name      string
	ImagePath string
	Distance  float64
}

// MatchResult is the fused outcome of visual and geometric evidence for one
// candidate. Confidence is always derived from Distance and Inliers by the
// scorer; callers never set it directly.
type MatchResult struct {
	CardID     string
	Distance   float64
	Inliers    int
	Confidence float64
}
