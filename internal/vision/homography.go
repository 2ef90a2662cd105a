package vision

import (
	"math"
	"math/rand/v2"
)

const (
	// minHomographyMatches gates homography fitting; fewer correspondences
	// return the raw match count instead.
	minHomographyMatches = 8
	// ransacIterations bounds the sampling loop.
	ransacIterations = 500
	// ransacSeed keeps inlier counts reproducible for identical inputs.
	ransacSeed = 7
)

// point is one correspondence endpoint in working-space pixels.
type point struct {
	x, y float64
}

// homography is a row-major 3x3 projective transform.
type homography [9]float64

// apply maps p through the transform. ok is false when p lands too close to
// the plane at infinity to divide through.
func (h homography) apply(p point) (point, bool) {
	w := h[6]*p.x + h[7]*p.y + h[8]
	if math.Abs(w) < 1e-12 {
		return point{}, false
	}
	return point{
		x: (h[0]*p.x + h[1]*p.y + h[2]) / w,
		y: (h[3]*p.x + h[4]*p.y + h[5]) / w,
	}, true
}

func (h homography) mul(o homography) homography {
	var out homography
	for r := range 3 {
		for c := range 3 {
			sum := 0.0
			for k := range 3 {
				sum += h[r*3+k] * o[k*3+c]
			}
			out[r*3+c] = sum
		}
	}
	return out
}

// normalizeTransform returns the similarity transform moving a point set's
// centroid to the origin with mean distance sqrt(2). Conditioning the DLT
// system this way keeps pixel-scale coordinates from swamping the solve.
func normalizeTransform(pts []point) homography {
	n := float64(len(pts))
	var cx, cy float64
	for _, p := range pts {
		cx += p.x
		cy += p.y
	}
	cx /= n
	cy /= n

	var meanDist float64
	for _, p := range pts {
		meanDist += math.Hypot(p.x-cx, p.y-cy)
	}
	meanDist /= n

	scale := 1.0
	if meanDist > 1e-12 {
		scale = math.Sqrt2 / meanDist
	}
	return homography{scale, 0, -scale * cx, 0, scale, -scale * cy, 0, 0, 1}
}

// invertSimilarity inverts a transform produced by normalizeTransform.
func invertSimilarity(t homography) homography {
	s := t[0]
	return homography{1 / s, 0, -t[2] / s, 0, 1 / s, -t[5] / s, 0, 0, 1}
}

// homographyFromSample fits an exact homography to four correspondences via
// the normalized direct linear transform. ok is false for degenerate
// samples, collinear points among them.
func homographyFromSample(src, dst []point, sample [4]int) (homography, bool) {
	var srcPts, dstPts [4]point
	for i, idx := range sample {
		srcPts[i] = src[idx]
		dstPts[i] = dst[idx]
	}
	tSrc := normalizeTransform(srcPts[:])
	tDst := normalizeTransform(dstPts[:])

	var a [8][9]float64
	for i := range 4 {
		s, _ := tSrc.apply(srcPts[i])
		d, _ := tDst.apply(dstPts[i])
		a[2*i] = [9]float64{s.x, s.y, 1, 0, 0, 0, -s.x * d.x, -s.y * d.x, -d.x}
		a[2*i+1] = [9]float64{0, 0, 0, s.x, s.y, 1, -s.x * d.y, -s.y * d.y, -d.y}
	}

	normalized, ok := solveDLT(a)
	if !ok {
		return homography{}, false
	}
	return invertSimilarity(tDst).mul(normalized).mul(tSrc), true
}

// solveDLT solves the stacked correspondence system with the last
// homography coefficient pinned to 1, using Gaussian elimination with
// partial pivoting. A vanishing pivot reports failure so RANSAC can skip
// the sample.
func solveDLT(a [8][9]float64) (homography, bool) {
	var m [8][9]float64
	for i := range 8 {
		for j := range 8 {
			m[i][j] = a[i][j]
		}
		m[i][8] = -a[i][8]
	}

	for col := range 8 {
		pivot := col
		for row := col + 1; row < 8; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(m[pivot][col]) < 1e-10 {
			return homography{}, false
		}
		m[col], m[pivot] = m[pivot], m[col]
		for row := col + 1; row < 8; row++ {
			factor := m[row][col] / m[col][col]
			for j := col; j <= 8; j++ {
				m[row][j] -= factor * m[col][j]
			}
		}
	}

	var h homography
	h[8] = 1
	for col := 7; col >= 0; col-- {
		sum := m[col][8]
		for j := col + 1; j < 8; j++ {
			sum -= m[col][j] * h[j]
		}
		h[col] = sum / m[col][col]
	}
	return h, true
}

// ransacInliers fits homographies to random four-point samples and returns
// the best count of correspondences whose reprojection error stays within
// the threshold. When no sample yields a valid fit the raw correspondence
// count comes back, matching the verifier's few-matches fallback.
func ransacInliers(src, dst []point, threshold float64) int {
	if len(src) < 4 {
		return len(src)
	}
	rng := rand.New(rand.NewPCG(ransacSeed, ransacSeed))
	thresholdSq := threshold * threshold
	bestInliers := -1

	for range ransacIterations {
		sample := randomSample(rng, len(src))
		h, ok := homographyFromSample(src, dst, sample)
		if !ok {
			continue
		}
		inliers := 0
		for i := range src {
			projected, ok := h.apply(src[i])
			if !ok {
				continue
			}
			dx := projected.x - dst[i].x
			dy := projected.y - dst[i].y
			if dx*dx+dy*dy <= thresholdSq {
				inliers++
			}
		}
		if inliers > bestInliers {
			bestInliers = inliers
		}
	}

	if bestInliers < 0 {
		return len(src)
	}
	return bestInliers
}

// randomSample draws four distinct correspondence indices.
func randomSample(rng *rand.Rand, n int) [4]int {
	var sample [4]int
	picked := 0
	for picked < 4 {
		idx := rng.IntN(n)
		duplicate := false
		for i := range picked {
			if sample[i] == idx {
				duplicate = true
				break
			}
		}
		if !duplicate {
			sample[picked] = idx
			picked++
		}
	}
	return sample
}
