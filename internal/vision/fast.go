package vision

import (
	"image"
	"math"
	"sort"
)

const (
	// fastThreshold is the minimum contrast between the center pixel and a
	// contiguous circle arc for a corner to register.
	fastThreshold = 20
	// fastArc is the contiguous run length required by the segment test.
	fastArc = 9
	// borderMargin keeps every sampling stage (segment-test circle,
	// orientation patch, rotated descriptor pattern) inside the raster.
	borderMargin = 16
	// centroidRadius bounds the intensity-centroid orientation patch.
	centroidRadius = 7
)

// Keypoint is one oriented corner in working-space pixel coordinates.
type Keypoint struct {
	X, Y  int
	Score int
	Angle float64
}

// circleOffsets traces the 16-pixel Bresenham circle of radius 3 used by
// the segment test, clockwise from 12 o'clock.
var circleOffsets = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// compassIndices are the four cardinal circle positions used for the cheap
// rejection test before the full segment test runs.
var compassIndices = [4]int{0, 4, 8, 12}

// DetectKeypoints runs the FAST-9 segment test with non-max suppression and
// returns up to maxFeatures corners ordered by strength, each carrying an
// intensity-centroid orientation.
func DetectKeypoints(img *image.Gray, maxFeatures int) []Keypoint {
	width := img.Rect.Dx()
	height := img.Rect.Dy()
	if maxFeatures <= 0 || width <= 2*borderMargin || height <= 2*borderMargin {
		return nil
	}

	scores := make([]int, width*height)
	var raw []Keypoint
	for y := borderMargin; y < height-borderMargin; y++ {
		for x := borderMargin; x < width-borderMargin; x++ {
			score := cornerScore(img, x, y)
			if score <= 0 {
				continue
			}
			scores[y*width+x] = score
			raw = append(raw, Keypoint{X: x, Y: y, Score: score})
		}
	}

	kept := raw[:0]
	for _, kp := range raw {
		if localMaximum(scores, width, kp) {
			kept = append(kept, kp)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		if kept[i].Y != kept[j].Y {
			return kept[i].Y < kept[j].Y
		}
		return kept[i].X < kept[j].X
	})
	if len(kept) > maxFeatures {
		kept = kept[:maxFeatures]
	}

	for i := range kept {
		kept[i].Angle = orientation(img, kept[i].X, kept[i].Y)
	}
	return kept
}

// cornerScore runs the segment test at (x, y). The score is the contrast
// beyond the threshold summed over the circle, or 0 when the pixel is not a
// corner.
func cornerScore(img *image.Gray, x, y int) int {
	center := int(img.Pix[img.PixOffset(x, y)])
	bright := center + fastThreshold
	dark := center - fastThreshold

	// At least two cardinal pixels must clear the threshold for any
	// nine-long arc to exist.
	brightCount, darkCount := 0, 0
	for _, i := range compassIndices {
		offset := circleOffsets[i]
		v := int(img.Pix[img.PixOffset(x+offset[0], y+offset[1])])
		if v >= bright {
			brightCount++
		} else if v <= dark {
			darkCount++
		}
	}
	if brightCount < 2 && darkCount < 2 {
		return 0
	}

	var flags [16]int8
	var values [16]int
	for i, offset := range circleOffsets {
		v := int(img.Pix[img.PixOffset(x+offset[0], y+offset[1])])
		values[i] = v
		if v >= bright {
			flags[i] = 1
		} else if v <= dark {
			flags[i] = -1
		}
	}
	if !hasContiguousRun(flags, 1) && !hasContiguousRun(flags, -1) {
		return 0
	}

	score := 0
	for _, v := range values {
		if diff := abs(v-center) - fastThreshold; diff > 0 {
			score += diff
		}
	}
	return score
}

// hasContiguousRun reports whether the circle contains fastArc consecutive
// pixels of the given class, wrapping around the seam.
func hasContiguousRun(flags [16]int8, class int8) bool {
	run := 0
	for i := 0; i < len(flags)+fastArc-1; i++ {
		if flags[i%len(flags)] == class {
			run++
			if run >= fastArc {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// localMaximum suppresses corners whose 3x3 neighborhood holds a stronger
// score. Equal scores keep the scan-order-first corner.
func localMaximum(scores []int, width int, kp Keypoint) bool {
	idx := kp.Y*width + kp.X
	score := scores[idx]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			neighbor := scores[idx+dy*width+dx]
			if neighbor > score {
				return false
			}
			if neighbor == score && (dy < 0 || (dy == 0 && dx < 0)) {
				return false
			}
		}
	}
	return true
}

// orientation returns the intensity-centroid angle of the circular patch
// around (x, y). Rotating the card rotates this angle with it, which is what
// lets the descriptor sampling pattern steer.
func orientation(img *image.Gray, x, y int) float64 {
	var m10, m01 int
	for dy := -centroidRadius; dy <= centroidRadius; dy++ {
		for dx := -centroidRadius; dx <= centroidRadius; dx++ {
			if dx*dx+dy*dy > centroidRadius*centroidRadius {
				continue
			}
			v := int(img.Pix[img.PixOffset(x+dx, y+dy)])
			m10 += dx * v
			m01 += dy * v
		}
	}
	return math.Atan2(float64(m01), float64(m10))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
