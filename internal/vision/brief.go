package vision

import (
	"image"
	"math"
	"math/bits"
	"math/rand/v2"
)

const (
	// descriptorBits is the descriptor length.
	descriptorBits = 256
	// patternRadius bounds descriptor sample offsets around the keypoint.
	// Rotation preserves the radius, so rotated samples stay within the
	// border margin.
	patternRadius = 13
	// patternSeed fixes the sampling pattern. Both images of a pair must
	// sample identical point pairs for their descriptors to be comparable.
	patternSeed = 42
)

// Descriptor is a 256-bit binary descriptor packed into four words.
type Descriptor [4]uint64

// HammingDistance counts differing bits between two descriptors.
func (d Descriptor) HammingDistance(other Descriptor) int {
	return bits.OnesCount64(d[0]^other[0]) +
		bits.OnesCount64(d[1]^other[1]) +
		bits.OnesCount64(d[2]^other[2]) +
		bits.OnesCount64(d[3]^other[3])
}

// briefPattern holds the point pair compared per descriptor bit, drawn once
// from a seeded Gaussian.
var briefPattern = generatePattern()

func generatePattern() [descriptorBits][4]int {
	rng := rand.New(rand.NewPCG(patternSeed, patternSeed))
	sigma := float64(patternRadius) / 2
	var pattern [descriptorBits][4]int
	for i := range pattern {
		ax, ay := patternPoint(rng, sigma)
		bx, by := patternPoint(rng, sigma)
		pattern[i] = [4]int{ax, ay, bx, by}
	}
	return pattern
}

// patternPoint samples a Gaussian offset, rejecting points outside the
// pattern disk.
func patternPoint(rng *rand.Rand, sigma float64) (int, int) {
	for {
		x := int(math.Round(rng.NormFloat64() * sigma))
		y := int(math.Round(rng.NormFloat64() * sigma))
		if x*x+y*y <= patternRadius*patternRadius {
			return x, y
		}
	}
}

// ComputeDescriptors builds a steered descriptor per keypoint: every pattern
// pair is rotated by the keypoint angle before the intensity comparison, so
// descriptors of the same physical corner agree across card rotations.
func ComputeDescriptors(img *image.Gray, keypoints []Keypoint) []Descriptor {
	descriptors := make([]Descriptor, len(keypoints))
	for i, kp := range keypoints {
		sin, cos := math.Sincos(kp.Angle)
		var desc Descriptor
		for bit, pair := range briefPattern {
			ax, ay := rotateOffset(pair[0], pair[1], sin, cos)
			bx, by := rotateOffset(pair[2], pair[3], sin, cos)
			a := img.Pix[img.PixOffset(kp.X+ax, kp.Y+ay)]
			b := img.Pix[img.PixOffset(kp.X+bx, kp.Y+by)]
			if a < b {
				desc[bit/64] |= 1 << uint(bit%64)
			}
		}
		descriptors[i] = desc
	}
	return descriptors
}

// rotateOffset rotates a pattern offset, rounding to the pixel grid.
func rotateOffset(x, y int, sin, cos float64) (int, int) {
	fx := float64(x)
	fy := float64(y)
	return int(math.Round(fx*cos - fy*sin)), int(math.Round(fx*sin + fy*cos))
}
