package vision

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// maxWorkingSide bounds the longest image side before feature detection.
// Keypoint coordinates and the reprojection threshold are in this working
// space.
const maxWorkingSide = 1024

// Load reads and decodes an image file and prepares it for verification.
func Load(path string) (*image.Gray, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return Prepare(img), nil
}

// Prepare converts an image to grayscale and scales it down so the longest
// side is at most maxWorkingSide. Images already within bounds keep their
// pixels untouched.
func Prepare(img image.Image) *image.Gray {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return image.NewGray(image.Rect(0, 0, 0, 0))
	}

	targetWidth, targetHeight := width, height
	if longest := max(width, height); longest > maxWorkingSide {
		scale := float64(maxWorkingSide) / float64(longest)
		targetWidth = max(1, int(float64(width)*scale+0.5))
		targetHeight = max(1, int(float64(height)*scale+0.5))
	}

	gray := image.NewGray(image.Rect(0, 0, targetWidth, targetHeight))
	if targetWidth == width && targetHeight == height {
		draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, bounds, draw.Src, nil)
	}
	return gray
}
