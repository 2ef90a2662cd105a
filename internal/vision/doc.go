// Package vision implements the geometric verifier in pure Go: FAST corner
// detection, steered binary descriptors, ratio-test matching, and RANSAC
// homography fitting. Inlier counts measure how well two card images agree
// under a single planar transform, which is the evidence the confidence
// scorer fuses with embedding distance.
package vision
