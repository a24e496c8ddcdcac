package features

import (
	"fmt"

	"gocv.io/x/gocv"
)

// DescriptorLength is the fixed descriptor size in bytes (256 bits)
const DescriptorLength = 32

// Keypoint is a distinctive, repeatably locatable point in an image
type Keypoint struct {
	X        float64
	Y        float64
	Size     float64
	Angle    float64
	Response float64
}

// Descriptor is a fixed-length binary signature of the local appearance
// around one keypoint, compared via Hamming distance
type Descriptor []byte

// Feature pairs a keypoint with its descriptor
type Feature struct {
	Keypoint   Keypoint
	Descriptor Descriptor
}

// FeatureSet is the ordered sequence of features extracted from one image.
// An empty set is a valid result meaning the image has no distinctive regions.
type FeatureSet []Feature

// DecodeError means an image's bytes could not be parsed as an image.
// It is local to one candidate and never aborts a whole verification batch.
type DecodeError struct {
	Source string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode image %s: %s", e.Source, e.Reason)
}

// Extractor converts images into feature sets using ORB detection: keypoints
// ranked by corner response and capped, orientation from the local intensity
// centroid, one 256-bit binary descriptor per retained keypoint.
type Extractor struct {
	maxKeypoints int
}

// NewExtractor creates an extractor retaining at most maxKeypoints per image
func NewExtractor(maxKeypoints int) *Extractor {
	if maxKeypoints < 1 {
		maxKeypoints = 1
	}
	return &Extractor{maxKeypoints: maxKeypoints}
}

// Extract computes the feature set of a decoded grayscale image.
// Returns an empty set, never an error, when no distinctive regions exist.
// Deterministic: identical input pixels yield identical feature sets.
func (e *Extractor) Extract(img gocv.Mat) FeatureSet {
	if img.Empty() {
		return FeatureSet{}
	}

	orb := gocv.NewORBWithParams(e.maxKeypoints, 1.2, 8, 31, 0, 2, gocv.ORBScoreTypeHarris, 31, 20)
	defer orb.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	keypoints, descriptors := orb.DetectAndCompute(img, mask)
	defer descriptors.Close()

	if descriptors.Empty() || descriptors.Rows() == 0 {
		return FeatureSet{}
	}

	// Copy descriptors out of the Mat so the rest of the pipeline is CGo-free
	width := descriptors.Cols()
	data := descriptors.ToBytes()

	count := descriptors.Rows()
	if count > len(keypoints) {
		count = len(keypoints)
	}

	set := make(FeatureSet, 0, count)
	for i := 0; i < count; i++ {
		desc := make(Descriptor, width)
		copy(desc, data[i*width:(i+1)*width])

		kp := keypoints[i]
		set = append(set, Feature{
			Keypoint: Keypoint{
				X:        kp.X,
				Y:        kp.Y,
				Size:     kp.Size,
				Angle:    kp.Angle,
				Response: kp.Response,
			},
			Descriptor: desc,
		})
	}

	return set
}

// FromBytes decodes raw image bytes in grayscale and extracts its features
func (e *Extractor) FromBytes(data []byte) (FeatureSet, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Source: "bytes", Reason: "empty input"}
	}

	// Close the Mat on every failure path too; IMDecode allocates a header
	// even when the bytes are not a decodable image
	img, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil {
		img.Close()
		return nil, &DecodeError{Source: "bytes", Reason: err.Error()}
	}
	defer img.Close()

	if img.Empty() {
		return nil, &DecodeError{Source: "bytes", Reason: "unrecognized image format"}
	}

	return e.Extract(img), nil
}

// FromFile loads an image from disk in grayscale and extracts its features
func (e *Extractor) FromFile(path string) (FeatureSet, error) {
	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	defer img.Close()

	if img.Empty() {
		return nil, &DecodeError{Source: path, Reason: "failed to load image"}
	}

	return e.Extract(img), nil
}
