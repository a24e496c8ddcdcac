package verifier

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listinglens/features"
)

// horizontalGradient encodes a left-to-right ramp; its difference hash has
// every horizontal-neighbor bit set
func horizontalGradient(t *testing.T) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 4)})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// verticalGradient encodes a top-to-bottom ramp; horizontal neighbors are
// equal, so its difference hash is maximally far from the horizontal ramp's
func verticalGradient(t *testing.T) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(y * 4)})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDedupFilterSkipsRepeatedRejects(t *testing.T) {
	imgBytes := horizontalGradient(t)

	acquirer := &fakeAcquirer{data: []byte("ref")}
	extractor := &fakeExtractor{sets: map[string]features.FeatureSet{
		"ref":            distinctSet(12),
		string(imgBytes): distinctSet(1), // rejected on match count
	}}

	var extractions int
	opts := defaultOptions()
	opts.DedupDistance = 0
	opts.OnExtract = func(string) { extractions++ }

	scorer := NewScorer(acquirer, extractor, opts)
	candidates := []Candidate{
		{Name: "a.jpg", Data: imgBytes},
		{Name: "a-copy.jpg", Data: imgBytes},
	}
	result := scorer.VerifyAuthenticity(context.Background(), candidates, 1, 2)

	assert.Equal(t, 40, result.Score)
	// The duplicate never reaches extraction
	assert.Equal(t, 1, extractions)
}

func TestDedupFilterIgnoresDistinctImages(t *testing.T) {
	first := horizontalGradient(t)
	second := verticalGradient(t)

	filter := newDedupFilter(0)
	filter.remember(first)

	assert.True(t, filter.seenRejected(first))
	assert.False(t, filter.seenRejected(second))
}

func TestDedupFilterDisabled(t *testing.T) {
	filter := newDedupFilter(-1)

	data := horizontalGradient(t)
	filter.remember(data)

	assert.False(t, filter.seenRejected(data))
}

func TestDedupFilterToleratesNonImageBytes(t *testing.T) {
	filter := newDedupFilter(0)

	filter.remember([]byte("not an image"))
	assert.False(t, filter.seenRejected([]byte("not an image")))
}
