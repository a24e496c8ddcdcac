package verifier

import (
	"bytes"
	"image"
	"sync"

	"github.com/corona10/goimagehash"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// dedupFilter skips candidates perceptually identical to one the scorer has
// already rejected, saving the extraction cost. Safe for concurrent use.
type dedupFilter struct {
	mu       sync.Mutex
	distance int
	hashes   []*goimagehash.ImageHash
}

// newDedupFilter returns nil (a no-op filter) when distance is negative
func newDedupFilter(distance int) *dedupFilter {
	if distance < 0 {
		return nil
	}
	return &dedupFilter{distance: distance}
}

// seenRejected reports whether data is perceptually identical to an already
// rejected candidate. Hashing failures accept the candidate for full
// evaluation.
func (d *dedupFilter) seenRejected(data []byte) bool {
	if d == nil {
		return false
	}

	hash := hashImage(data)
	if hash == nil {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, seen := range d.hashes {
		dist, err := hash.Distance(seen)
		if err == nil && dist <= d.distance {
			return true
		}
	}

	return false
}

// remember records a rejected candidate for future duplicate checks
func (d *dedupFilter) remember(data []byte) {
	if d == nil {
		return
	}

	hash := hashImage(data)
	if hash == nil {
		return
	}

	d.mu.Lock()
	d.hashes = append(d.hashes, hash)
	d.mu.Unlock()
}

func hashImage(data []byte) *goimagehash.ImageHash {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return nil
	}

	return hash
}
