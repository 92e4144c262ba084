package scan

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
)

// duplicateThreshold is the maximum Hamming distance between two dHash values
// below which page images are considered perceptually identical. Rescans of the
// same physical page differ by a few bits; distinct pages of the same title
// typically land far above this.
const duplicateThreshold = 6

// deduper remembers the perceptual hash of every page classified so far and
// matches new page images against them. Hashing failures degrade gracefully:
// the page is treated as unique and classified normally.
type deduper struct {
	hashes  []*goimagehash.ImageHash
	indexes []int
}

func newDeduper() *deduper {
	return &deduper{}
}

// match reports the result index of an earlier perceptually identical page.
func (d *deduper) match(data []byte) (int, bool) {
	hash := hashImage(data)
	if hash == nil {
		return 0, false
	}
	for i, h := range d.hashes {
		dist, err := hash.Distance(h)
		if err == nil && dist <= duplicateThreshold {
			return d.indexes[i], true
		}
	}
	return 0, false
}

// add records a classified page for future matching.
func (d *deduper) add(index int, data []byte) {
	hash := hashImage(data)
	if hash == nil {
		return
	}
	d.hashes = append(d.hashes, hash)
	d.indexes = append(d.indexes, index)
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
