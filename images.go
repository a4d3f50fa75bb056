package relief

import (
	"fmt"
	"image"
	"io/fs"

	"github.com/themisreit/relief/internal/texture"
)

// BakeCount is the number of directionally lit photographs in a set.
const BakeCount = 6

// SixImageSet holds the decoded source images: six bakes of the same
// object lit from different directions, plus a surface-detail image.
// A nil entry marks an image that failed to load. The set is read-only
// once loaded and may be shared by several sessions.
type SixImageSet struct {
	Bakes   [BakeCount]*texture.Texture
	Plaster *texture.Texture
}

// BakeName returns the asset name of bake i (0-based), "bake1".."bake6".
func BakeName(i int) string {
	return fmt.Sprintf("bake%d", i+1)
}

// PlasterName is the asset name of the surface-detail image.
const PlasterName = "plaster"

// LoadSixImageSet decodes bake1..bake6 and plaster from fsys, with any
// supported extension. Images larger than maxDim are downsampled to fit.
//
// A missing or undecodable image leaves its slot nil and is logged at Warn;
// the compositor renders what remains. The returned count is the number
// of bakes that loaded.
func LoadSixImageSet(fsys fs.FS, maxDim int) (*SixImageSet, int) {
	set := &SixImageSet{}
	loaded := 0
	for i := range set.Bakes {
		t, err := texture.Open(fsys, BakeName(i), maxDim)
		if err != nil {
			Logger().Warn("relief: bake unavailable", "name", BakeName(i), "err", err)
			continue
		}
		set.Bakes[i] = t
		loaded++
	}

	t, err := texture.Open(fsys, PlasterName, maxDim)
	if err != nil {
		Logger().Warn("relief: plaster unavailable", "err", err)
	} else {
		set.Plaster = t
	}

	Logger().Debug("relief: image set loaded", "bakes", loaded, "plaster", set.Plaster != nil, "maxDim", maxDim)
	return set, loaded
}

// NewSixImageSet builds a set from already decoded images, downsampling
// each to fit maxDim. Nil images leave their slot empty.
func NewSixImageSet(bakes [BakeCount]image.Image, plaster image.Image, maxDim int) *SixImageSet {
	set := &SixImageSet{}
	for i, img := range bakes {
		if img != nil {
			set.Bakes[i] = texture.FromImage(img, maxDim)
		}
	}
	if plaster != nil {
		set.Plaster = texture.FromImage(plaster, maxDim)
	}
	return set
}

// MaxDimension returns the longest side over all present images.
func (s *SixImageSet) MaxDimension() int {
	if s == nil {
		return 0
	}
	m := 0
	for _, t := range s.all() {
		if !t.Empty() {
			m = max(m, t.Width(), t.Height())
		}
	}
	return m
}

// FitWithin downsamples every image whose side exceeds maxDim and returns
// how many were resampled. Sessions sharing the set must not be rendering.
func (s *SixImageSet) FitWithin(maxDim int) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, t := range s.all() {
		if t.Fit(maxDim) {
			n++
		}
	}
	return n
}

func (s *SixImageSet) all() []*texture.Texture {
	return append(s.Bakes[:BakeCount:BakeCount], s.Plaster)
}

// Loaded reports how many bakes are present.
func (s *SixImageSet) Loaded() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, b := range s.Bakes {
		if !b.Empty() {
			n++
		}
	}
	return n
}

// Release drops the pixel storage of every image.
func (s *SixImageSet) Release() {
	if s == nil {
		return
	}
	for i, b := range s.Bakes {
		if b != nil {
			b.Release()
			s.Bakes[i] = nil
		}
	}
	if s.Plaster != nil {
		s.Plaster.Release()
		s.Plaster = nil
	}
}
