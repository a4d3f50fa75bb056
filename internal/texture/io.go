package texture

import (
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"path"
	"strings"

	// Decoders registered with image.Decode.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNotFound is returned when no file with a supported extension exists
// for the requested asset name.
var ErrNotFound = errors.New("texture: asset not found")

// Extensions lists the file extensions Open tries, in order.
var Extensions = []string{".png", ".jpg", ".jpeg", ".webp", ".bmp", ".tif", ".tiff"}

// Decode decodes an image from r and converts it to a texture limited to maxDim.
func Decode(r io.Reader, maxDim int) (*Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("texture: decode: %w", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("texture: decode: empty image %v", b)
	}
	return FromImage(img, maxDim), nil
}

// Open loads the asset called name (without extension) from fsys,
// trying each of Extensions in turn.
func Open(fsys fs.FS, name string, maxDim int) (*Texture, error) {
	if ext := path.Ext(name); ext != "" {
		return openFile(fsys, name, maxDim)
	}
	for _, ext := range Extensions {
		for _, candidate := range []string{name + ext, name + strings.ToUpper(ext)} {
			t, err := openFile(fsys, candidate, maxDim)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return t, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func openFile(fsys fs.FS, name string, maxDim int) (*Texture, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	t, err := Decode(f, maxDim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}
