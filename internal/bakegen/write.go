package bakegen

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// WriteDir renders a full image set into dir as bake1.png..bake6.png and
// plaster.png, creating dir if needed.
func WriteDir(dir string, o Options) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("bakegen: %w", err)
	}
	for i, img := range Bakes(o) {
		if err := writePNG(filepath.Join(dir, fmt.Sprintf("bake%d.png", i+1)), img); err != nil {
			return err
		}
	}
	return writePNG(filepath.Join(dir, "plaster.png"), Plaster(o.Width/2, o.Height/2, o.Seed))
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("bakegen: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("bakegen: encode %s: %w", path, err)
	}
	return f.Close()
}
