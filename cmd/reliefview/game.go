package main

import (
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/themisreit/relief"
)

// panel is one session and the window image it presents into.
type panel struct {
	session *relief.Session
	image   *ebiten.Image
}

// Present implements relief.Presenter by uploading the frame.
func (p *panel) Present(frame *relief.Pixmap) error {
	w, h := frame.Width(), frame.Height()
	if p.image == nil || p.image.Bounds().Dx() != w || p.image.Bounds().Dy() != h {
		if p.image != nil {
			p.image.Deallocate()
		}
		p.image = ebiten.NewImage(w, h)
	}
	// Pixmap data is premultiplied RGBA, the layout WritePixels expects.
	p.image.WritePixels(frame.Data())
	return nil
}

type game struct {
	panels []*panel
	scale  float64
	last   time.Time

	// Window size in device-independent pixels, from Layout.
	outW, outH int
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	now := time.Now()
	dt := 0.0
	if !g.last.IsZero() {
		dt = now.Sub(g.last).Seconds()
	}
	g.last = now

	if g.outW == 0 || g.outH == 0 {
		return nil
	}
	panelW, panelH := panelSize(g.outW, g.outH, len(g.panels))
	cx, cy := ebiten.CursorPosition()

	for i, p := range g.panels {
		x0 := i * panelW
		p.session.SetViewport(panelW, panelH)
		p.session.SetPixelRatio(g.scale)
		p.session.SetPointer(relief.PointerFromPixels(
			float64(cx)/g.scale-float64(x0), float64(cy)/g.scale, panelW, panelH))
		if err := p.session.Frame(dt); err != nil {
			return fmt.Errorf("panel %d: %w", i, err)
		}
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	panelW, panelH := panelSize(g.outW, g.outH, len(g.panels))
	for i, p := range g.panels {
		if p.image == nil || p.session.Degraded() {
			continue
		}
		// The effective ratio may be clamped below the device scale;
		// stretch the target over the panel.
		op := &ebiten.DrawImageOptions{}
		sx := float64(panelW) * g.scale / float64(p.image.Bounds().Dx())
		sy := float64(panelH) * g.scale / float64(p.image.Bounds().Dy())
		op.GeoM.Scale(sx, sy)
		op.GeoM.Translate(float64(i*panelW)*g.scale, 0)
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(p.image, op)
	}

	cfg := g.panels[0].session.Config()
	ebitenutil.DebugPrint(screen, fmt.Sprintf("%s  ratio %.2f  FPS %.0f",
		cfg.Backend, cfg.EffectivePixelRatio, ebiten.ActualFPS()))
}

// Layout reports the screen in device pixels so the render targets map
// one to one onto the display.
func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.outW, g.outH = outsideWidth, outsideHeight
	return int(float64(outsideWidth) * g.scale), int(float64(outsideHeight) * g.scale)
}

func (g *game) close() {
	for _, p := range g.panels {
		_ = p.session.Close()
		if p.image != nil {
			p.image.Deallocate()
		}
	}
}

// panelSize splits a w×h window into n side-by-side panels.
func panelSize(w, h, n int) (int, int) {
	n = max(n, 1)
	return max(w/n, 1), max(h, 1)
}
