// Command reliefview shows the relief effect in a window and follows
// the mouse. With -pair it runs two independent sessions side by side
// over one shared image set.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/themisreit/relief"
	"github.com/themisreit/relief/gpu"
	"github.com/themisreit/relief/internal/bakegen"
	"github.com/themisreit/relief/webgpu"
)

func main() {
	var (
		assets   = flag.String("assets", "", "directory with bake1..bake6 and plaster images (empty: generate)")
		width    = flag.Int("width", 960, "window width")
		height   = flag.Int("height", 640, "window height")
		pair     = flag.Bool("pair", false, "run two sessions side by side")
		hostKind = flag.String("host", "hal", "capability host: hal (native vulkan), wgpu (wgpu-native) or webgl")
		verbose  = flag.Bool("v", false, "log diagnostics to stderr")
	)
	flag.Parse()

	if *verbose {
		relief.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	host, closeHost, err := newHost(*hostKind)
	if err != nil {
		log.Fatal(err)
	}
	defer closeHost()

	// The set is shared by every panel, so it is fitted to the backend
	// limit once, before any session starts.
	ctx := context.Background()
	n, err := relief.NewNegotiator(host)
	if err != nil {
		log.Fatal(err)
	}
	_, maxDim, err := n.Ceiling(ctx)
	if err != nil {
		log.Fatalf("Failed to select a backend: %v", err)
	}
	images := loadImages(*assets, maxDim)
	defer images.Release()

	count := 1
	if *pair {
		count = 2
	}
	scale := 1.0
	if m := ebiten.Monitor(); m != nil {
		scale = m.DeviceScaleFactor()
	}
	panelW, panelH := panelSize(*width, *height, count)

	g := &game{scale: scale}
	for i := 0; i < count; i++ {
		p := &panel{}
		params := relief.DefaultReliefParameters()
		if i == 1 {
			params.MultiplyColor = relief.Hex("#f2d9c0")
			params.RotationSpeed = -params.RotationSpeed
		}
		opts := []relief.SessionOption{
			relief.WithViewport(panelW, panelH),
			relief.WithPixelRatio(scale),
			relief.WithReliefParameters(params),
			relief.WithSharedImages(),
			relief.WithPresenter(p),
		}
		if k, ok := host.(relief.TrailKernel); ok {
			opts = append(opts, relief.WithTrailKernel(k))
		}
		s, err := relief.NewSession(ctx, host, images, opts...)
		if err != nil {
			log.Fatalf("Failed to start session: %v", err)
		}
		p.session = s
		g.panels = append(g.panels, p)
	}
	defer g.close()

	cfg := g.panels[0].session.Config()
	log.Printf("Backend %s, pixel ratio %.2f (desired %.2f)", cfg.Backend, cfg.EffectivePixelRatio, scale)

	ebiten.SetWindowSize(*width, *height)
	ebiten.SetWindowTitle("relief")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}

// newHost builds the capability host named by -host.
func newHost(kind string) (relief.Host, func(), error) {
	switch kind {
	case "hal":
		h := gpu.NewHost()
		return h, h.Close, nil
	case "wgpu":
		h := webgpu.NewHost(webgpu.WithLabel("reliefview"))
		return h, h.Close, nil
	case "webgl":
		return &relief.StaticHost{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown host %q (want hal, wgpu or webgl)", kind)
	}
}

func loadImages(dir string, maxDim int) *relief.SixImageSet {
	if dir != "" {
		set, n := relief.LoadSixImageSet(os.DirFS(dir), maxDim)
		log.Printf("Loaded %d of %d bakes from %s", n, relief.BakeCount, dir)
		return set
	}
	opts := bakegen.DefaultOptions()
	var bakes [relief.BakeCount]image.Image
	for i, img := range bakegen.Bakes(opts) {
		bakes[i] = img
	}
	return relief.NewSixImageSet(bakes, bakegen.Plaster(opts.Width/2, opts.Height/2, opts.Seed), maxDim)
}
