// Command reliefrender renders a relief animation headlessly into a PNG
// sequence, with the pointer following a scripted circle.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/themisreit/relief"
	"github.com/themisreit/relief/gpu"
	"github.com/themisreit/relief/internal/bakegen"
	"github.com/themisreit/relief/webgpu"
)

func main() {
	var (
		assets     = flag.String("assets", "", "directory with bake1..bake6 and plaster images (empty: generate)")
		genDir     = flag.String("gen", "", "write a generated image set to this directory and exit")
		width      = flag.Int("width", 640, "output width in CSS pixels")
		height     = flag.Int("height", 480, "output height in CSS pixels")
		ratio      = flag.Float64("ratio", 1, "desired device pixel ratio")
		frames     = flag.Int("frames", 60, "number of frames")
		fps        = flag.Float64("fps", 30, "frames per second")
		outDir     = flag.String("out", "frames", "output directory")
		backend    = flag.String("backend", "auto", "host: auto (native hal), wgpu (wgpu-native), webgpu or webgl (static)")
		agent      = flag.String("ua", "", "user agent reported to the negotiator")
		maxTexture = flag.Int("max-texture", 0, "texture ceiling for -backend webgpu/webgl (0: default)")
		seed       = flag.Uint64("seed", 1, "seed for generated images")
		verbose    = flag.Bool("v", false, "log diagnostics to stderr")
	)
	flag.Parse()

	if *verbose {
		relief.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	opts := bakegen.DefaultOptions()
	opts.Seed = *seed
	if *genDir != "" {
		if err := bakegen.WriteDir(*genDir, opts); err != nil {
			log.Fatalf("Failed to generate images: %v", err)
		}
		log.Printf("Image set written to %s", *genDir)
		return
	}

	host, closeHost := newHost(*backend, *agent, *maxTexture)
	defer closeHost()

	ctx := context.Background()
	neg, err := relief.NewNegotiator(host)
	if err != nil {
		log.Fatalf("Failed to create negotiator: %v", err)
	}
	selected, maxDim, err := neg.Ceiling(ctx)
	if err != nil {
		log.Fatalf("Failed to select a backend: %v", err)
	}
	log.Printf("Host %s selected %s, texture limit %d", *backend, selected, maxDim)

	images := loadImages(*assets, opts, maxDim)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create %s: %v", *outDir, err)
	}
	n := 0
	presenter := relief.PresenterFunc(func(frame *relief.Pixmap) error {
		n++
		return frame.SavePNG(filepath.Join(*outDir, fmt.Sprintf("frame_%04d.png", n)))
	})

	sessionOpts := []relief.SessionOption{
		relief.WithViewport(*width, *height),
		relief.WithPixelRatio(*ratio),
		relief.WithPresenter(presenter),
	}
	if k, ok := host.(relief.TrailKernel); ok {
		sessionOpts = append(sessionOpts, relief.WithTrailKernel(k))
	}
	s, err := relief.NewSession(ctx, host, images, sessionOpts...)
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	defer func() { _ = s.Close() }()

	cfg := s.Config()
	log.Printf("Backend %s, pixel ratio %.3f, ceiling %d", cfg.Backend, cfg.EffectivePixelRatio, cfg.MaxTextureDimension)

	dt := 1 / *fps
	for i := 0; i < *frames; i++ {
		s.SetPointer(scriptedPointer(i, *frames))
		if err := s.Frame(dt); err != nil {
			log.Fatalf("Frame %d failed: %v", i, err)
		}
	}
	if s.Degraded() {
		log.Printf("Viewport exceeds the backend limit; no frames rendered")
		return
	}
	log.Printf("%d frames written to %s", n, *outDir)
}

// newHost builds the capability host for the -backend flag.
func newHost(name, agent string, maxTexture int) (relief.Host, func()) {
	switch name {
	case "webgpu":
		return &relief.StaticHost{
			WebGPU:  true,
			Agent:   agent,
			Adapter: relief.WebGPUCaps{MaxTextureDimension: maxTexture, Adapter: "static"},
		}, func() {}
	case "webgl":
		return &relief.StaticHost{
			Agent: agent,
			WebGL: relief.WebGLCaps{MaxTextureDimension: maxTexture},
		}, func() {}
	case "auto":
		h := gpu.NewHost(gpu.WithUserAgent(agent))
		return h, h.Close
	case "wgpu":
		h := webgpu.NewHost(webgpu.WithLabel("reliefrender"))
		return h, h.Close
	default:
		log.Fatalf("Unknown backend %q", name)
		return nil, nil
	}
}

// loadImages decodes or generates the image set, fitting every image
// within maxDim.
func loadImages(dir string, opts bakegen.Options, maxDim int) *relief.SixImageSet {
	if dir != "" {
		set, n := relief.LoadSixImageSet(os.DirFS(dir), maxDim)
		log.Printf("Loaded %d of %d bakes from %s", n, relief.BakeCount, dir)
		return set
	}

	var bakes [relief.BakeCount]image.Image
	for i, img := range bakegen.Bakes(opts) {
		bakes[i] = img
	}
	plaster := bakegen.Plaster(opts.Width/2, opts.Height/2, opts.Seed)
	return relief.NewSixImageSet(bakes, plaster, maxDim)
}

// scriptedPointer circles the frame centre once over the run, resting
// outside the surface for the first and last tenth.
func scriptedPointer(i, n int) relief.Pointer {
	t := float64(i) / float64(max(n, 1))
	if t < 0.1 || t > 0.9 {
		return relief.Pointer{}
	}
	a := 2 * math.Pi * (t - 0.1) / 0.8
	return relief.Pointer{X: 0.6 * math.Cos(a), Y: 0.6 * math.Sin(a), Active: true}
}
