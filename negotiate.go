package relief

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// pixelRatioMargin keeps render targets 5% below the backend ceiling to
// absorb rounding and DPI differences between WebGPU and WebGL.
const pixelRatioMargin = 0.95

// RenderConfig is the validated result of capability negotiation.
// It is a value; a session replaces it wholesale when it changes.
type RenderConfig struct {
	Backend             Backend
	MaxTextureDimension int
	EffectivePixelRatio float64
}

// Fits reports whether an output of w×h CSS pixels rendered at the
// config's pixel ratio stays within MaxTextureDimension.
func (c RenderConfig) Fits(w, h int) bool {
	return c.EffectivePixelRatio*float64(max(w, h)) <= float64(c.MaxTextureDimension)
}

// TargetSize returns the device-pixel size of the render target for an
// output of w×h CSS pixels. Both dimensions are at least 1.
func (c RenderConfig) TargetSize(w, h int) (int, int) {
	tw := int(math.Floor(float64(w) * c.EffectivePixelRatio))
	th := int(math.Floor(float64(h) * c.EffectivePixelRatio))
	return max(tw, 1), max(th, 1)
}

// EffectivePixelRatio clamps desired so that the longer output side,
// scaled by the ratio, stays within 95% of maxDim. The result is never
// below 1.
func EffectivePixelRatio(desired float64, maxDim, w, h int) float64 {
	longest := max(w, h, 1)
	limit := float64(maxDim) / float64(longest) * pixelRatioMargin
	r := min(desired, limit)
	if !(r >= 1) {
		r = 1
	}
	return r
}

// Negotiator selects a backend once and derives render configs from it.
// Backend switching mid-session is not supported: later calls only
// re-clamp the pixel ratio.
type Negotiator struct {
	host Host

	mu       sync.Mutex
	resolved bool
	backend  Backend
	maxDim   int
}

// NewNegotiator creates a negotiator bound to host.
func NewNegotiator(host Host) (*Negotiator, error) {
	if host == nil {
		return nil, ErrNoHost
	}
	return &Negotiator{host: host}, nil
}

// Negotiate returns the render config for an output of outputWidth ×
// outputHeight CSS pixels at the desired device pixel ratio.
//
// The first call queries the host and caches the backend choice. An
// unavailable or unreliable preferred backend is not an error: the
// fallback backend is selected. Errors are returned only for invalid
// viewports, for a viewport larger than the backend ceiling, and when
// ctx is cancelled during the first query.
func (n *Negotiator) Negotiate(ctx context.Context, desiredPixelRatio float64, outputWidth, outputHeight int) (RenderConfig, error) {
	if outputWidth <= 0 || outputHeight <= 0 {
		return RenderConfig{}, fmt.Errorf("%w: %dx%d", ErrInvalidViewport, outputWidth, outputHeight)
	}

	backend, maxDim, err := n.resolve(ctx)
	if err != nil {
		return RenderConfig{}, err
	}

	if max(outputWidth, outputHeight) > maxDim {
		return RenderConfig{}, fmt.Errorf("%w: %dx%d > %d (%s)",
			ErrCapabilityBreach, outputWidth, outputHeight, maxDim, backend)
	}

	cfg := RenderConfig{
		Backend:             backend,
		MaxTextureDimension: maxDim,
		EffectivePixelRatio: EffectivePixelRatio(desiredPixelRatio, maxDim, outputWidth, outputHeight),
	}
	mustFit(cfg, outputWidth, outputHeight)

	Logger().Debug("relief: negotiated render config",
		"backend", cfg.Backend,
		"maxTextureDimension", cfg.MaxTextureDimension,
		"pixelRatio", cfg.EffectivePixelRatio,
		"width", outputWidth,
		"height", outputHeight)
	return cfg, nil
}

// Ceiling selects the backend, querying the host on the first call, and
// returns it with its texture limit. Callers use it to size source images
// before the first Negotiate.
func (n *Negotiator) Ceiling(ctx context.Context) (Backend, int, error) {
	return n.resolve(ctx)
}

// Backend returns the cached backend and whether selection has happened.
func (n *Negotiator) Backend() (Backend, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.backend, n.resolved
}

func (n *Negotiator) resolve(ctx context.Context) (Backend, int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.resolved {
		return n.backend, n.maxDim, nil
	}

	backend, maxDim, err := n.selectBackend(ctx)
	if err != nil {
		return 0, 0, err
	}
	n.backend, n.maxDim, n.resolved = backend, maxDim, true
	return backend, maxDim, nil
}

// selectBackend runs the one-time selection policy. Must hold n.mu.
func (n *Negotiator) selectBackend(ctx context.Context) (Backend, int, error) {
	if !n.host.HasWebGPU() {
		return n.fallback("webgpu api absent")
	}
	if ua := n.host.UserAgent(); IsUnreliableWebGPUHost(ua) {
		return n.fallback("unreliable webgpu host")
	}

	caps, err := n.host.RequestAdapter(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, 0, fmt.Errorf("relief: adapter request: %w", ctxErr)
	}
	if err != nil {
		Logger().Warn("relief: adapter request failed", "err", err)
		return n.fallback("adapter request failed")
	}

	switch c := caps.(type) {
	case WebGPUCaps:
		maxDim := c.MaxTextureDimension
		if maxDim <= 0 {
			maxDim = DefaultWebGPUMaxTextureDimension
		}
		Logger().Info("relief: backend selected",
			"backend", BackendWebGPU, "adapter", c.Adapter, "maxTextureDimension", maxDim)
		return BackendWebGPU, maxDim, nil
	case WebGLCaps:
		// Some hosts answer the adapter query with their GL context.
		return n.fallbackWith(c, "adapter reported webgl")
	case Unavailable:
		return n.fallback(c.Reason)
	default:
		return n.fallback("no adapter")
	}
}

func (n *Negotiator) fallback(reason string) (Backend, int, error) {
	return n.fallbackWith(n.host.FallbackCapabilities(), reason)
}

func (n *Negotiator) fallbackWith(c WebGLCaps, reason string) (Backend, int, error) {
	maxDim := c.MaxTextureDimension
	if maxDim <= 0 {
		maxDim = DefaultWebGLMaxTextureDimension
	}
	Logger().Info("relief: backend selected",
		"backend", BackendWebGL, "reason", reason, "maxTextureDimension", maxDim)
	return BackendWebGL, maxDim, nil
}

// mustFit asserts the texture ceiling invariant. A breach here means the
// ratio computation is wrong, so it panics rather than clamping.
func mustFit(cfg RenderConfig, w, h int) {
	if !cfg.Fits(w, h) {
		panic(fmt.Sprintf("relief: pixel ratio %.4f × %d exceeds texture limit %d",
			cfg.EffectivePixelRatio, max(w, h), cfg.MaxTextureDimension))
	}
}
