package relief

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

// Presenter receives each finished frame. The pixmap is only valid for
// the duration of the call; it is reused for the next frame.
type Presenter interface {
	Present(frame *Pixmap) error
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(frame *Pixmap) error

// Present implements Presenter.
func (f PresenterFunc) Present(frame *Pixmap) error { return f(frame) }

// sessionOptions holds the construction-time settings of a Session.
type sessionOptions struct {
	layout       BakeLayout
	relief       ReliefParameters
	trail        TrailParameters
	pixelRatio   float64
	width        int
	height       int
	presenter    Presenter
	sharedImages bool
	kernel       TrailKernel
}

func defaultSessionOptions() sessionOptions {
	return sessionOptions{
		relief:     DefaultReliefParameters(),
		trail:      DefaultTrailParameters(),
		pixelRatio: 1,
		width:      800,
		height:     600,
	}
}

// SessionOption configures a Session during creation.
type SessionOption func(*sessionOptions)

// WithViewport sets the initial output size in CSS pixels.
func WithViewport(width, height int) SessionOption {
	return func(o *sessionOptions) {
		o.width = width
		o.height = height
	}
}

// WithPixelRatio sets the initial desired device pixel ratio.
// Non-finite or non-positive ratios are treated as 1.
func WithPixelRatio(ratio float64) SessionOption {
	return func(o *sessionOptions) {
		o.pixelRatio = sanitizeRatio(ratio)
	}
}

func sanitizeRatio(r float64) float64 {
	if !(r > 0) || math.IsInf(r, 0) {
		return 1
	}
	return r
}

// WithReliefParameters sets the initial compositor and light parameters.
func WithReliefParameters(p ReliefParameters) SessionOption {
	return func(o *sessionOptions) {
		o.relief = p
	}
}

// WithTrailParameters sets the initial trail parameters.
func WithTrailParameters(p TrailParameters) SessionOption {
	return func(o *sessionOptions) {
		o.trail = p
	}
}

// WithBakeLayout sets the light azimuths the bakes were shot with.
func WithBakeLayout(l BakeLayout) SessionOption {
	return func(o *sessionOptions) {
		o.layout = l
	}
}

// WithPresenter sets where finished frames go.
func WithPresenter(p Presenter) SessionOption {
	return func(o *sessionOptions) {
		o.presenter = p
	}
}

// WithTrailKernel runs the trail step on k when it can, falling back to
// the CPU otherwise. gpu.Host implements TrailKernel.
func WithTrailKernel(k TrailKernel) SessionOption {
	return func(o *sessionOptions) {
		o.kernel = k
	}
}

// WithSharedImages marks the image set as shared with other sessions:
// Close leaves it intact and the caller releases it. A shared set is
// never resampled, so it must already fit the backend texture limit.
func WithSharedImages() SessionOption {
	return func(o *sessionOptions) {
		o.sharedImages = true
	}
}

// inputs are the latest-value host inputs, written from any goroutine
// and read once at the start of each frame.
type inputs struct {
	pointer    Pointer
	width      int
	height     int
	pixelRatio float64
	relief     ReliefParameters
	trail      TrailParameters
}

// Session is one mounted relief surface. It owns the negotiated config,
// the light state, the render target and the trail buffer, and runs the
// per-frame pipeline:
//
//	negotiation (cached) → light step → composite → trail → present
//
// Frame must be called from a single rendering goroutine. The Set
// methods may be called from any goroutine; the last write before a
// frame wins.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex
	in inputs

	frameMu    sync.Mutex
	closed     bool
	negotiator *Negotiator
	images     *SixImageSet
	ownImages  bool
	presenter  Presenter
	compositor *Compositor
	trail      *TrailAccumulator
	target     *Pixmap
	light      LightState
	cfg        RenderConfig
	cfgRatio   float64
	width      int
	height     int
	degraded   bool
	frames     uint64
}

// NewSession negotiates the backend and prepares the first frame's
// resources. images may be nil or partial; missing bakes degrade the
// render, they do not fail the session.
//
// Source images larger than the negotiated texture limit are downsampled
// to fit it. A shared set (WithSharedImages) is not modified; if it is too
// large NewSession fails with ErrCapabilityBreach.
//
// If the initial viewport cannot fit the backend ceiling the session is
// created degraded: frames render nothing until a smaller viewport is set.
// Errors are also returned for a nil host, an invalid viewport and a
// cancelled ctx.
func NewSession(ctx context.Context, host Host, images *SixImageSet, opts ...SessionOption) (*Session, error) {
	o := defaultSessionOptions()
	for _, opt := range opts {
		opt(&o)
	}

	n, err := NewNegotiator(host)
	if err != nil {
		return nil, err
	}
	_, maxDim, err := n.Ceiling(ctx)
	if err != nil {
		return nil, err
	}
	if err := fitImages(images, maxDim, !o.sharedImages); err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ctx:        sctx,
		cancel:     cancel,
		negotiator: n,
		images:     images,
		ownImages:  !o.sharedImages,
		presenter:  o.presenter,
		compositor: NewCompositor(images, o.layout),
		trail:      &TrailAccumulator{kernel: o.kernel},
		target:     NewPixmap(0, 0),
		in: inputs{
			width:      o.width,
			height:     o.height,
			pixelRatio: o.pixelRatio,
			relief:     o.relief,
			trail:      o.trail,
		},
	}

	if err := s.configure(ctx, o.width, o.height, o.pixelRatio); err != nil {
		cancel()
		return nil, err
	}

	Logger().Info("relief: session created",
		"backend", s.cfg.Backend,
		"bakes", images.Loaded(),
		"degraded", s.degraded)
	return s, nil
}

// fitImages enforces the texture limit on the source images. Owned sets
// are downsampled in place; a shared set that does not fit is an error.
func fitImages(images *SixImageSet, maxDim int, owned bool) error {
	largest := images.MaxDimension()
	if largest <= maxDim {
		return nil
	}
	if !owned {
		return fmt.Errorf("%w: shared source image side %d > %d",
			ErrCapabilityBreach, largest, maxDim)
	}
	n := images.FitWithin(maxDim)
	Logger().Warn("relief: source images downsampled to backend limit",
		"images", n, "largest", largest, "maxTextureDimension", maxDim)
	return nil
}

// configure brings the config and the render target in line with the
// viewport. The negotiator is consulted when the current config would
// breach the ceiling, when a clamped ratio could grow back toward the
// desired one, or when the desired ratio changed. Must hold s.frameMu
// (or be called before the session is shared).
func (s *Session) configure(ctx context.Context, w, h int, ratio float64) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidViewport, w, h)
	}

	cur := s.cfg.EffectivePixelRatio
	clamped := cur < ratio &&
		EffectivePixelRatio(ratio, s.cfg.MaxTextureDimension, w, h) > cur
	renegotiate := s.cfg.MaxTextureDimension == 0 || s.degraded ||
		ratio != s.cfgRatio || !s.cfg.Fits(w, h) || clamped
	if renegotiate {
		cfg, err := s.negotiator.Negotiate(ctx, ratio, w, h)
		switch {
		case errors.Is(err, ErrCapabilityBreach):
			if !s.degraded {
				Logger().Warn("relief: viewport exceeds backend limit, effect disabled", "err", err)
			}
			s.degraded = true
			s.width, s.height, s.cfgRatio = w, h, ratio
			s.target.release()
			s.trail.Release()
			return nil
		case err != nil:
			return err
		}
		s.cfg = cfg
		s.cfgRatio = ratio
		s.degraded = false
	}

	s.width, s.height = w, h
	tw, th := s.cfg.TargetSize(w, h)
	if s.target.Width() != tw || s.target.Height() != th {
		s.target = NewPixmap(tw, th)
		s.trail.Resize(tw, th)
	}
	return nil
}

// SetPointer records the latest pointer state.
func (s *Session) SetPointer(p Pointer) {
	s.mu.Lock()
	s.in.pointer = p
	s.mu.Unlock()
}

// SetViewport records the latest output size in CSS pixels.
func (s *Session) SetViewport(width, height int) {
	s.mu.Lock()
	s.in.width, s.in.height = width, height
	s.mu.Unlock()
}

// SetPixelRatio records the latest desired device pixel ratio.
// Non-finite or non-positive ratios are treated as 1.
func (s *Session) SetPixelRatio(ratio float64) {
	ratio = sanitizeRatio(ratio)
	s.mu.Lock()
	s.in.pixelRatio = ratio
	s.mu.Unlock()
}

// SetReliefParameters replaces the compositor and light parameters.
func (s *Session) SetReliefParameters(p ReliefParameters) {
	s.mu.Lock()
	s.in.relief = p
	s.mu.Unlock()
}

// SetTrailParameters replaces the trail parameters.
func (s *Session) SetTrailParameters(p TrailParameters) {
	s.mu.Lock()
	s.in.trail = p
	s.mu.Unlock()
}

func (s *Session) snapshot() inputs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.in
}

// Frame renders and presents one frame, dt seconds after the previous one.
// A degraded session does nothing and returns nil. After Close, Frame
// returns ErrSessionClosed.
func (s *Session) Frame(dt float64) error {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	in := s.snapshot()
	if in.width != s.width || in.height != s.height || in.pixelRatio != s.cfgRatio {
		if err := s.configure(s.ctx, in.width, in.height, in.pixelRatio); err != nil {
			return err
		}
	}
	if s.degraded {
		return nil
	}

	relief := in.relief.Sanitize()
	s.light = StepLight(s.light, in.pointer, relief, dt)
	s.compositor.Render(s.target, s.light.Dir, relief)
	s.trail.Step(in.pointer, in.trail)
	s.trail.Composite(s.target, in.trail)
	s.frames++

	if s.presenter != nil {
		if err := s.presenter.Present(s.target); err != nil {
			return fmt.Errorf("relief: present: %w", err)
		}
	}
	return nil
}

// Target returns the most recent frame. It is overwritten by the next
// Frame call and released by Close.
func (s *Session) Target() *Pixmap {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.target
}

// Config returns the current render config.
func (s *Session) Config() RenderConfig {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.cfg
}

// Light returns the current light state.
func (s *Session) Light() LightState {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.light
}

// Degraded reports whether the viewport currently exceeds the backend
// limit, leaving the effect disabled.
func (s *Session) Degraded() bool {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.degraded
}

// Frames returns how many frames have been rendered.
func (s *Session) Frames() uint64 {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.frames
}

// Close stops the session and releases its resources. It waits for an
// in-flight frame to finish first, so no frame ever reads released
// buffers. Close is idempotent.
func (s *Session) Close() error {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()

	s.trail.Release()
	s.target.release()
	if s.ownImages {
		s.images.Release()
	}
	s.images = nil
	s.compositor.Release()

	Logger().Debug("relief: session closed", "frames", s.frames)
	return nil
}
