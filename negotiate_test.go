package relief

import (
	"context"
	"errors"
	"math"
	"testing"
)

const (
	safariUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"
	chromeUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

func TestEffectivePixelRatioScenarios(t *testing.T) {
	tests := []struct {
		name    string
		desired float64
		maxDim  int
		w, h    int
		want    float64
	}{
		{"unclamped 1920", 3, 8192, 1920, 1920, 3},
		{"clamped 4096", 3, 8192, 4096, 4096, 1.9},
		{"floor at one", 0.5, 8192, 800, 600, 1},
		{"nan desired", math.NaN(), 8192, 800, 600, 1},
		{"tight ceiling", 2, 4096, 4000, 1000, 1},
		{"wide viewport", 2, 4096, 2560, 100, 4096.0 / 2560 * 0.95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectivePixelRatio(tt.desired, tt.maxDim, tt.w, tt.h)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("EffectivePixelRatio(%v, %d, %d, %d) = %v, want %v",
					tt.desired, tt.maxDim, tt.w, tt.h, got, tt.want)
			}
		})
	}
}

func TestNegotiateEndToEnd(t *testing.T) {
	host := &StaticHost{WebGPU: true, Agent: chromeUA, Adapter: WebGPUCaps{MaxTextureDimension: 8192}}
	n, err := NewNegotiator(host)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := n.Negotiate(context.Background(), 3, 1920, 1920)
	if err != nil {
		t.Fatalf("Negotiate(1920) = %v", err)
	}
	if cfg.Backend != BackendWebGPU || cfg.MaxTextureDimension != 8192 || cfg.EffectivePixelRatio != 3 {
		t.Errorf("Negotiate(1920) = %+v, want webgpu/8192/3", cfg)
	}

	cfg, err = n.Negotiate(context.Background(), 3, 4096, 4096)
	if err != nil {
		t.Fatalf("Negotiate(4096) = %v", err)
	}
	if math.Abs(cfg.EffectivePixelRatio-1.9) > 1e-12 {
		t.Errorf("Negotiate(4096).EffectivePixelRatio = %v, want 1.9", cfg.EffectivePixelRatio)
	}

	if host.Requests() != 1 {
		t.Errorf("adapter requested %d times, want 1 (selection is cached)", host.Requests())
	}
}

func TestNegotiateBackendSelection(t *testing.T) {
	tests := []struct {
		name    string
		host    *StaticHost
		want    Backend
		wantMax int
		wantReq int
	}{
		{
			name:    "absent api",
			host:    &StaticHost{WebGPU: false, Agent: chromeUA, Adapter: WebGPUCaps{MaxTextureDimension: 16384}},
			want:    BackendWebGL,
			wantMax: DefaultWebGLMaxTextureDimension,
		},
		{
			name:    "safari ua",
			host:    &StaticHost{WebGPU: true, Agent: safariUA, Adapter: WebGPUCaps{MaxTextureDimension: 16384}, WebGL: WebGLCaps{MaxTextureDimension: 16384}},
			want:    BackendWebGL,
			wantMax: 16384,
		},
		{
			name:    "adapter succeeds",
			host:    &StaticHost{WebGPU: true, Agent: chromeUA, Adapter: WebGPUCaps{MaxTextureDimension: 16384}},
			want:    BackendWebGPU,
			wantMax: 16384,
			wantReq: 1,
		},
		{
			name:    "adapter without limit",
			host:    &StaticHost{WebGPU: true, Agent: chromeUA, Adapter: WebGPUCaps{}},
			want:    BackendWebGPU,
			wantMax: DefaultWebGPUMaxTextureDimension,
			wantReq: 1,
		},
		{
			name:    "adapter error",
			host:    &StaticHost{WebGPU: true, Agent: chromeUA, AdapterErr: errors.New("lost")},
			want:    BackendWebGL,
			wantMax: DefaultWebGLMaxTextureDimension,
			wantReq: 1,
		},
		{
			name:    "adapter nil",
			host:    &StaticHost{WebGPU: true, Agent: chromeUA},
			want:    BackendWebGL,
			wantMax: DefaultWebGLMaxTextureDimension,
			wantReq: 1,
		},
		{
			name:    "adapter unavailable",
			host:    &StaticHost{WebGPU: true, Agent: chromeUA, Adapter: Unavailable{Reason: "blocklisted"}, WebGL: WebGLCaps{MaxTextureDimension: 8192}},
			want:    BackendWebGL,
			wantMax: 8192,
			wantReq: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewNegotiator(tt.host)
			if err != nil {
				t.Fatal(err)
			}
			for range 3 {
				cfg, err := n.Negotiate(context.Background(), 2, 800, 600)
				if err != nil {
					t.Fatalf("Negotiate() = %v", err)
				}
				if cfg.Backend != tt.want || cfg.MaxTextureDimension != tt.wantMax {
					t.Errorf("Negotiate() = %s/%d, want %s/%d",
						cfg.Backend, cfg.MaxTextureDimension, tt.want, tt.wantMax)
				}
			}
			if tt.host.Requests() != tt.wantReq {
				t.Errorf("adapter requests = %d, want %d", tt.host.Requests(), tt.wantReq)
			}
			if b, ok := n.Backend(); !ok || b != tt.want {
				t.Errorf("Backend() = %s, %v; want %s, true", b, ok, tt.want)
			}
		})
	}
}

func TestNegotiateInvariantSweep(t *testing.T) {
	for _, maxDim := range []int{2048, 4096, 8192, 16384} {
		host := &StaticHost{WebGPU: true, Agent: chromeUA, Adapter: WebGPUCaps{MaxTextureDimension: maxDim}}
		n, err := NewNegotiator(host)
		if err != nil {
			t.Fatal(err)
		}
		for w := 1; w <= maxDim; w += 127 {
			for _, h := range []int{1, 37, w / 2, w, maxDim} {
				if h <= 0 {
					continue
				}
				for _, desired := range []float64{0, 0.75, 1, 1.5, 2, 2.625, 3, 4, 8} {
					cfg, err := n.Negotiate(context.Background(), desired, w, h)
					if err != nil {
						t.Fatalf("Negotiate(%v, %d, %d) max %d = %v", desired, w, h, maxDim, err)
					}
					if cfg.EffectivePixelRatio*float64(max(w, h)) > float64(maxDim) {
						t.Fatalf("ratio %v × %d exceeds %d", cfg.EffectivePixelRatio, max(w, h), maxDim)
					}
					if cfg.EffectivePixelRatio < 1 || cfg.EffectivePixelRatio > max(desired, 1) {
						t.Fatalf("ratio %v out of [1, max(desired=%v, 1)]", cfg.EffectivePixelRatio, desired)
					}
					tw, th := cfg.TargetSize(w, h)
					if max(tw, th) > maxDim {
						t.Fatalf("target %dx%d exceeds %d", tw, th, maxDim)
					}
				}
			}
		}
	}
}

func TestNegotiateErrors(t *testing.T) {
	host := &StaticHost{WebGPU: true, Agent: chromeUA, Adapter: WebGPUCaps{MaxTextureDimension: 4096}}
	n, err := NewNegotiator(host)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := n.Negotiate(context.Background(), 2, 0, 600); !errors.Is(err, ErrInvalidViewport) {
		t.Errorf("zero width: err = %v, want ErrInvalidViewport", err)
	}
	if _, err := n.Negotiate(context.Background(), 2, 5000, 600); !errors.Is(err, ErrCapabilityBreach) {
		t.Errorf("oversized: err = %v, want ErrCapabilityBreach", err)
	}

	if _, err := NewNegotiator(nil); !errors.Is(err, ErrNoHost) {
		t.Errorf("NewNegotiator(nil) = %v, want ErrNoHost", err)
	}
}

func TestNegotiateCancelledContextIsNotCached(t *testing.T) {
	host := &StaticHost{WebGPU: true, Agent: chromeUA, Adapter: WebGPUCaps{MaxTextureDimension: 8192}}
	n, err := NewNegotiator(host)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := n.Negotiate(ctx, 2, 800, 600); !errors.Is(err, context.Canceled) {
		t.Fatalf("Negotiate(cancelled) = %v, want context.Canceled", err)
	}
	if _, ok := n.Backend(); ok {
		t.Fatal("backend should not be cached after a cancelled query")
	}

	cfg, err := n.Negotiate(context.Background(), 2, 800, 600)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendWebGPU {
		t.Errorf("Backend = %s, want webgpu", cfg.Backend)
	}
}

func TestCeilingCachesSelection(t *testing.T) {
	host := &StaticHost{WebGPU: true, Agent: chromeUA, Adapter: WebGPUCaps{MaxTextureDimension: 16384}}
	n, err := NewNegotiator(host)
	if err != nil {
		t.Fatal(err)
	}
	backend, maxDim, err := n.Ceiling(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if backend != BackendWebGPU || maxDim != 16384 {
		t.Errorf("Ceiling() = %s, %d", backend, maxDim)
	}
	if _, err := n.Negotiate(context.Background(), 1, 100, 100); err != nil {
		t.Fatal(err)
	}
	if host.Requests() != 1 {
		t.Errorf("adapter requested %d times, want 1", host.Requests())
	}
}

func TestMustFitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("mustFit should panic on an invariant breach")
		}
	}()
	mustFit(RenderConfig{MaxTextureDimension: 1000, EffectivePixelRatio: 2}, 600, 400)
}
