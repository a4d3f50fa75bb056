package bakegen

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func smallOptions() Options {
	o := DefaultOptions()
	o.Width, o.Height = 64, 48
	o.Bumps = 0
	return o
}

func TestHeightFieldDome(t *testing.T) {
	f := NewHeightField(smallOptions())
	if f.W != 64 || f.H != 48 {
		t.Fatalf("size = %dx%d", f.W, f.H)
	}
	if c := f.At(32, 24); c < 0.95 {
		t.Errorf("dome peak = %v, want ~1", c)
	}
	if e := f.At(0, 0); e != 0 {
		t.Errorf("corner height = %v, want 0", e)
	}
	for _, z := range f.Z {
		if z < 0 || z > 1 {
			t.Fatalf("height %v out of range", z)
		}
	}
}

func TestNormalPointsDownhill(t *testing.T) {
	f := NewHeightField(smallOptions())
	// Right flank of the dome slopes down to the right.
	nx, _, nz := f.Normal(40, 24, 40)
	if nx <= 0 || nz <= 0 {
		t.Errorf("right flank normal = (%v, _, %v), want +x and +z", nx, nz)
	}
	// Upper flank (smaller row index) faces frame +y.
	_, ny, _ := f.Normal(32, 16, 40)
	if ny <= 0 {
		t.Errorf("upper flank ny = %v, want > 0", ny)
	}
	nx, ny, nz = f.Normal(0, 0, 40)
	if math.Abs(nx) > 1e-12 || math.Abs(ny) > 1e-12 || math.Abs(nz-1) > 1e-12 {
		t.Errorf("flat normal = (%v, %v, %v)", nx, ny, nz)
	}
}

func TestBakesFollowLight(t *testing.T) {
	o := smallOptions()
	bakes := Bakes(o)

	luma := func(i, x, y int) int { return int(bakes[i].NRGBAAt(x, y).R) }

	// Bake 0 is lit from +x: the right flank is brighter than the left.
	if r, l := luma(0, 40, 24), luma(0, 24, 24); r <= l {
		t.Errorf("bake 0: right %d, left %d", r, l)
	}
	// Bake 3 is lit from -x: the opposite.
	if r, l := luma(3, 40, 24), luma(3, 24, 24); r >= l {
		t.Errorf("bake 3: right %d, left %d", r, l)
	}
	// Flat ground gets the same light from every side.
	for i := 1; i < 6; i++ {
		if luma(i, 1, 1) != luma(0, 1, 1) {
			t.Errorf("flat ground differs between bake 0 and %d", i)
		}
	}
}

func TestLightAngleLayout(t *testing.T) {
	o := Options{StartAngle: 0.1, Clockwise: true}
	if got, want := o.LightAngle(2), 0.1-2*math.Pi/3; math.Abs(got-want) > 1e-12 {
		t.Errorf("LightAngle(2) = %v, want %v", got, want)
	}
}

func TestDeterministic(t *testing.T) {
	o := smallOptions()
	o.Bumps = 5
	a, b := Bakes(o), Bakes(o)
	for i := range a {
		if !bytes.Equal(a[i].Pix, b[i].Pix) {
			t.Fatalf("bake %d differs between runs", i)
		}
	}
	if !bytes.Equal(Plaster(32, 32, 7).Pix, Plaster(32, 32, 7).Pix) {
		t.Error("plaster differs between runs")
	}
	if bytes.Equal(Plaster(32, 32, 7).Pix, Plaster(32, 32, 8).Pix) {
		t.Error("plaster ignores the seed")
	}
}

func TestPlasterIsNeutral(t *testing.T) {
	p := Plaster(64, 64, 3)
	sum := 0.0
	for i := 0; i < len(p.Pix); i += 4 {
		sum += float64(p.Pix[i]) / 255
	}
	mean := sum / float64(64*64)
	if math.Abs(mean-0.5) > 0.08 {
		t.Errorf("plaster mean = %v, want ~0.5", mean)
	}
}

func TestWriteDir(t *testing.T) {
	dir := t.TempDir()
	o := smallOptions()
	if err := WriteDir(dir, o); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"bake1.png", "bake6.png", "plaster.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
