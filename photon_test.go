package lumen

import (
	"testing"
	"unsafe"
)

func TestPhotonSize(t *testing.T) {
	if size := unsafe.Sizeof(Photon{}); size != 32 {
		t.Errorf("Photon size = %d bytes, want 32", size)
	}
}

func TestOctEncodeRoundTrip(t *testing.T) {
	dirs := []Vec3{
		{0, 0, 1}, {0, 0, -1}, {1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0},
		{1, 1, 1}, {-1, 2, -3}, {0.1, -0.9, 0.4},
	}

	var rng Random
	rng.Seed(5)
	for i := 0; i < 100; i++ {
		dirs = append(dirs, Vec3{rng.FloatBipolar(), rng.FloatBipolar(), rng.FloatBipolar()})
	}

	for _, d := range dirs {
		if d.SqrLength() == 0 {
			continue
		}
		unit := d.Normalized()
		decoded := OctDecode(OctEncode(unit))

		if dot := decoded.Dot(unit); dot < 0.9999 {
			t.Errorf("oct roundtrip of %v: dot = %f, want ~1", unit, dot)
		}
		if !approxEqual(decoded.Length(), 1, 1e-4) {
			t.Errorf("decoded %v is not unit length", decoded)
		}
	}
}

func TestHalfFloatRoundTrip(t *testing.T) {
	values := []float32{0, 1, -1, 0.5, 2, 1024, 0.0001, 65504}
	for _, v := range values {
		got := halfToFloat(floatToHalf(v))
		tolerance := max32(abs32(v)*1.5e-3, 1e-7)
		if !approxEqual(got, v, tolerance) {
			t.Errorf("half roundtrip %f = %f", v, got)
		}
	}

	// overflow saturates to infinity
	if h := floatToHalf(1e10); halfToFloat(h) < 65504 {
		t.Errorf("overflow mapped to %f, want +Inf", halfToFloat(h))
	}
}

func TestMakePhoton(t *testing.T) {
	pos := Vec3{1, 2, 3}
	dir := Vec3{0, 1, 0}
	throughput := Color{0.25, 0.5, 2}

	p := MakePhoton(pos, dir, throughput, 4, 5)

	if p.Pos() != pos {
		t.Errorf("Pos = %v, want %v", p.Pos(), pos)
	}
	if got := p.Dir(); got.Dot(dir) < 0.9999 {
		t.Errorf("Dir = %v, want %v", got, dir)
	}
	c := p.Color()
	if !approxEqual(c.R, 0.25, 1e-3) || !approxEqual(c.G, 0.5, 1e-3) || !approxEqual(c.B, 2, 2e-3) {
		t.Errorf("Color = %v, want %v", c, throughput)
	}
	if p.DVM != 4 || p.DVCM != 5 {
		t.Errorf("MIS scalars = %f, %f; want 4, 5", p.DVM, p.DVCM)
	}
}
