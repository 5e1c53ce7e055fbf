package lumen

import "testing"

func TestFloat8Arithmetic(t *testing.T) {
	a := Float8{1, 2, 3, 4, 5, 6, 7, 8}
	b := SplatF8(2)

	sum := a.Add(b)
	for i := range sum {
		if sum[i] != a[i]+2 {
			t.Errorf("Add lane %d = %f, want %f", i, sum[i], a[i]+2)
		}
	}

	fma := a.MulAdd(b, SplatF8(1))
	for i := range fma {
		if fma[i] != a[i]*2+1 {
			t.Errorf("MulAdd lane %d = %f, want %f", i, fma[i], a[i]*2+1)
		}
	}
}

func TestFloat8CompareAndSelect(t *testing.T) {
	a := Float8{1, 5, 2, 6, 3, 7, 4, 8}
	b := SplatF8(4.5)

	mask := a.CmpLE(b)
	wantMask := Int8{-1, 0, -1, 0, -1, 0, -1, 0}
	if mask != wantMask {
		t.Fatalf("CmpLE = %v, want %v", mask, wantMask)
	}

	sel := Select(mask, a, b)
	for i := range sel {
		want := b[i]
		if mask[i] != 0 {
			want = a[i]
		}
		if sel[i] != want {
			t.Errorf("Select lane %d = %f, want %f", i, sel[i], want)
		}
	}

	if got := mask.MoveMask(); got != 0b01010101 {
		t.Errorf("MoveMask = %08b, want 01010101", got)
	}
	if mask.None() {
		t.Error("None() = true for a non-empty mask")
	}
	if !(Int8{}).None() {
		t.Error("None() = false for the zero mask")
	}
}

func TestFloat4Dot3IgnoresLastLane(t *testing.T) {
	a := Float4{1, 2, 3, 999}
	b := Float4{4, 5, 6, 999}
	if got := a.Dot3(b); got != 32 {
		t.Errorf("Dot3 = %f, want 32", got)
	}
}

func TestGather8(t *testing.T) {
	base := []float32{10, 11, 12, 13, 14, 15, 16, 17, 18}
	idx := Int8{8, 0, 4, 2, 6, 1, 3, 5}
	got := Gather8(base, idx)
	want := Float8{18, 10, 14, 12, 16, 11, 13, 15}
	if got != want {
		t.Errorf("Gather8 = %v, want %v", got, want)
	}
}

func TestInt4Ops(t *testing.T) {
	a := Int4{1, 2, 3, 4}
	b := Int4{5, 6, 7, 8}
	if got := a.Add(b); got != (Int4{6, 8, 10, 12}) {
		t.Errorf("Add = %v", got)
	}
	if got := a.Mul(b); got != (Int4{5, 12, 21, 32}) {
		t.Errorf("Mul = %v", got)
	}
	if got := a.Xor(a); got != (Int4{}) {
		t.Errorf("Xor self = %v, want zero", got)
	}
}
