package lumen

import (
	"math"
	"testing"
)

func approxEqual(a, b, eps float32) bool {
	return abs32(a-b) < eps
}

func TestEmptyBoxIsUnionIdentity(t *testing.T) {
	empty := EmptyBox()
	b := Box{Min: Vec3{-1, -2, -3}, Max: Vec3{4, 5, 6}}

	if got := empty.Union(b); got != b {
		t.Errorf("empty.Union(b) = %v, want %v", got, b)
	}
	if got := b.Union(empty); got != b {
		t.Errorf("b.Union(empty) = %v, want %v", got, b)
	}
	if !math.IsInf(float64(empty.Min.X), 1) || !math.IsInf(float64(empty.Max.X), -1) {
		t.Errorf("empty sentinel = %v, want min=+Inf max=-Inf", empty)
	}
}

func TestBoxUnionPoint(t *testing.T) {
	b := EmptyBox()
	b = b.UnionPoint(Vec3{1, 2, 3})
	b = b.UnionPoint(Vec3{-1, 0, 5})

	want := Box{Min: Vec3{-1, 0, 3}, Max: Vec3{1, 2, 5}}
	if b != want {
		t.Errorf("UnionPoint chain = %v, want %v", b, want)
	}
}

func TestBoxSurfaceAreaVolume(t *testing.T) {
	b := Box{Min: Vec3{0, 0, 0}, Max: Vec3{1, 2, 3}}
	if got := b.SurfaceArea(); !approxEqual(got, 22, 1e-5) {
		t.Errorf("SurfaceArea = %f, want 22", got)
	}
	if got := b.Volume(); !approxEqual(got, 6, 1e-5) {
		t.Errorf("Volume = %f, want 6", got)
	}
	if got := EmptyBox().SurfaceArea(); got != 0 {
		t.Errorf("empty SurfaceArea = %f, want 0", got)
	}
	if got := EmptyBox().Volume(); got != 0 {
		t.Errorf("empty Volume = %f, want 0", got)
	}
}

func TestBoxIntersect(t *testing.T) {
	b := Box{Min: Vec3{-1, -1, -1}, Max: Vec3{1, 1, 1}}

	tests := []struct {
		name    string
		origin  Vec3
		dir     Vec3
		maxDist float32
		hit     bool
		tNear   float32
	}{
		{"head on", Vec3{0, 0, -5}, Vec3{0, 0, 1}, 100, true, 4},
		{"from inside", Vec3{0, 0, 0}, Vec3{0, 0, 1}, 100, true, 0},
		{"pointing away", Vec3{0, 0, -5}, Vec3{0, 0, -1}, 100, false, 0},
		{"parallel miss", Vec3{5, 0, -5}, Vec3{0, 0, 1}, 100, false, 0},
		{"beyond max distance", Vec3{0, 0, -5}, Vec3{0, 0, 1}, 2, false, 0},
		{"diagonal", Vec3{-5, -5, -5}, Vec3{1, 1, 1}, 100, true, 4 * sqrt32(3)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ray := NewRay(tc.origin, tc.dir)
			tNear, hit := b.Intersect(&ray, tc.maxDist)
			if hit != tc.hit {
				t.Fatalf("hit = %v, want %v", hit, tc.hit)
			}
			if hit && !approxEqual(tNear, tc.tNear, 1e-3) {
				t.Errorf("tNear = %f, want %f", tNear, tc.tNear)
			}
		})
	}
}

func TestIntersectBox8MatchesScalar(t *testing.T) {
	b := Box{Min: Vec3{-1, -1, -1}, Max: Vec3{1, 1, 1}}

	var group RayGroup8
	rays := make([]Ray, 8)
	var rng Random
	rng.Seed(7)
	for i := range rays {
		origin := Vec3{rng.FloatBipolar() * 4, rng.FloatBipolar() * 4, -5}
		dir := Vec3{rng.FloatBipolar() * 0.3, rng.FloatBipolar() * 0.3, 1}
		rays[i] = NewRay(origin, dir)
		group.SetRay(i, &rays[i])
	}

	_, mask := IntersectBox8(b, &group, SplatF8(100))
	for i := range rays {
		_, want := b.Intersect(&rays[i], 100)
		got := mask[i] != 0
		if got != want {
			t.Errorf("lane %d: packet hit = %v, scalar hit = %v", i, got, want)
		}
	}
}
