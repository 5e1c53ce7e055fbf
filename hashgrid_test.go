package lumen

import (
	"math"
	"testing"
)

func randomPhotons(n int, seed uint32) []Photon {
	var rng Random
	rng.Seed(seed)
	photons := make([]Photon, n)
	for i := range photons {
		photons[i] = MakePhoton(
			Vec3{rng.Float(), rng.Float(), rng.Float()},
			Vec3{0, 0, 1}, ColorWhite, 0, 0)
	}
	return photons
}

func TestHashGridMatchesBruteForce(t *testing.T) {
	const radius = 0.07
	photons := randomPhotons(2000, 11)

	var grid HashGrid
	grid.Build(photons, radius)

	queries := []Vec3{
		{0.5, 0.5, 0.5}, {0.1, 0.9, 0.3}, {0, 0, 0}, {1, 1, 1}, {0.73, 0.21, 0.55},
	}

	for _, q := range queries {
		found := map[uint32]bool{}
		grid.Process(q, photons, func(index uint32) {
			if found[index] {
				t.Fatalf("photon %d visited twice", index)
			}
			found[index] = true
		})

		for i := range photons {
			d := photons[i].Pos().Sub(q)
			inRange := d.SqrLength() <= radius*radius
			if inRange != found[uint32(i)] {
				t.Errorf("query %v photon %d: in range %v, visited %v", q, i, inRange, found[uint32(i)])
			}
		}
	}
}

func TestHashGridExpectedNeighborCount(t *testing.T) {
	// uniform photons in the unit cube: E[visits] per interior query is
	// P * (4/3) pi r^3
	const (
		n      = 50000
		radius = 0.05
	)
	photons := randomPhotons(n, 23)

	var grid HashGrid
	grid.Build(photons, radius)

	var rng Random
	rng.Seed(37)
	var total float64
	const numQueries = 200
	for i := 0; i < numQueries; i++ {
		// keep queries in the interior so the sphere stays inside the cube
		q := Vec3{
			radius + rng.Float()*(1-2*radius),
			radius + rng.Float()*(1-2*radius),
			radius + rng.Float()*(1-2*radius),
		}
		count := 0
		grid.Process(q, photons, func(uint32) { count++ })
		total += float64(count)
	}

	mean := total / numQueries
	expected := float64(n) * (4.0 / 3.0) * math.Pi * float64(radius*radius*radius)
	if mean < expected*0.8 || mean > expected*1.2 {
		t.Errorf("mean neighbor count = %.2f, expected ~%.2f", mean, expected)
	}
}

func TestHashGridEmpty(t *testing.T) {
	var grid HashGrid
	grid.Build(nil, 0.1)
	called := false
	grid.Process(Vec3{0, 0, 0}, nil, func(uint32) { called = true })
	if called {
		t.Error("visitor invoked on an empty grid")
	}
}

func TestHashGridRebuildReusesStorage(t *testing.T) {
	photons := randomPhotons(100, 3)
	var grid HashGrid
	grid.Build(photons, 0.1)
	grid.Build(photons[:50], 0.2)

	if grid.Radius() != 0.2 {
		t.Errorf("Radius = %f, want 0.2", grid.Radius())
	}
	count := 0
	grid.Process(photons[0].Pos(), photons[:50], func(uint32) { count++ })
	if count == 0 {
		t.Error("rebuild lost the photons")
	}
}
