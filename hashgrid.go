package lumen

// HashGrid is a uniform spatial hash over photon positions supporting
// radius-bounded neighbor queries. Cells are cubes of side 2r; a query
// visits the 27 cells surrounding the query point's cell. The grid is
// read-only after Build.
type HashGrid struct {
	box           Box
	radius        float32
	radiusSqr     float32
	invCellSize   float32
	hashMask      uint32
	cellOffsets   []uint32 // prefix sums, len hashSize+1
	photonIndices []uint32 // photon indices bucketed by cell hash
}

// Build indexes the given photons for queries with the given radius.
// Previous contents are discarded; storage is reused across passes.
func (g *HashGrid) Build(photons []Photon, radius float32) {
	g.radius = radius
	g.radiusSqr = radius * radius
	g.invCellSize = 1 / (2 * radius)

	g.box = EmptyBox()
	for i := range photons {
		g.box = g.box.UnionPoint(photons[i].Pos())
	}

	hashSize := nextPow2(uint32(len(photons)))
	if hashSize == 0 {
		hashSize = 1
	}
	g.hashMask = hashSize - 1

	if cap(g.cellOffsets) >= int(hashSize+1) {
		g.cellOffsets = g.cellOffsets[:hashSize+1]
		for i := range g.cellOffsets {
			g.cellOffsets[i] = 0
		}
	} else {
		g.cellOffsets = make([]uint32, hashSize+1)
	}
	if cap(g.photonIndices) >= len(photons) {
		g.photonIndices = g.photonIndices[:len(photons)]
	} else {
		g.photonIndices = make([]uint32, len(photons))
	}

	// counting pass
	for i := range photons {
		g.cellOffsets[g.hashOf(photons[i].Pos())]++
	}

	// exclusive prefix sum
	var sum uint32
	for i := range g.cellOffsets {
		count := g.cellOffsets[i]
		g.cellOffsets[i] = sum
		sum += count
	}

	// scatter pass; offsets advance to become the final (shifted) sums
	for i := range photons {
		h := g.hashOf(photons[i].Pos())
		g.photonIndices[g.cellOffsets[h]] = uint32(i)
		g.cellOffsets[h]++
	}
}

// Radius returns the query radius the grid was built for.
func (g *HashGrid) Radius() float32 { return g.radius }

// Process invokes visitor for every indexed photon within the build radius
// of point. The visitor receives an index into the photon array passed to
// Build.
func (g *HashGrid) Process(point Vec3, photons []Photon, visitor func(photonIndex uint32)) {
	if len(g.photonIndices) == 0 {
		return
	}

	cx, cy, cz := g.cellOf(point)

	for dz := int32(-1); dz <= 1; dz++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dx := int32(-1); dx <= 1; dx++ {
				h := hashCell(cx+dx, cy+dy, cz+dz) & g.hashMask
				start := uint32(0)
				if h > 0 {
					start = g.cellOffsets[h-1]
				}
				end := g.cellOffsets[h]
				for i := start; i < end; i++ {
					idx := g.photonIndices[i]
					p := photons[idx].Pos()
					// buckets are shared across hash collisions; only
					// accept photons actually quantized to this cell so
					// each photon is visited at most once
					px, py, pz := g.cellOf(p)
					if px != cx+dx || py != cy+dy || pz != cz+dz {
						continue
					}
					if p.Sub(point).SqrLength() <= g.radiusSqr {
						visitor(idx)
					}
				}
			}
		}
	}
}

// cellOf quantizes a point to integer cell coordinates.
func (g *HashGrid) cellOf(p Vec3) (x, y, z int32) {
	d := p.Sub(g.box.Min)
	return int32(floor32(d.X * g.invCellSize)),
		int32(floor32(d.Y * g.invCellSize)),
		int32(floor32(d.Z * g.invCellSize))
}

func (g *HashGrid) hashOf(p Vec3) uint32 {
	x, y, z := g.cellOf(p)
	return hashCell(x, y, z) & g.hashMask
}

// hashCell mixes integer cell coordinates into a hash bucket.
func hashCell(x, y, z int32) uint32 {
	return uint32(x)*73856093 ^ uint32(y)*19349663 ^ uint32(z)*83492791
}

func nextPow2(v uint32) uint32 {
	if v == 0 {
		return 0
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	return v + 1
}

func floor32(x float32) float32 {
	i := float32(int32(x))
	if i > x {
		return i - 1
	}
	return i
}
