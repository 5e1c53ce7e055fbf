package lumen

import "math"

// Box is an axis-aligned bounding box. A valid box has Min <= Max
// componentwise; the empty box (Min = +Inf, Max = -Inf) is the union
// identity.
type Box struct {
	Min, Max Vec3
}

// EmptyBox returns the empty sentinel box. Union with any box yields that
// box.
func EmptyBox() Box {
	inf := float32(math.Inf(1))
	return Box{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// Union returns the smallest box enclosing both b and o.
func (b Box) Union(o Box) Box {
	return Box{Min: MinVec(b.Min, o.Min), Max: MaxVec(b.Max, o.Max)}
}

// UnionPoint returns the smallest box enclosing b and the point p.
func (b Box) UnionPoint(p Vec3) Box {
	return Box{Min: MinVec(b.Min, p), Max: MaxVec(b.Max, p)}
}

// Contains reports whether p lies inside b (boundary inclusive).
func (b Box) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Size returns the box extents (Max - Min).
func (b Box) Size() Vec3 { return b.Max.Sub(b.Min) }

// Center returns the box center.
func (b Box) Center() Vec3 { return b.Min.Add(b.Max).Scale(0.5) }

// SurfaceArea returns the total surface area of b. The empty box reports 0.
func (b Box) SurfaceArea() float32 {
	s := b.Size()
	if s.X < 0 || s.Y < 0 || s.Z < 0 {
		return 0
	}
	return 2 * (s.X*s.Y + s.Y*s.Z + s.Z*s.X)
}

// Volume returns the volume of b. The empty box reports 0.
func (b Box) Volume() float32 {
	s := b.Size()
	if s.X < 0 || s.Y < 0 || s.Z < 0 {
		return 0
	}
	return s.X * s.Y * s.Z
}

// Intersect performs a slab test of ray r against b over [0, maxDist].
// It returns the entry distance (clamped to 0 for origins inside the box)
// and whether the interval is non-empty.
func (b Box) Intersect(r *Ray, maxDist float32) (tNear float32, hit bool) {
	t1x := (b.Min.X - r.Origin.X) * r.InvDir.X
	t2x := (b.Max.X - r.Origin.X) * r.InvDir.X
	t1y := (b.Min.Y - r.Origin.Y) * r.InvDir.Y
	t2y := (b.Max.Y - r.Origin.Y) * r.InvDir.Y
	t1z := (b.Min.Z - r.Origin.Z) * r.InvDir.Z
	t2z := (b.Max.Z - r.Origin.Z) * r.InvDir.Z

	tMin := max32(max32(min32(t1x, t2x), min32(t1y, t2y)), min32(t1z, t2z))
	tMax := min32(min32(max32(t1x, t2x), max32(t1y, t2y)), max32(t1z, t2z))

	if tMax < 0 || tMin > tMax || tMin > maxDist {
		return 0, false
	}
	return max32(tMin, 0), true
}

// IntersectBox8 tests one box against 8 rays held in SoA form and returns a
// lane mask of the rays whose intersection interval with the box is
// non-empty, together with the lanewise entry distances.
func IntersectBox8(b Box, g *RayGroup8, maxDist Float8) (tNear Float8, mask Int8) {
	t1x := SplatF8(b.Min.X).Sub(g.OriginX).Mul(g.InvDirX)
	t2x := SplatF8(b.Max.X).Sub(g.OriginX).Mul(g.InvDirX)
	t1y := SplatF8(b.Min.Y).Sub(g.OriginY).Mul(g.InvDirY)
	t2y := SplatF8(b.Max.Y).Sub(g.OriginY).Mul(g.InvDirY)
	t1z := SplatF8(b.Min.Z).Sub(g.OriginZ).Mul(g.InvDirZ)
	t2z := SplatF8(b.Max.Z).Sub(g.OriginZ).Mul(g.InvDirZ)

	tMin := t1x.Min(t2x).Max(t1y.Min(t2y)).Max(t1z.Min(t2z))
	tMax := t1x.Max(t2x).Min(t1y.Max(t2y)).Min(t1z.Max(t2z))

	zero := SplatF8(0)
	mask = tMin.CmpLE(tMax).And(zero.CmpLE(tMax)).And(tMin.CmpLE(maxDist))
	return tMin.Max(zero), mask
}
