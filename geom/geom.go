// Package geom is a compact scene kit for the lumen core: sphere and quad
// primitives compiled into a BVH-backed scene, diffuse and specular
// materials, a family of light sources, and a pinhole camera. The demos and
// the end-to-end tests build their scenes from it; the core itself only
// ever sees the lumen interfaces it implements.
package geom

import (
	"math"

	"github.com/phanxgames/lumen"
)

// Shape is a renderable primitive.
type Shape interface {
	// Bounds returns the shape's bounding box.
	Bounds() lumen.Box
	// Intersect returns the closest intersection distance within
	// (0, maxDist), with surface parameters.
	Intersect(ray *lumen.Ray, maxDist float32) (t, u, v float32, ok bool)
	// NormalAt returns the geometric normal at a surface point.
	NormalAt(p lumen.Vec3) lumen.Vec3
	// Area returns the total surface area.
	Area() float32
	// SamplePoint maps unit square coordinates to a surface point and its
	// normal.
	SamplePoint(u, v float32) (pos, normal lumen.Vec3)
}

// Sphere is a full sphere.
type Sphere struct {
	Center lumen.Vec3
	Radius float32
}

// Bounds implements Shape.
func (s *Sphere) Bounds() lumen.Box {
	r := lumen.Vec3{X: s.Radius, Y: s.Radius, Z: s.Radius}
	return lumen.Box{Min: s.Center.Sub(r), Max: s.Center.Add(r)}
}

// Intersect implements Shape.
func (s *Sphere) Intersect(ray *lumen.Ray, maxDist float32) (t, u, v float32, ok bool) {
	oc := ray.Origin.Sub(s.Center)
	b := oc.Dot(ray.Dir)
	c := oc.SqrLength() - s.Radius*s.Radius
	disc := b*b - c
	if disc < 0 {
		return 0, 0, 0, false
	}
	sq := sqrt32(disc)

	t = -b - sq
	if t <= 0 {
		t = -b + sq
	}
	if t <= 0 || t >= maxDist {
		return 0, 0, 0, false
	}
	return t, 0, 0, true
}

// NormalAt implements Shape.
func (s *Sphere) NormalAt(p lumen.Vec3) lumen.Vec3 {
	return p.Sub(s.Center).Scale(1 / s.Radius)
}

// Area implements Shape.
func (s *Sphere) Area() float32 { return 4 * pi * s.Radius * s.Radius }

// SamplePoint implements Shape with a uniform sphere mapping.
func (s *Sphere) SamplePoint(u, v float32) (pos, normal lumen.Vec3) {
	z := 1 - 2*u
	r := sqrt32(max32(0, 1-z*z))
	phi := 2 * pi * v
	normal = lumen.Vec3{X: r * cos32(phi), Y: r * sin32(phi), Z: z}
	return s.Center.Add(normal.Scale(s.Radius)), normal
}

// Quad is a parallelogram: Origin plus the span of EdgeU and EdgeV. Its
// geometric normal is EdgeU x EdgeV, normalized.
type Quad struct {
	Origin lumen.Vec3
	EdgeU  lumen.Vec3
	EdgeV  lumen.Vec3

	normal lumen.Vec3
	area   float32
}

// NewQuad builds a quad and caches its derived quantities.
func NewQuad(origin, edgeU, edgeV lumen.Vec3) *Quad {
	n := edgeU.Cross(edgeV)
	area := n.Length()
	return &Quad{
		Origin: origin,
		EdgeU:  edgeU,
		EdgeV:  edgeV,
		normal: n.Scale(1 / area),
		area:   area,
	}
}

// Bounds implements Shape.
func (q *Quad) Bounds() lumen.Box {
	box := lumen.EmptyBox()
	box = box.UnionPoint(q.Origin)
	box = box.UnionPoint(q.Origin.Add(q.EdgeU))
	box = box.UnionPoint(q.Origin.Add(q.EdgeV))
	box = box.UnionPoint(q.Origin.Add(q.EdgeU).Add(q.EdgeV))
	// pad so axis-aligned quads keep a non-degenerate box
	const pad = 1e-4
	box.Min = box.Min.Sub(lumen.Vec3{X: pad, Y: pad, Z: pad})
	box.Max = box.Max.Add(lumen.Vec3{X: pad, Y: pad, Z: pad})
	return box
}

// Intersect implements Shape.
func (q *Quad) Intersect(ray *lumen.Ray, maxDist float32) (t, u, v float32, ok bool) {
	denom := ray.Dir.Dot(q.normal)
	if abs32(denom) < 1e-8 {
		return 0, 0, 0, false
	}
	t = q.Origin.Sub(ray.Origin).Dot(q.normal) / denom
	if t <= 0 || t >= maxDist {
		return 0, 0, 0, false
	}

	p := ray.At(t).Sub(q.Origin)
	// project onto the edge basis
	uu := q.EdgeU.Dot(q.EdgeU)
	uv := q.EdgeU.Dot(q.EdgeV)
	vv := q.EdgeV.Dot(q.EdgeV)
	pu := p.Dot(q.EdgeU)
	pv := p.Dot(q.EdgeV)
	det := uu*vv - uv*uv
	if det == 0 {
		return 0, 0, 0, false
	}
	u = (pu*vv - pv*uv) / det
	v = (pv*uu - pu*uv) / det
	if u < 0 || u > 1 || v < 0 || v > 1 {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

// NormalAt implements Shape.
func (q *Quad) NormalAt(lumen.Vec3) lumen.Vec3 { return q.normal }

// Area implements Shape.
func (q *Quad) Area() float32 { return q.area }

// SamplePoint implements Shape.
func (q *Quad) SamplePoint(u, v float32) (pos, normal lumen.Vec3) {
	return q.Origin.Add(q.EdgeU.Scale(u)).Add(q.EdgeV.Scale(v)), q.normal
}

// AddBox appends the six inward- or outward-facing quads of an axis-aligned
// box to the scene with the given material. Inward faces build enclosures
// like the classic box scenes.
func AddBox(scene *Scene, box lumen.Box, material lumen.Material, inward bool) {
	size := box.Size()
	ex := lumen.Vec3{X: size.X}
	ey := lumen.Vec3{Y: size.Y}
	ez := lumen.Vec3{Z: size.Z}

	faces := [6]*Quad{
		NewQuad(box.Min, ex, ez),                                              // y = min
		NewQuad(lumen.Vec3{X: box.Min.X, Y: box.Max.Y, Z: box.Min.Z}, ez, ex), // y = max
		NewQuad(box.Min, ez, ey),                                              // x = min
		NewQuad(lumen.Vec3{X: box.Max.X, Y: box.Min.Y, Z: box.Min.Z}, ey, ez), // x = max
		NewQuad(box.Min, ey, ex),                                              // z = min
		NewQuad(lumen.Vec3{X: box.Min.X, Y: box.Min.Y, Z: box.Max.Z}, ex, ey), // z = max
	}
	// shading normals are double-sided, so inward only flips the stored
	// geometric normal
	for _, f := range faces {
		if inward == (f.normal.Dot(box.Center().Sub(f.Origin)) < 0) {
			f.normal = f.normal.Neg()
		}
		scene.AddObject(f, material)
	}
}

// AddRoom appends the floor, ceiling, back, and side walls of an
// axis-aligned box, leaving the +Z face open so a camera outside the box
// can look in (the classic Cornell setup).
func AddRoom(scene *Scene, box lumen.Box, material lumen.Material) {
	size := box.Size()
	ex := lumen.Vec3{X: size.X}
	ey := lumen.Vec3{Y: size.Y}
	ez := lumen.Vec3{Z: size.Z}

	walls := [5]*Quad{
		NewQuad(box.Min, ex, ez), // floor
		NewQuad(lumen.Vec3{X: box.Min.X, Y: box.Max.Y, Z: box.Min.Z}, ez, ex), // ceiling
		NewQuad(box.Min, ey, ex),                                              // back
		NewQuad(box.Min, ez, ey),                                              // left
		NewQuad(lumen.Vec3{X: box.Max.X, Y: box.Min.Y, Z: box.Min.Z}, ey, ez), // right
	}
	for _, w := range walls {
		scene.AddObject(w, material)
	}
}

const pi = float32(3.14159265358979323846)

func sqrt32(x float32) float32 { return float32(math.Sqrt(float64(x))) }

func cos32(x float32) float32 { return float32(math.Cos(float64(x))) }

func sin32(x float32) float32 { return float32(math.Sin(float64(x))) }

func tan32(x float32) float32 { return float32(math.Tan(float64(x))) }

func pow32(x, y float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Pow(float64(x), float64(y)))
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
