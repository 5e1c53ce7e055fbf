package lumen

// Ray is a single ray with a cached reciprocal direction for slab tests.
type Ray struct {
	Origin Vec3
	Dir    Vec3
	InvDir Vec3
}

// NewRay builds a ray from an origin and a direction. The direction is
// normalized.
func NewRay(origin, dir Vec3) Ray {
	d := dir.Normalized()
	return Ray{Origin: origin, Dir: d, InvDir: d.Reciprocal()}
}

// At returns the point origin + dir*t.
func (r *Ray) At(t float32) Vec3 { return r.Origin.Add(r.Dir.Scale(t)) }

// IsValid reports whether origin and direction are finite and the direction
// is non-zero.
func (r *Ray) IsValid() bool {
	return r.Origin.IsValid() && r.Dir.IsValid() && r.Dir.SqrLength() > 0
}

// RayGroup8 holds 8 rays in SoA layout for packet traversal.
type RayGroup8 struct {
	OriginX, OriginY, OriginZ Float8
	DirX, DirY, DirZ          Float8
	InvDirX, InvDirY, InvDirZ Float8
}

// SetRay stores ray r into lane i.
func (g *RayGroup8) SetRay(i int, r *Ray) {
	g.OriginX[i] = r.Origin.X
	g.OriginY[i] = r.Origin.Y
	g.OriginZ[i] = r.Origin.Z
	g.DirX[i] = r.Dir.X
	g.DirY[i] = r.Dir.Y
	g.DirZ[i] = r.Dir.Z
	g.InvDirX[i] = r.InvDir.X
	g.InvDirY[i] = r.InvDir.Y
	g.InvDirZ[i] = r.InvDir.Z
}

// Ray reconstructs the scalar ray in lane i.
func (g *RayGroup8) Ray(i int) Ray {
	return Ray{
		Origin: Vec3{g.OriginX[i], g.OriginY[i], g.OriginZ[i]},
		Dir:    Vec3{g.DirX[i], g.DirY[i], g.DirZ[i]},
		InvDir: Vec3{g.InvDirX[i], g.InvDirY[i], g.InvDirZ[i]},
	}
}

// SignMask returns, for the given axis, a bitmask of the lanes whose
// direction is negative along that axis. Used as the packet coherence
// heuristic: a packet whose rays disagree on traversal order falls back to
// per-ray traversal.
func (g *RayGroup8) SignMask(axis int) uint32 {
	var dirs *Float8
	switch axis {
	case 0:
		dirs = &g.DirX
	case 1:
		dirs = &g.DirY
	default:
		dirs = &g.DirZ
	}
	var m uint32
	for i, d := range dirs {
		if d < 0 {
			m |= 1 << uint(i)
		}
	}
	return m
}

// ImageLocation identifies the film pixel a packet ray belongs to.
type ImageLocation struct {
	X, Y uint16
}

// rayGroupSizeX by rayGroupSizeY is the pixel footprint of one ray group.
const (
	rayGroupSizeX = 4
	rayGroupSizeY = 2
	rayGroupSize  = rayGroupSizeX * rayGroupSizeY
)

// RayPacket collects coherent primary ray groups for one tile.
type RayPacket struct {
	Groups    []RayGroup8
	Locations []ImageLocation // rayGroupSize entries per group
}

// Clear empties the packet, keeping capacity.
func (p *RayPacket) Clear() {
	p.Groups = p.Groups[:0]
	p.Locations = p.Locations[:0]
}

// PushGroup appends an 8-ray group and its pixel locations.
func (p *RayPacket) PushGroup(g *RayGroup8, locations [rayGroupSize]ImageLocation) {
	p.Groups = append(p.Groups, *g)
	p.Locations = append(p.Locations, locations[:]...)
}
