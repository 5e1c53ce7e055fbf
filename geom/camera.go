package geom

import "github.com/phanxgames/lumen"

// PinholeCamera is a perspective camera implementing lumen.CameraModel.
// Its importance density is normalized over the whole film, so the light
// tracer's splat needs no separate light-path-count division.
type PinholeCamera struct {
	position lumen.Vec3
	forward  lumen.Vec3
	right    lumen.Vec3
	up       lumen.Vec3

	width, height  float32
	imagePlaneDist float32 // in pixel units
}

// NewPinholeCamera builds a camera at position looking at target. fovY is
// the vertical field of view in radians; width and height are the film
// resolution.
func NewPinholeCamera(position, target, up lumen.Vec3, fovY float32, width, height uint32) *PinholeCamera {
	forward := target.Sub(position).Normalized()
	right := forward.Cross(up).Normalized()
	trueUp := right.Cross(forward)

	h := float32(height)
	return &PinholeCamera{
		position:       position,
		forward:        forward,
		right:          right,
		up:             trueUp,
		width:          float32(width),
		height:         h,
		imagePlaneDist: h / (2 * tan32(fovY/2)),
	}
}

// Position implements lumen.CameraModel.
func (c *PinholeCamera) Position() lumen.Vec3 { return c.position }

// GenerateRay implements lumen.CameraModel. (u, v) are normalized film
// coordinates with v growing upward.
func (c *PinholeCamera) GenerateRay(u, v float32, ctx *lumen.RenderingContext) lumen.Ray {
	px := u*c.width - c.width/2
	py := v*c.height - c.height/2

	dir := c.forward.Scale(c.imagePlaneDist).
		Add(c.right.Scale(px)).
		Add(c.up.Scale(py))
	return lumen.NewRay(c.position, dir)
}

// WorldToFilm implements lumen.CameraModel, returning film-storage pixel
// coordinates (y growing downward).
func (c *PinholeCamera) WorldToFilm(p lumen.Vec3) (lumen.Vec2, bool) {
	d := p.Sub(c.position)
	z := d.Dot(c.forward)
	if z <= 0 {
		return lumen.Vec2{}, false
	}

	scale := c.imagePlaneDist / z
	px := d.Dot(c.right)*scale + c.width/2
	py := d.Dot(c.up)*scale + c.height/2
	if px < 0 || px >= c.width || py < 0 || py >= c.height {
		return lumen.Vec2{}, false
	}

	return lumen.Vec2{X: px, Y: c.height - 1 - py}, true
}

// PdfW implements lumen.CameraModel: the film-normalized solid-angle
// density of a camera direction.
func (c *PinholeCamera) PdfW(dir lumen.Vec3) float32 {
	cosTheta := dir.Normalized().Dot(c.forward)
	if cosTheta <= 0 {
		return 0
	}
	d := c.imagePlaneDist
	return d * d / (cosTheta * cosTheta * cosTheta * c.width * c.height)
}
