package geom

import "github.com/phanxgames/lumen"

// uniformSpherePdfW is the density of a uniformly sampled direction.
const uniformSpherePdfW = 1 / (4 * pi)

// uniformSampleSphere maps the unit square to a uniform direction.
func uniformSampleSphere(u, v float32) lumen.Vec3 {
	z := 1 - 2*u
	r := sqrt32(max32(0, 1-z*z))
	phi := 2 * pi * v
	return lumen.Vec3{X: r * cos32(phi), Y: r * sin32(phi), Z: z}
}

// PointLight emits uniformly in all directions from a single point.
type PointLight struct {
	Position  lumen.Vec3
	Intensity lumen.Color // radiant intensity, power per solid angle
}

// Flags implements lumen.Light.
func (l *PointLight) Flags() lumen.LightFlags { return lumen.LightIsFinite | lumen.LightIsDelta }

// Emit implements lumen.Light.
func (l *PointLight) Emit(u3 [3]float32, u2 [2]float32) (lumen.Color, lumen.EmitResult) {
	return l.Intensity, lumen.EmitResult{
		Position:     l.Position,
		Direction:    uniformSampleSphere(u2[0], u2[1]),
		EmissionPdfW: uniformSpherePdfW,
		DirectPdfA:   1,
		CosAtLight:   1,
	}
}

// Illuminate implements lumen.Light.
func (l *PointLight) Illuminate(ref *lumen.IntersectionData, u [3]float32) (lumen.Color, lumen.IlluminateResult) {
	toLight := l.Position.Sub(ref.Position)
	distSqr := toLight.SqrLength()
	dist := sqrt32(distSqr)

	return l.Intensity, lumen.IlluminateResult{
		DirectionToLight: toLight.Scale(1 / dist),
		Distance:         dist,
		DirectPdfW:       distSqr,
		EmissionPdfW:     uniformSpherePdfW,
		CosAtLight:       1,
	}
}

// GetRadiance implements lumen.Light; delta lights cannot be hit.
func (l *PointLight) GetRadiance(lumen.Vec3, lumen.Vec3) (lumen.Color, lumen.RadianceResult) {
	return lumen.ColorBlack, lumen.RadianceResult{}
}

// SpotLight is a point emitter restricted to a cone.
type SpotLight struct {
	Position  lumen.Vec3
	Direction lumen.Vec3 // cone axis, unit length
	// CosAngle is the cosine of the cone half-angle.
	CosAngle  float32
	Intensity lumen.Color
}

// Flags implements lumen.Light.
func (l *SpotLight) Flags() lumen.LightFlags { return lumen.LightIsFinite | lumen.LightIsDelta }

// coneSolidAngle returns the solid angle of the emission cone.
func (l *SpotLight) coneSolidAngle() float32 { return 2 * pi * (1 - l.CosAngle) }

// Emit implements lumen.Light with uniform sampling inside the cone.
func (l *SpotLight) Emit(u3 [3]float32, u2 [2]float32) (lumen.Color, lumen.EmitResult) {
	cosTheta := 1 - u2[0]*(1-l.CosAngle)
	sinTheta := sqrt32(max32(0, 1-cosTheta*cosTheta))
	phi := 2 * pi * u2[1]

	t, b := lumen.OrthonormalBasis(l.Direction)
	dir := t.Scale(sinTheta * cos32(phi)).
		Add(b.Scale(sinTheta * sin32(phi))).
		Add(l.Direction.Scale(cosTheta))

	return l.Intensity, lumen.EmitResult{
		Position:     l.Position,
		Direction:    dir,
		EmissionPdfW: 1 / l.coneSolidAngle(),
		DirectPdfA:   1,
		CosAtLight:   1,
	}
}

// Illuminate implements lumen.Light; receivers outside the cone get
// nothing.
func (l *SpotLight) Illuminate(ref *lumen.IntersectionData, u [3]float32) (lumen.Color, lumen.IlluminateResult) {
	toLight := l.Position.Sub(ref.Position)
	distSqr := toLight.SqrLength()
	dist := sqrt32(distSqr)
	dirToLight := toLight.Scale(1 / dist)

	if dirToLight.Neg().Dot(l.Direction) < l.CosAngle {
		return lumen.ColorBlack, lumen.IlluminateResult{}
	}

	return l.Intensity, lumen.IlluminateResult{
		DirectionToLight: dirToLight,
		Distance:         dist,
		DirectPdfW:       distSqr,
		EmissionPdfW:     1 / l.coneSolidAngle(),
		CosAtLight:       1,
	}
}

// GetRadiance implements lumen.Light.
func (l *SpotLight) GetRadiance(lumen.Vec3, lumen.Vec3) (lumen.Color, lumen.RadianceResult) {
	return lumen.ColorBlack, lumen.RadianceResult{}
}

// DirectionalLight approximates a source at infinity (sun). Emission rays
// originate on a disk bracketing the scene; the scene installs the bounds
// at build time.
type DirectionalLight struct {
	Direction lumen.Vec3 // travel direction of the light, unit length
	Radiance  lumen.Color

	sceneCenter lumen.Vec3
	sceneRadius float32
}

// Flags implements lumen.Light.
func (l *DirectionalLight) Flags() lumen.LightFlags { return lumen.LightIsDelta }

func (l *DirectionalLight) setSceneBounds(box lumen.Box) {
	l.sceneCenter = box.Center()
	l.sceneRadius = max32(box.Size().Length()*0.5, 1)
}

// diskPdfA is the area density of the emission disk.
func (l *DirectionalLight) diskPdfA() float32 {
	return 1 / (pi * l.sceneRadius * l.sceneRadius)
}

// Emit implements lumen.Light.
func (l *DirectionalLight) Emit(u3 [3]float32, u2 [2]float32) (lumen.Color, lumen.EmitResult) {
	// concentric-ish disk point upstream of the scene
	r := l.sceneRadius * sqrt32(u3[0])
	phi := 2 * pi * u3[1]
	t, b := lumen.OrthonormalBasis(l.Direction)
	offset := t.Scale(r * cos32(phi)).Add(b.Scale(r * sin32(phi)))
	origin := l.sceneCenter.Sub(l.Direction.Scale(2 * l.sceneRadius)).Add(offset)

	return l.Radiance, lumen.EmitResult{
		Position:     origin,
		Direction:    l.Direction,
		EmissionPdfW: l.diskPdfA(),
		DirectPdfA:   1,
		CosAtLight:   1,
	}
}

// Illuminate implements lumen.Light.
func (l *DirectionalLight) Illuminate(ref *lumen.IntersectionData, u [3]float32) (lumen.Color, lumen.IlluminateResult) {
	return l.Radiance, lumen.IlluminateResult{
		DirectionToLight: l.Direction.Neg(),
		Distance:         4 * l.sceneRadius,
		DirectPdfW:       1,
		EmissionPdfW:     l.diskPdfA(),
		CosAtLight:       1,
	}
}

// GetRadiance implements lumen.Light.
func (l *DirectionalLight) GetRadiance(lumen.Vec3, lumen.Vec3) (lumen.Color, lumen.RadianceResult) {
	return lumen.ColorBlack, lumen.RadianceResult{}
}

// AreaLight is a Lambertian emitter over a shape, usually a quad. It is
// registered through Scene.AddAreaLight so camera rays can hit it.
type AreaLight struct {
	Shape    Shape
	Radiance lumen.Color

	invArea float32
}

// NewAreaLight wraps a shape as a diffuse emitter.
func NewAreaLight(shape Shape, radiance lumen.Color) *AreaLight {
	return &AreaLight{
		Shape:    shape,
		Radiance: radiance,
		invArea:  1 / shape.Area(),
	}
}

// Flags implements lumen.Light.
func (l *AreaLight) Flags() lumen.LightFlags { return lumen.LightIsFinite }

// Emit implements lumen.Light: a uniform surface point with a
// cosine-weighted direction.
func (l *AreaLight) Emit(u3 [3]float32, u2 [2]float32) (lumen.Color, lumen.EmitResult) {
	pos, normal := l.Shape.SamplePoint(u3[0], u3[1])

	local := cosineSampleHemisphere(u2[0], u2[1])
	t, b := lumen.OrthonormalBasis(normal)
	dir := t.Scale(local.X).Add(b.Scale(local.Y)).Add(normal.Scale(local.Z))
	cosTheta := local.Z

	if cosTheta <= 0 {
		return lumen.ColorBlack, lumen.EmitResult{}
	}

	return l.Radiance.Scale(cosTheta), lumen.EmitResult{
		Position:     pos,
		Direction:    dir,
		EmissionPdfW: l.invArea * cosTheta / pi,
		DirectPdfA:   l.invArea,
		CosAtLight:   cosTheta,
	}
}

// Illuminate implements lumen.Light.
func (l *AreaLight) Illuminate(ref *lumen.IntersectionData, u [3]float32) (lumen.Color, lumen.IlluminateResult) {
	pos, normal := l.Shape.SamplePoint(u[0], u[1])

	toLight := pos.Sub(ref.Position)
	distSqr := toLight.SqrLength()
	dist := sqrt32(distSqr)
	dirToLight := toLight.Scale(1 / dist)

	cosAtLight := normal.Dot(dirToLight.Neg())
	if cosAtLight <= 1e-6 {
		return lumen.ColorBlack, lumen.IlluminateResult{}
	}

	return l.Radiance, lumen.IlluminateResult{
		DirectionToLight: dirToLight,
		Distance:         dist,
		DirectPdfW:       l.invArea * distSqr / cosAtLight,
		EmissionPdfW:     l.invArea * cosAtLight / pi,
		CosAtLight:       cosAtLight,
	}
}

// GetRadiance implements lumen.Light for camera rays that hit the emitter.
func (l *AreaLight) GetRadiance(rayDir lumen.Vec3, hitPos lumen.Vec3) (lumen.Color, lumen.RadianceResult) {
	normal := l.Shape.NormalAt(hitPos)
	cosAtLight := normal.Dot(rayDir.Neg())
	if cosAtLight <= 0 {
		return lumen.ColorBlack, lumen.RadianceResult{}
	}
	return l.Radiance, lumen.RadianceResult{
		DirectPdfA:   l.invArea,
		EmissionPdfW: l.invArea * cosAtLight / pi,
	}
}

// BackgroundLight is a constant environment shell evaluated when rays leave
// the scene.
type BackgroundLight struct {
	Radiance lumen.Color

	sceneCenter lumen.Vec3
	sceneRadius float32
}

// Flags implements lumen.Light.
func (l *BackgroundLight) Flags() lumen.LightFlags { return 0 }

func (l *BackgroundLight) setSceneBounds(box lumen.Box) {
	l.sceneCenter = box.Center()
	l.sceneRadius = max32(box.Size().Length()*0.5, 1)
}

// Emit implements lumen.Light: a uniform inward direction from the
// bounding shell.
func (l *BackgroundLight) Emit(u3 [3]float32, u2 [2]float32) (lumen.Color, lumen.EmitResult) {
	dir := uniformSampleSphere(u2[0], u2[1])

	r := l.sceneRadius * sqrt32(u3[0])
	phi := 2 * pi * u3[1]
	t, b := lumen.OrthonormalBasis(dir)
	offset := t.Scale(r * cos32(phi)).Add(b.Scale(r * sin32(phi)))
	origin := l.sceneCenter.Sub(dir.Scale(2 * l.sceneRadius)).Add(offset)

	diskPdfA := 1 / (pi * l.sceneRadius * l.sceneRadius)
	return l.Radiance, lumen.EmitResult{
		Position:     origin,
		Direction:    dir,
		EmissionPdfW: uniformSpherePdfW * diskPdfA,
		DirectPdfA:   uniformSpherePdfW,
		CosAtLight:   1,
	}
}

// Illuminate implements lumen.Light.
func (l *BackgroundLight) Illuminate(ref *lumen.IntersectionData, u [3]float32) (lumen.Color, lumen.IlluminateResult) {
	dir := uniformSampleSphere(u[0], u[1])
	if ref.Normal.Dot(dir) <= 0 {
		dir = dir.Neg()
	}
	diskPdfA := 1 / (pi * l.sceneRadius * l.sceneRadius)
	return l.Radiance, lumen.IlluminateResult{
		DirectionToLight: dir,
		Distance:         4 * l.sceneRadius,
		// hemisphere sampling, since the backface half contributes nothing
		DirectPdfW:   2 * uniformSpherePdfW,
		EmissionPdfW: uniformSpherePdfW * diskPdfA,
		CosAtLight:   1,
	}
}

// GetRadiance implements lumen.Light for escaped rays.
func (l *BackgroundLight) GetRadiance(lumen.Vec3, lumen.Vec3) (lumen.Color, lumen.RadianceResult) {
	diskPdfA := 1 / (pi * max32(l.sceneRadius, 1) * max32(l.sceneRadius, 1))
	return l.Radiance, lumen.RadianceResult{
		DirectPdfA:   2 * uniformSpherePdfW,
		EmissionPdfW: uniformSpherePdfW * diskPdfA,
	}
}
