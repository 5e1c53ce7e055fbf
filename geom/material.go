package geom

import "github.com/phanxgames/lumen"

// Lambert is an ideal diffuse reflector.
type Lambert struct {
	Albedo lumen.Color
}

// Sample implements lumen.Material with cosine-weighted hemisphere
// sampling. The returned weight is exactly the albedo, since the cosine and
// the density cancel.
func (m *Lambert) Sample(sd *lumen.ShadingData, u [3]float32) (lumen.Vec3, lumen.Color, float32, lumen.BSDFEvent) {
	if sd.Intersection.CosTheta(sd.OutgoingDir) <= 0 {
		return lumen.Vec3{}, lumen.ColorBlack, 0, lumen.NullEvent
	}

	local := cosineSampleHemisphere(u[0], u[1])
	dir := localToWorld(&sd.Intersection, local)
	pdfW := local.Z / pi
	if pdfW <= 0 {
		return lumen.Vec3{}, lumen.ColorBlack, 0, lumen.NullEvent
	}
	return dir, m.Albedo, pdfW, lumen.DiffuseEvent
}

// Evaluate implements lumen.Material; the returned value includes the
// incident cosine.
func (m *Lambert) Evaluate(sd *lumen.ShadingData, dir lumen.Vec3) (lumen.Color, float32, float32) {
	cosIn := sd.Intersection.CosTheta(dir)
	cosOut := sd.Intersection.CosTheta(sd.OutgoingDir)
	if cosIn <= 0 || cosOut <= 0 {
		return lumen.ColorBlack, 0, 0
	}
	value := m.Albedo.Scale(cosIn / pi)
	return value, cosIn / pi, cosOut / pi
}

// Pdf implements lumen.Material.
func (m *Lambert) Pdf(sd *lumen.ShadingData, dir lumen.Vec3) (float32, float32) {
	cosIn := sd.Intersection.CosTheta(dir)
	cosOut := sd.Intersection.CosTheta(sd.OutgoingDir)
	if cosIn <= 0 || cosOut <= 0 {
		return 0, 0
	}
	return cosIn / pi, cosOut / pi
}

// IsDelta implements lumen.Material.
func (m *Lambert) IsDelta() bool { return false }

// Mirror is an ideal specular reflector.
type Mirror struct {
	Reflectance lumen.Color
}

// Sample implements lumen.Material; the single direction carries the full
// reflectance.
func (m *Mirror) Sample(sd *lumen.ShadingData, u [3]float32) (lumen.Vec3, lumen.Color, float32, lumen.BSDFEvent) {
	cosOut := sd.Intersection.CosTheta(sd.OutgoingDir)
	if cosOut <= 0 {
		return lumen.Vec3{}, lumen.ColorBlack, 0, lumen.NullEvent
	}
	dir := reflect(sd.OutgoingDir, sd.Intersection.Normal)
	return dir, m.Reflectance, 1, lumen.SpecularEvent
}

// Evaluate implements lumen.Material; a delta BSDF evaluates to zero.
func (m *Mirror) Evaluate(*lumen.ShadingData, lumen.Vec3) (lumen.Color, float32, float32) {
	return lumen.ColorBlack, 0, 0
}

// Pdf implements lumen.Material.
func (m *Mirror) Pdf(*lumen.ShadingData, lumen.Vec3) (float32, float32) { return 0, 0 }

// IsDelta implements lumen.Material.
func (m *Mirror) IsDelta() bool { return true }

// Metal is a glossy Phong-lobe reflector.
type Metal struct {
	Reflectance lumen.Color
	// Shininess is the Phong exponent; higher is sharper.
	Shininess float32
}

// Sample implements lumen.Material by sampling the power-cosine lobe around
// the mirror direction.
func (m *Metal) Sample(sd *lumen.ShadingData, u [3]float32) (lumen.Vec3, lumen.Color, float32, lumen.BSDFEvent) {
	cosOut := sd.Intersection.CosTheta(sd.OutgoingDir)
	if cosOut <= 0 {
		return lumen.Vec3{}, lumen.ColorBlack, 0, lumen.NullEvent
	}

	r := reflect(sd.OutgoingDir, sd.Intersection.Normal)
	dir := samplePowerCosine(r, m.Shininess, u[0], u[1])

	cosIn := sd.Intersection.CosTheta(dir)
	if cosIn <= 0 {
		return lumen.Vec3{}, lumen.ColorBlack, 0, lumen.NullEvent
	}

	value, pdfW, _ := m.Evaluate(sd, dir)
	if pdfW <= 0 {
		return lumen.Vec3{}, lumen.ColorBlack, 0, lumen.NullEvent
	}
	return dir, value.Scale(1 / pdfW), pdfW, lumen.GlossyEvent
}

// Evaluate implements lumen.Material.
func (m *Metal) Evaluate(sd *lumen.ShadingData, dir lumen.Vec3) (lumen.Color, float32, float32) {
	cosIn := sd.Intersection.CosTheta(dir)
	cosOut := sd.Intersection.CosTheta(sd.OutgoingDir)
	if cosIn <= 0 || cosOut <= 0 {
		return lumen.ColorBlack, 0, 0
	}

	r := reflect(sd.OutgoingDir, sd.Intersection.Normal)
	cosAlpha := r.Dot(dir)
	if cosAlpha <= 0 {
		return lumen.ColorBlack, 0, 0
	}

	n := m.Shininess
	lobe := pow32(cosAlpha, n)
	pdfW := (n + 1) / (2 * pi) * lobe
	value := m.Reflectance.Scale((n + 2) / (2 * pi) * lobe * cosIn)

	// the lobe is symmetric in its two directions, so forward and reverse
	// densities coincide
	return value, pdfW, pdfW
}

// Pdf implements lumen.Material.
func (m *Metal) Pdf(sd *lumen.ShadingData, dir lumen.Vec3) (float32, float32) {
	_, pdfW, revPdfW := m.Evaluate(sd, dir)
	return pdfW, revPdfW
}

// IsDelta implements lumen.Material.
func (m *Metal) IsDelta() bool { return false }

// cosineSampleHemisphere maps the unit square to a cosine-weighted
// direction in the local +Z hemisphere.
func cosineSampleHemisphere(u, v float32) lumen.Vec3 {
	r := sqrt32(u)
	phi := 2 * pi * v
	return lumen.Vec3{
		X: r * cos32(phi),
		Y: r * sin32(phi),
		Z: sqrt32(max32(0, 1-u)),
	}
}

// samplePowerCosine draws a direction from the (exponent n) power-cosine
// lobe around axis.
func samplePowerCosine(axis lumen.Vec3, n, u, v float32) lumen.Vec3 {
	cosTheta := pow32(u, 1/(n+1))
	sinTheta := sqrt32(max32(0, 1-cosTheta*cosTheta))
	phi := 2 * pi * v
	t, b := lumen.OrthonormalBasis(axis)
	return t.Scale(sinTheta * cos32(phi)).
		Add(b.Scale(sinTheta * sin32(phi))).
		Add(axis.Scale(cosTheta)).Normalized()
}

// localToWorld lifts a shading-frame direction to world space.
func localToWorld(isect *lumen.IntersectionData, local lumen.Vec3) lumen.Vec3 {
	return isect.Tangent.Scale(local.X).
		Add(isect.Binormal.Scale(local.Y)).
		Add(isect.Normal.Scale(local.Z))
}

// reflect mirrors the outgoing direction about the normal.
func reflect(out, normal lumen.Vec3) lumen.Vec3 {
	return normal.Scale(2 * normal.Dot(out)).Sub(out)
}
