package lumen

import "math"

// DefaultHitDistance initializes a closest-hit query to "no hit yet".
const DefaultHitDistance = float32(math.MaxFloat32)

// InvalidObject is the ObjectID of a missed ray.
const InvalidObject = ^uint32(0)

// HitPoint is the narrow result of a closest-hit query. Distance doubles as
// the search bound during traversal.
type HitPoint struct {
	Distance    float32
	ObjectID    uint32
	SubObjectID uint32
	U, V        float32
}

// Reset prepares the hit point for a fresh closest-hit query.
func (h *HitPoint) Reset() {
	h.Distance = DefaultHitDistance
	h.ObjectID = InvalidObject
	h.SubObjectID = 0
	h.U, h.V = 0, 0
}

// Missed reports whether the query found no intersection.
func (h *HitPoint) Missed() bool { return h.ObjectID == InvalidObject }

// IntersectionData is the evaluated local geometry at a hit point: the
// shading frame, texture coordinates, the surface material, and - when the
// hit object is a light - the light itself.
type IntersectionData struct {
	Position Vec3
	Normal   Vec3
	Tangent  Vec3
	Binormal Vec3
	U, V     float32

	Material Material
	// HitLight is non-nil when the intersected object is a light source;
	// the integrator then evaluates its radiance instead of shading.
	HitLight Light
}

// CosTheta returns the cosine between dir and the shading normal.
func (i *IntersectionData) CosTheta(dir Vec3) float32 { return i.Normal.Dot(dir) }

// WorldToLocal expresses a world direction in the shading frame.
func (i *IntersectionData) WorldToLocal(dir Vec3) Vec3 {
	return Vec3{dir.Dot(i.Tangent), dir.Dot(i.Binormal), dir.Dot(i.Normal)}
}

// ShadingData bundles the intersection with the outgoing (toward viewer)
// direction the BSDF calls need.
type ShadingData struct {
	Intersection IntersectionData
	OutgoingDir  Vec3 // world space, points away from the surface
}

// Scene is the geometry collaborator the integrators consume. A scene owns
// its primitives and resolves ray queries, typically through a BVH built
// with BuildBVH.
type Scene interface {
	// Traverse records the closest intersection in hit. hit must be Reset
	// (or bounded) by the caller.
	Traverse(ray *Ray, hit *HitPoint, ctx *RenderingContext)
	// TraverseShadow reports whether anything intersects the ray closer
	// than maxDist.
	TraverseShadow(ray *Ray, maxDist float32, ctx *RenderingContext) bool
	// EvaluateIntersection fills out the local shading frame, material, and
	// uv for a hit produced by Traverse.
	EvaluateIntersection(ray *Ray, hit *HitPoint, time float32, out *IntersectionData)
	// Lights returns the scene's local (sample-able) lights.
	Lights() []Light
	// GlobalLights returns lights evaluated when a ray leaves the scene.
	GlobalLights() []Light
}

// BSDFEvent classifies a sampled scattering event.
type BSDFEvent uint8

const (
	// NullEvent means the sampler failed; the sub-path terminates.
	NullEvent BSDFEvent = 0
	// DiffuseEvent marks a diffuse reflection sample.
	DiffuseEvent BSDFEvent = 1 << 0
	// GlossyEvent marks a rough specular sample.
	GlossyEvent BSDFEvent = 1 << 1
	// SpecularEvent marks a delta (mirror or refractive) sample. Paths
	// through delta events carry no connectable vertex.
	SpecularEvent BSDFEvent = 1 << 2
)

// IsSpecular reports whether the event is a delta interaction.
func (e BSDFEvent) IsSpecular() bool { return e&SpecularEvent != 0 }

// Material is the BSDF collaborator.
//
// Conventions: Sample returns the ready-to-multiply path weight
// f*|cos|/pdf; Evaluate returns f*|cos| together with the forward and
// reverse solid-angle densities. Delta materials evaluate to zero.
type Material interface {
	// Sample draws a scattering direction from u. A NullEvent return means
	// no direction could be sampled.
	Sample(sd *ShadingData, u [3]float32) (incomingDir Vec3, weight Color, pdfW float32, event BSDFEvent)
	// Evaluate computes the BSDF toward incomingDir.
	Evaluate(sd *ShadingData, incomingDir Vec3) (value Color, pdfW, revPdfW float32)
	// Pdf returns the forward and reverse densities of incomingDir without
	// evaluating the BSDF value.
	Pdf(sd *ShadingData, incomingDir Vec3) (pdfW, revPdfW float32)
	// IsDelta reports whether the BSDF has zero-measure support.
	IsDelta() bool
}

// LightFlags is the capability bitset of a light.
type LightFlags uint8

const (
	// LightIsFinite marks lights at a finite position (point, spot, area).
	LightIsFinite LightFlags = 1 << 0
	// LightIsDelta marks lights with zero-measure support (point, spot,
	// directional); they cannot be hit by rays.
	LightIsDelta LightFlags = 1 << 1
)

// EmitResult carries the sampled emission ray and its densities.
type EmitResult struct {
	Position     Vec3
	Direction    Vec3
	EmissionPdfW float32 // joint position+direction density
	DirectPdfA   float32 // area density of the position alone
	CosAtLight   float32
}

// IlluminateResult carries a direct-lighting sample toward the light.
type IlluminateResult struct {
	DirectionToLight Vec3
	Distance         float32
	DirectPdfW       float32 // solid-angle density at the receiver
	EmissionPdfW     float32
	CosAtLight       float32
}

// RadianceResult carries the densities of a light hit by a ray.
type RadianceResult struct {
	DirectPdfA   float32
	EmissionPdfW float32
}

// Light is the emitter collaborator.
type Light interface {
	// Emit samples an outgoing ray carrying radiance; u3 drives the
	// position, u2 the direction. A zero color means the sample failed.
	Emit(u3 [3]float32, u2 [2]float32) (Color, EmitResult)
	// Illuminate samples a direction from the receiver toward the light.
	Illuminate(ref *IntersectionData, u [3]float32) (Color, IlluminateResult)
	// GetRadiance evaluates the radiance along a ray that hit the light
	// (or escaped, for global lights) at hitPos.
	GetRadiance(rayDir Vec3, hitPos Vec3) (Color, RadianceResult)
	// Flags reports the light's capabilities.
	Flags() LightFlags
}

// CameraModel is the projection collaborator.
type CameraModel interface {
	// GenerateRay builds the primary ray through normalized film
	// coordinates (u, v) in [0, 1).
	GenerateRay(u, v float32, ctx *RenderingContext) Ray
	// WorldToFilm projects a world point to pixel coordinates; ok is false
	// when the point is outside the frustum.
	WorldToFilm(p Vec3) (filmPos Vec2, ok bool)
	// PdfW returns the solid-angle density of generating dir, normalized
	// over the whole film.
	PdfW(dir Vec3) float32
	// Position returns the center of projection.
	Position() Vec3
}
