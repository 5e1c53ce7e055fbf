package lumen

// PathTracer is a unidirectional BSDF-sampling integrator with optional
// next event estimation. It is the reference the bidirectional renderer is
// validated against, and the cheapest Renderer for scene bring-up.
type PathTracer struct {
	// MaxPathLength bounds the camera path.
	MaxPathLength uint32
	// UseNextEventEstimation samples the lights explicitly at every
	// non-delta vertex, weighting against BSDF sampling with the balance
	// heuristic.
	UseNextEventEstimation bool

	scene Scene
}

// NewPathTracer creates the integrator.
func NewPathTracer(scene Scene) *PathTracer {
	return &PathTracer{
		MaxPathLength: 10,
		scene:         scene,
	}
}

// Name implements Renderer.
func (r *PathTracer) Name() string { return "Path Tracer" }

// CreateContext implements Renderer; the path tracer keeps no per-thread
// state.
func (r *PathTracer) CreateContext() RendererContext { return nil }

// PreRenderPass implements Renderer.
func (r *PathTracer) PreRenderPass(pass uint32, film *Film) {}

// PreRenderThread implements Renderer.
func (r *PathTracer) PreRenderThread(pass uint32, ctx *RenderingContext) {}

// MergeThread implements Renderer.
func (r *PathTracer) MergeThread(ctx *RenderingContext) {}

// BuildGlobal implements Renderer.
func (r *PathTracer) BuildGlobal() {}

// RenderPixel traces one camera path.
func (r *PathTracer) RenderPixel(ray *Ray, param *RenderParam, ctx *RenderingContext) Color {
	return r.trace(*ray, nil, ctx)
}

// trace walks a camera path. firstHit, when non-nil, is a primary hit the
// packet traversal already resolved.
func (r *PathTracer) trace(path Ray, firstHit *HitPoint, ctx *RenderingContext) Color {
	result := ColorBlack
	throughput := ColorWhite

	maxLength := r.MaxPathLength
	if ctx.Params != nil && ctx.Params.MaxRayDepth < maxLength {
		maxLength = ctx.Params.MaxRayDepth
	}

	length := uint32(1)
	lastSpecular := true
	lastPdfW := float32(0)

	var hit HitPoint
	var sd ShadingData

	for {
		if firstHit != nil {
			hit = *firstHit
			firstHit = nil
		} else {
			hit.Reset()
			r.scene.Traverse(&path, &hit, ctx)
		}

		if hit.Missed() {
			for _, light := range r.scene.GlobalLights() {
				radiance, rad := light.GetRadiance(path.Dir, Vec3{})
				weight := float32(1)
				if r.UseNextEventEstimation && !lastSpecular && rad.DirectPdfA > 0 {
					// global lights report their solid-angle density as
					// DirectPdfA
					weight = lastPdfW / (lastPdfW + rad.DirectPdfA)
				}
				result = result.MulAndAccumulate(throughput, radiance.Scale(weight))
			}
			break
		}

		r.scene.EvaluateIntersection(&path, &hit, ctx.Time, &sd.Intersection)
		sd.OutgoingDir = path.Dir.Neg()

		if sd.Intersection.HitLight != nil {
			radiance, rad := sd.Intersection.HitLight.GetRadiance(path.Dir, sd.Intersection.Position)
			weight := float32(1)
			if r.UseNextEventEstimation && !lastSpecular && lastPdfW > 0 {
				cosAtLight := max32(abs32(sd.Intersection.CosTheta(path.Dir)), cosEpsilon)
				directPdfW := rad.DirectPdfA * hit.Distance * hit.Distance / cosAtLight
				weight = lastPdfW / (lastPdfW + directPdfW)
			}
			result = result.MulAndAccumulate(throughput, radiance.Scale(weight))
			break
		}

		if length >= maxLength {
			break
		}

		if r.UseNextEventEstimation && !sd.Intersection.Material.IsDelta() {
			result = result.MulAndAccumulate(throughput, r.sampleLights(&sd, ctx))
		}

		dir, weight, pdfW, event := sd.Intersection.Material.Sample(&sd, ctx.Sampler.GetFloat3())
		if event == NullEvent {
			break
		}
		throughput = throughput.Mul(weight)
		if throughput.AlmostZero() {
			break
		}

		lastSpecular = event.IsSpecular()
		lastPdfW = pdfW
		origin := sd.Intersection.Position.Add(dir.Scale(1e-3))
		path = NewRay(origin, dir)
		length++
	}

	if !result.IsValid() {
		return ColorBlack
	}
	return result
}

// sampleLights estimates direct lighting at a non-delta vertex.
func (r *PathTracer) sampleLights(sd *ShadingData, ctx *RenderingContext) Color {
	result := ColorBlack
	for _, light := range r.scene.Lights() {
		radiance, ill := light.Illuminate(&sd.Intersection, ctx.Sampler.GetFloat3())
		if radiance.AlmostZero() || ill.DirectPdfW <= 0 {
			continue
		}

		bsdf, bsdfPdfW, _ := sd.Intersection.Material.Evaluate(sd, ill.DirectionToLight)
		if bsdf.AlmostZero() {
			continue
		}

		origin := sd.Intersection.Position.Add(ill.DirectionToLight.Scale(1e-4))
		shadowRay := NewRay(origin, ill.DirectionToLight)
		ctx.Counters.NumShadowRays++
		if r.scene.TraverseShadow(&shadowRay, ill.Distance*0.999, ctx) {
			continue
		}

		weight := float32(1)
		if light.Flags()&LightIsDelta == 0 {
			weight = ill.DirectPdfW / (ill.DirectPdfW + bsdfPdfW)
		}

		result = result.Add(radiance.Mul(bsdf).Scale(weight / ill.DirectPdfW))
	}
	return result
}

// PacketScene is the optional capability a Scene exposes when it supports
// 8-wide packet queries.
type PacketScene interface {
	TraversePacket(group *RayGroup8, hits *[8]HitPoint, ctx *RenderingContext)
}

// RenderPacket resolves the primary hits of every 8-ray group through the
// packet traversal when the scene supports it, then shades per ray.
func (r *PathTracer) RenderPacket(packet *RayPacket, param *RenderParam, ctx *RenderingContext) {
	ps, _ := r.scene.(PacketScene)

	var hits [8]HitPoint
	for g := range packet.Groups {
		group := &packet.Groups[g]

		if ps != nil {
			for i := range hits {
				hits[i].Reset()
			}
			ps.TraversePacket(group, &hits, ctx)
		}

		for lane := 0; lane < rayGroupSize; lane++ {
			loc := packet.Locations[g*rayGroupSize+lane]
			ray := group.Ray(lane)
			var color Color
			if ps != nil {
				color = r.trace(ray, &hits[lane], ctx)
			} else {
				color = r.trace(ray, nil, ctx)
			}
			param.Film.AccumulateColor(uint32(loc.X), uint32(loc.Y), color)
		}
	}
}
