package lumen

import "math"

// maxLightVertices bounds the per-thread light vertex stack. One pixel
// stores at most one vertex per light-path bounce; a light sub-path that
// fills the stack ends there.
const maxLightVertices = 256

const pi = float32(math.Pi)

// cosEpsilon rejects grazing connections.
const cosEpsilon = float32(1.1920929e-7)

// pdfWtoA converts a solid-angle density to an area density at the given
// distance and surface cosine.
func pdfWtoA(pdfW, distance, cosThere float32) float32 {
	return pdfW * abs32(cosThere) / (distance * distance)
}

// vcmLightVertex is a stored light sub-path vertex awaiting connection.
type vcmLightVertex struct {
	ShadingData ShadingData
	PathLength  uint8
	Throughput  Color
	DVC         float32
	DVM         float32
	DVCM        float32
}

// vcmContext is the per-thread renderer state: the photons recorded this
// pass and the light vertices of the pixel in flight.
type vcmContext struct {
	photons          []Photon
	numLightVertices int
	lightVertices    [maxLightVertices]vcmLightVertex
}

type vcmPathType uint8

const (
	vcmCameraPath vcmPathType = iota
	vcmLightPath
)

// vcmPathState is the rolling state of one sub-path.
type vcmPathState struct {
	ray              Ray
	throughput       Color
	length           uint32
	lastSampledEvent BSDFEvent
	lastSpecular     bool
	isFiniteLight    bool

	dVC  float32
	dVM  float32
	dVCM float32
}

// VCM is the vertex connection and merging integrator: a bidirectional
// path tracer whose estimator families (BSDF sampling, next event
// estimation, vertex connection, light tracing, and photon merging) are
// combined with multiple importance sampling.
//
// Per pixel it first traces a light sub-path, storing connectable vertices
// and photons and splatting direct camera connections, then traces the
// camera sub-path, combining every applicable estimator at each vertex.
type VCM struct {
	// UseVertexConnection enables next event estimation, camera-to-light
	// vertex connections, and the light tracer.
	UseVertexConnection bool
	// UseVertexMerging enables photon recording and density-estimation
	// merging.
	UseVertexMerging bool
	// MaxPathLength bounds both sub-paths.
	MaxPathLength uint32
	// InitialMergingRadius seeds the progressive radius schedule.
	InitialMergingRadius float32
	// MinMergingRadius floors the schedule.
	MinMergingRadius float32
	// MergingRadiusMultiplier shrinks the radius each pass; in (0, 1].
	MergingRadiusMultiplier float32

	scene Scene

	lightPathsCount float32
	radiusVC        float32
	radiusVM        float32
	vmNormalization float32

	// MIS weight factors; the VM pair lags the VC pair by one pass, like
	// the radius itself.
	misVMFactorVC float32
	misVCFactorVC float32
	misVMFactorVM float32
	misVCFactorVM float32

	photons        []Photon // previous pass, referenced by the grid
	pendingPhotons []Photon // merged this pass, swapped in by BuildGlobal
	grid           HashGrid
	gridReady      bool
}

// NewVCM creates the integrator with both estimator families enabled.
func NewVCM(scene Scene) *VCM {
	return &VCM{
		UseVertexConnection:     true,
		UseVertexMerging:        true,
		MaxPathLength:           10,
		InitialMergingRadius:    0.02,
		MinMergingRadius:        0.02,
		MergingRadiusMultiplier: 1.0,
		scene:                   scene,
	}
}

// Name implements Renderer.
func (r *VCM) Name() string { return "VCM" }

// CreateContext implements Renderer.
func (r *VCM) CreateContext() RendererContext { return &vcmContext{} }

// NumPhotons returns the photon count of the merged (previous pass) array.
func (r *VCM) NumPhotons() int { return len(r.photons) }

// PreRenderPass advances the radius schedule and recomputes the MIS weight
// factors for the pass.
func (r *VCM) PreRenderPass(pass uint32, film *Film) {
	r.lightPathsCount = float32(film.Width() * film.Height())

	if pass == 0 {
		r.radiusVC = r.InitialMergingRadius
		r.radiusVM = r.InitialMergingRadius
		r.gridReady = false
	} else {
		// the merging radius lags the connection radius by one pass: the
		// photons merged now were traced with the previous pass's radius
		r.radiusVM = r.radiusVC
		r.radiusVC = max32(r.radiusVC*r.MergingRadiusMultiplier, r.MinMergingRadius)
	}

	// normalizes the summed merging energy by disk area and light paths
	r.vmNormalization = 1 / (pi * r.radiusVM * r.radiusVM * r.lightPathsCount)

	{
		etaVCM := pi * r.radiusVC * r.radiusVC * r.lightPathsCount
		// merging contributes no estimator in the first pass
		if r.UseVertexMerging && pass > 0 {
			r.misVMFactorVC = etaVCM
		} else {
			r.misVMFactorVC = 0
		}
		if r.UseVertexConnection {
			r.misVCFactorVC = 1 / etaVCM
		} else {
			r.misVCFactorVC = 0
		}
	}

	{
		etaVCM := pi * r.radiusVM * r.radiusVM * r.lightPathsCount
		if r.UseVertexMerging {
			r.misVMFactorVM = etaVCM
		} else {
			r.misVMFactorVM = 0
		}
		if r.UseVertexConnection {
			r.misVCFactorVM = 1 / etaVCM
		} else {
			r.misVCFactorVM = 0
		}
	}
}

// PreRenderThread implements Renderer.
func (r *VCM) PreRenderThread(pass uint32, ctx *RenderingContext) {
	c := ctx.RendererCtx.(*vcmContext)
	if pass == 0 {
		c.photons = c.photons[:0]
	}
	c.numLightVertices = 0
}

// MergeThread folds one worker's photons into the pending global array.
// Called between passes only.
func (r *VCM) MergeThread(ctx *RenderingContext) {
	c := ctx.RendererCtx.(*vcmContext)
	r.pendingPhotons = append(r.pendingPhotons, c.photons...)
	c.photons = c.photons[:0]
}

// BuildGlobal publishes the merged photons and rebuilds the hash grid for
// the next pass.
func (r *VCM) BuildGlobal() {
	r.photons, r.pendingPhotons = r.pendingPhotons, r.photons[:0]
	if r.UseVertexMerging && len(r.photons) > 0 {
		r.grid.Build(r.photons, r.radiusVC)
		r.gridReady = true
	} else {
		r.gridReady = false
	}
}

// RenderPixel traces the pixel's light sub-path, then its camera sub-path,
// and returns the combined estimate.
func (r *VCM) RenderPixel(ray *Ray, param *RenderParam, ctx *RenderingContext) Color {
	vctx := ctx.RendererCtx.(*vcmContext)

	// step 1: light sub-path; records photons and light vertices, splats
	// camera connections
	r.traceLightPath(param, ctx, vctx)

	// step 2: camera sub-path
	result := ColorBlack

	path := vcmPathState{
		ray:          *ray,
		throughput:   ColorWhite,
		length:       1,
		lastSpecular: true,
	}
	path.dVCM = 1 / param.Camera.PdfW(ray.Dir)

	var hit HitPoint
	var sd ShadingData

	for {
		hit.Reset()
		r.scene.Traverse(&path.ray, &hit, ctx)

		if hit.Missed() {
			// escaped: evaluate the global lights
			result = result.MulAndAccumulate(path.throughput, r.evaluateGlobalLights(param.Pass, &path))
			break
		}

		r.scene.EvaluateIntersection(&path.ray, &hit, ctx.Time, &sd.Intersection)
		sd.OutgoingDir = path.ray.Dir.Neg()

		// geometry term on the inherited MIS quantities
		{
			cosTheta := abs32(sd.Intersection.CosTheta(path.ray.Dir))
			if cosTheta < cosEpsilon {
				cosTheta = cosEpsilon
			}
			invCos := 1 / cosTheta
			path.dVCM *= hit.Distance * hit.Distance
			path.dVCM *= invCos
			path.dVC *= invCos
			path.dVM *= invCos
		}

		if sd.Intersection.HitLight != nil {
			lightColor := r.evaluateLight(param.Pass, sd.Intersection.HitLight, &sd.Intersection, &path)
			result = result.MulAndAccumulate(path.throughput, lightColor)
			break
		}

		if path.length >= r.MaxPathLength {
			break
		}

		isDelta := sd.Intersection.Material.IsDelta()

		if !isDelta && r.UseVertexConnection {
			// next event estimation
			result = result.MulAndAccumulate(path.throughput, r.sampleLights(&sd, &path, ctx))

			// connect to the pixel's stored light vertices
			if vctx.numLightVertices > 0 {
				connected := ColorBlack
				for i := 0; i < vctx.numLightVertices; i++ {
					lv := &vctx.lightVertices[i]
					// the stack is ordered by path length, so everything
					// past the first overlong vertex is overlong too
					if uint32(lv.PathLength)+path.length+1 > r.MaxPathLength {
						break
					}
					connected = connected.MulAndAccumulate(lv.Throughput, r.connectVertices(&path, &sd, lv, ctx))
				}
				result = result.MulAndAccumulate(path.throughput, connected)
			}
		}

		if !isDelta && r.UseVertexMerging && param.Pass > 0 && r.gridReady {
			merged := r.mergeVertices(&path, &sd)
			result = result.Add(path.throughput.Mul(merged).Scale(r.vmNormalization))
		}

		if path.length > r.MaxPathLength {
			break
		}

		if !r.advancePath(&path, &sd, ctx, vcmCameraPath) {
			break
		}
	}

	if !result.IsValid() {
		// invariant violation upstream; drop the contribution
		return ColorBlack
	}
	return result
}

// RenderPacket renders the packet's rays individually; the integrator's
// estimators are inherently per-pixel.
func (r *VCM) RenderPacket(packet *RayPacket, param *RenderParam, ctx *RenderingContext) {
	for g := range packet.Groups {
		group := &packet.Groups[g]
		for lane := 0; lane < rayGroupSize; lane++ {
			loc := packet.Locations[g*rayGroupSize+lane]
			ray := group.Ray(lane)
			color := r.RenderPixel(&ray, param, ctx)
			param.Film.AccumulateColor(uint32(loc.X), uint32(loc.Y), color)
		}
	}
}

// traceLightPath traces one light sub-path for the pixel, storing vertices
// for later connection, photons for later merging, and splatting the
// light-tracer contribution.
func (r *VCM) traceLightPath(param *RenderParam, ctx *RenderingContext, vctx *vcmContext) {
	vctx.numLightVertices = 0

	var path vcmPathState
	if !r.generateLightSample(&path, ctx) {
		return
	}

	var hit HitPoint

	for {
		hit.Reset()
		r.scene.Traverse(&path.ray, &hit, ctx)

		if hit.Missed() {
			break
		}
		if vctx.numLightVertices == maxLightVertices {
			break
		}

		vertex := &vctx.lightVertices[vctx.numLightVertices]
		sd := &vertex.ShadingData
		r.scene.EvaluateIntersection(&path.ray, &hit, ctx.Time, &sd.Intersection)

		if sd.Intersection.HitLight != nil {
			// the light path ends on emitters
			break
		}
		sd.OutgoingDir = path.ray.Dir.Neg()

		// geometry term on the inherited MIS quantities; infinite lights
		// carry no distance term on their first segment
		{
			if path.length > 1 || path.isFiniteLight {
				path.dVCM *= hit.Distance * hit.Distance
			}
			cosTheta := abs32(sd.Intersection.CosTheta(path.ray.Dir))
			if cosTheta < cosEpsilon {
				cosTheta = cosEpsilon
			}
			invCos := 1 / cosTheta
			path.dVCM *= invCos
			path.dVC *= invCos
			path.dVM *= invCos
		}

		if !sd.Intersection.Material.IsDelta() {
			if r.UseVertexConnection {
				vertex.PathLength = uint8(path.length)
				vertex.Throughput = path.throughput
				vertex.DVC = path.dVC
				vertex.DVM = path.dVM
				vertex.DVCM = path.dVCM
				vctx.numLightVertices++

				// light tracer: connect the fresh vertex to the camera
				r.connectToCamera(param, vertex, ctx)
			}

			if r.UseVertexMerging {
				vctx.photons = append(vctx.photons, MakePhoton(
					sd.Intersection.Position, sd.OutgoingDir,
					path.throughput, path.dVM, path.dVCM))
			}
		}

		if path.length+2 > r.MaxPathLength {
			break
		}

		if !r.advancePath(&path, sd, ctx, vcmLightPath) {
			break
		}
	}
}

// generateLightSample picks a light uniformly and samples an emission ray,
// initializing the sub-path throughput and MIS accumulators.
func (r *VCM) generateLightSample(path *vcmPathState, ctx *RenderingContext) bool {
	lights := r.scene.Lights()
	if len(lights) == 0 {
		return false
	}

	pickProbability := 1 / float32(len(lights))
	light := lights[ctx.Random.IntN(uint32(len(lights)))]

	u3 := ctx.Random.Float3()
	u2x, u2y := ctx.Random.Float2()
	color, emit := light.Emit(u3, [2]float32{u2x, u2y})

	if color.AlmostZero() {
		// too weak a sample to matter
		return false
	}
	if emit.EmissionPdfW <= 0 {
		return false
	}

	emit.DirectPdfA *= pickProbability
	emit.EmissionPdfW *= pickProbability
	invEmissionPdfW := 1 / emit.EmissionPdfW

	origin := emit.Position.Add(emit.Direction.Scale(0.0005))
	path.ray = NewRay(origin, emit.Direction)
	path.throughput = color.Scale(invEmissionPdfW)
	path.length = 1

	flags := light.Flags()
	path.isFiniteLight = flags&LightIsFinite != 0

	path.dVCM = emit.DirectPdfA * invEmissionPdfW
	if flags&LightIsDelta == 0 {
		cosAtLight := emit.CosAtLight
		if !path.isFiniteLight {
			cosAtLight = 1
		}
		path.dVC = cosAtLight * invEmissionPdfW
	} else {
		path.dVC = 0
	}
	path.dVM = path.dVC * r.misVCFactorVC

	return true
}

// advancePath samples the BSDF at the current vertex and steps the
// sub-path, updating throughput and the MIS accumulators. Camera sub-paths
// draw from the low-discrepancy sampler, light sub-paths from the PRNG.
func (r *VCM) advancePath(path *vcmPathState, sd *ShadingData, ctx *RenderingContext, pathType vcmPathType) bool {
	var u [3]float32
	if pathType == vcmCameraPath {
		u = ctx.Sampler.GetFloat3()
	} else {
		u = ctx.Random.Float3()
	}

	dir, weight, pdfW, event := sd.Intersection.Material.Sample(sd, u)
	if event == NullEvent {
		return false
	}

	path.throughput = path.throughput.Mul(weight)
	if path.throughput.AlmostZero() {
		return false
	}
	if pdfW <= 0 {
		return false
	}

	cosThetaOut := abs32(sd.Intersection.CosTheta(dir))

	origin := sd.Intersection.Position.Add(dir.Scale(1e-3))
	path.ray = NewRay(origin, dir)
	path.lastSampledEvent = event
	path.length++

	if event.IsSpecular() {
		path.dVC *= cosThetaOut
		path.dVM *= cosThetaOut
		path.dVCM = 0
		path.lastSpecular = true
	} else {
		_, revPdfW := sd.Intersection.Material.Pdf(sd, dir)
		invPdfW := 1 / pdfW

		path.dVC = (cosThetaOut * invPdfW) * (path.dVC*revPdfW + path.dVCM + r.misVMFactorVC)
		path.dVM = (cosThetaOut * invPdfW) * (path.dVM*revPdfW + path.dVCM*r.misVCFactorVC + 1)
		path.dVCM = invPdfW
		path.lastSpecular = false
	}

	return true
}

// evaluateLight weighs the radiance of a light the camera sub-path hit (or
// escaped to, for global lights with a nil intersection).
func (r *VCM) evaluateLight(pass uint32, light Light, isect *IntersectionData, path *vcmPathState) Color {
	var hitPos Vec3
	if isect != nil {
		hitPos = isect.Position
	}

	radiance, rad := light.GetRadiance(path.ray.Dir, hitPos)
	if radiance.AlmostZero() {
		return ColorBlack
	}

	// directly visible lights need no weighting
	if path.length > 1 {
		useVM := r.UseVertexMerging && pass > 0
		if useVM && !r.UseVertexConnection {
			// pure photon mapping: specular-chain hits only
			if !path.lastSpecular {
				return ColorBlack
			}
		} else {
			wCamera := rad.DirectPdfA*path.dVCM + rad.EmissionPdfW*path.dVC
			radiance = radiance.Scale(1 / (1 + wCamera))
		}
	}

	return radiance
}

// evaluateGlobalLights accumulates the global lights for an escaped ray.
func (r *VCM) evaluateGlobalLights(pass uint32, path *vcmPathState) Color {
	result := ColorBlack
	for _, light := range r.scene.GlobalLights() {
		result = result.Add(r.evaluateLight(pass, light, nil, path))
	}
	return result
}

// sampleLights runs next event estimation against every scene light.
func (r *VCM) sampleLights(sd *ShadingData, path *vcmPathState, ctx *RenderingContext) Color {
	result := ColorBlack
	for _, light := range r.scene.Lights() {
		result = result.Add(r.sampleLight(light, sd, path, ctx))
	}
	return result
}

// sampleLight estimates the direct contribution of one light, weighted
// against the estimators that could produce the same path.
func (r *VCM) sampleLight(light Light, sd *ShadingData, path *vcmPathState, ctx *RenderingContext) Color {
	radiance, ill := light.Illuminate(&sd.Intersection, ctx.Sampler.GetFloat3())
	if radiance.AlmostZero() || ill.DirectPdfW <= 0 {
		return ColorBlack
	}

	bsdf, bsdfPdfW, bsdfRevPdfW := sd.Intersection.Material.Evaluate(sd, ill.DirectionToLight)
	if bsdf.AlmostZero() {
		return ColorBlack
	}

	// shadow test up to just short of the light
	{
		origin := sd.Intersection.Position.Add(ill.DirectionToLight.Scale(1e-4))
		shadowRay := NewRay(origin, ill.DirectionToLight)
		ctx.Counters.NumShadowRays++
		if r.scene.TraverseShadow(&shadowRay, ill.Distance*0.999, ctx) {
			return ColorBlack
		}
	}

	const lightPickProbability = 1

	cosToLight := sd.Intersection.CosTheta(ill.DirectionToLight)
	if cosToLight <= cosEpsilon {
		return ColorBlack
	}

	forwardPdfW := bsdfPdfW
	if light.Flags()&LightIsDelta != 0 {
		// a delta light cannot be produced by BSDF sampling
		forwardPdfW = 0
	}

	wLight := forwardPdfW / (lightPickProbability * ill.DirectPdfW)
	wCamera := ill.EmissionPdfW * cosToLight / (ill.DirectPdfW * ill.CosAtLight) *
		(r.misVMFactorVC + path.dVCM + path.dVC*bsdfRevPdfW)
	misWeight := 1 / (wLight + 1 + wCamera)

	contribution := radiance.Mul(bsdf).Scale(misWeight / (lightPickProbability * ill.DirectPdfW))
	if !contribution.IsValid() {
		return ColorBlack
	}
	return contribution
}

// connectVertices joins the current camera vertex to a stored light vertex.
func (r *VCM) connectVertices(path *vcmPathState, sd *ShadingData, lv *vcmLightVertex, ctx *RenderingContext) Color {
	lightDir := lv.ShadingData.Intersection.Position.Sub(sd.Intersection.Position)
	distanceSqr := lightDir.SqrLength()
	distance := sqrt32(distanceSqr)
	lightDir = lightDir.Scale(1 / distance)

	cosCameraVertex := sd.Intersection.CosTheta(lightDir)
	cosLightVertex := lv.ShadingData.Intersection.CosTheta(lightDir.Neg())
	if cosCameraVertex <= 0 || cosLightVertex <= 0 {
		// the segment leaves through a backface
		return ColorBlack
	}

	geometryTerm := 1 / distanceSqr

	cameraFactor, cameraBsdfPdfW, cameraBsdfRevPdfW := sd.Intersection.Material.Evaluate(sd, lightDir)
	if cameraFactor.AlmostZero() {
		return ColorBlack
	}

	lightFactor, lightBsdfPdfW, lightBsdfRevPdfW := lv.ShadingData.Intersection.Material.Evaluate(&lv.ShadingData, lightDir.Neg())
	if lightFactor.AlmostZero() {
		return ColorBlack
	}

	{
		origin := sd.Intersection.Position.Add(lightDir.Scale(1e-4))
		shadowRay := NewRay(origin, lightDir)
		ctx.Counters.NumShadowRays++
		if r.scene.TraverseShadow(&shadowRay, distance*0.999, ctx) {
			return ColorBlack
		}
	}

	cameraBsdfPdfA := pdfWtoA(cameraBsdfPdfW, distance, cosLightVertex)
	lightBsdfPdfA := pdfWtoA(lightBsdfPdfW, distance, cosCameraVertex)

	wLight := cameraBsdfPdfA * (r.misVMFactorVC + lv.DVCM + lv.DVC*lightBsdfRevPdfW)
	wCamera := lightBsdfPdfA * (r.misVMFactorVC + path.dVCM + path.dVC*cameraBsdfRevPdfW)
	misWeight := 1 / (wLight + 1 + wCamera)

	contribution := cameraFactor.Mul(lightFactor).Scale(geometryTerm * misWeight)
	if !contribution.IsValid() {
		return ColorBlack
	}
	return contribution
}

// mergeVertices gathers the photons around the camera vertex and merges
// them through the camera BSDF.
func (r *VCM) mergeVertices(path *vcmPathState, sd *ShadingData) Color {
	contribution := ColorBlack

	r.grid.Process(sd.Intersection.Position, r.photons, func(photonIndex uint32) {
		photon := &r.photons[photonIndex]

		lightDirection := photon.Dir()
		cosToLight := sd.Intersection.CosTheta(lightDirection)
		if cosToLight < cosEpsilon {
			return
		}

		bsdf, bsdfDirPdfW, bsdfRevPdfW := sd.Intersection.Material.Evaluate(sd, lightDirection)
		if bsdf.AlmostZero() {
			return
		}

		wLight := photon.DVCM*r.misVCFactorVM + photon.DVM*bsdfDirPdfW
		wCamera := path.dVCM*r.misVCFactorVM + path.dVM*bsdfRevPdfW
		misWeight := 1 / (wLight + 1 + wCamera)
		weight := misWeight / cosToLight

		if !isFinite32(weight) || weight <= 0 {
			return
		}

		contribution = contribution.MulAndAccumulate(bsdf.Mul(photon.Color()), Color{weight, weight, weight})
	})

	return contribution
}

// connectToCamera projects a light vertex onto the film and splats its
// contribution (the light tracer estimator).
func (r *VCM) connectToCamera(param *RenderParam, lv *vcmLightVertex, ctx *RenderingContext) {
	cameraPos := param.Camera.Position()
	samplePos := lv.ShadingData.Intersection.Position

	dirToCamera := cameraPos.Sub(samplePos)
	cameraDistanceSqr := dirToCamera.SqrLength()
	cameraDistance := sqrt32(cameraDistanceSqr)
	dirToCamera = dirToCamera.Scale(1 / cameraDistance)

	cameraFactor, _, bsdfRevPdfW := lv.ShadingData.Intersection.Material.Evaluate(&lv.ShadingData, dirToCamera)
	if cameraFactor.AlmostZero() {
		return
	}

	filmPos, visible := param.Camera.WorldToFilm(samplePos)
	if !visible {
		return
	}

	{
		origin := samplePos.Add(dirToCamera.Scale(1e-4))
		shadowRay := NewRay(origin, dirToCamera)
		ctx.Counters.NumShadowRays++
		if r.scene.TraverseShadow(&shadowRay, cameraDistance*0.999, ctx) {
			return
		}
	}

	cosToCamera := lv.ShadingData.Intersection.CosTheta(dirToCamera)
	if cosToCamera <= cosEpsilon {
		return
	}

	cameraPdfW := param.Camera.PdfW(dirToCamera.Neg())
	cameraPdfA := cameraPdfW * cosToCamera / cameraDistanceSqr

	wLight := cameraPdfA * (r.misVMFactorVC + lv.DVCM + lv.DVC*bsdfRevPdfW)
	misWeight := 1 / (1 + wLight)

	contribution := cameraFactor.Mul(lv.Throughput).Scale(misWeight * cameraPdfA / cosToCamera)
	if !contribution.IsValid() {
		return
	}
	param.Film.Splat(filmPos, contribution)
}
