package lumen

import "testing"

// fixedMaterial is a scriptable BSDF for white-box integrator tests.
type fixedMaterial struct {
	sampleDir   Vec3
	sampleColor Color
	samplePdfW  float32
	event       BSDFEvent
	revPdfW     float32
}

func (m *fixedMaterial) Sample(sd *ShadingData, u [3]float32) (Vec3, Color, float32, BSDFEvent) {
	return m.sampleDir, m.sampleColor, m.samplePdfW, m.event
}

func (m *fixedMaterial) Evaluate(sd *ShadingData, dir Vec3) (Color, float32, float32) {
	return m.sampleColor, m.samplePdfW, m.revPdfW
}

func (m *fixedMaterial) Pdf(sd *ShadingData, dir Vec3) (float32, float32) {
	return m.samplePdfW, m.revPdfW
}

func (m *fixedMaterial) IsDelta() bool { return m.event.IsSpecular() }

// fixedLight is a scriptable emitter.
type fixedLight struct {
	radiance     Color
	directPdfA   float32
	emissionPdfW float32
	flags        LightFlags
}

func (l *fixedLight) Emit([3]float32, [2]float32) (Color, EmitResult) {
	return l.radiance, EmitResult{
		Position:     Vec3{0, 4, 0},
		Direction:    Vec3{0, -1, 0},
		EmissionPdfW: l.emissionPdfW,
		DirectPdfA:   l.directPdfA,
		CosAtLight:   1,
	}
}

func (l *fixedLight) Illuminate(ref *IntersectionData, u [3]float32) (Color, IlluminateResult) {
	return l.radiance, IlluminateResult{
		DirectionToLight: Vec3{0, 1, 0},
		Distance:         4,
		DirectPdfW:       1,
		EmissionPdfW:     l.emissionPdfW,
		CosAtLight:       1,
	}
}

func (l *fixedLight) GetRadiance(Vec3, Vec3) (Color, RadianceResult) {
	return l.radiance, RadianceResult{DirectPdfA: l.directPdfA, EmissionPdfW: l.emissionPdfW}
}

func (l *fixedLight) Flags() LightFlags { return l.flags }

// emptyScene has nothing to hit.
type emptyScene struct {
	lights []Light
}

func (s *emptyScene) Traverse(*Ray, *HitPoint, *RenderingContext)               {}
func (s *emptyScene) TraverseShadow(*Ray, float32, *RenderingContext) bool      { return false }
func (s *emptyScene) EvaluateIntersection(*Ray, *HitPoint, float32, *IntersectionData) {}
func (s *emptyScene) Lights() []Light                                           { return s.lights }
func (s *emptyScene) GlobalLights() []Light                                     { return nil }

func upFacingShadingData(material Material) *ShadingData {
	var sd ShadingData
	sd.Intersection.Normal = Vec3{0, 1, 0}
	sd.Intersection.Tangent, sd.Intersection.Binormal = OrthonormalBasis(sd.Intersection.Normal)
	sd.Intersection.Material = material
	sd.OutgoingDir = Vec3{0, 1, 0}
	return &sd
}

func newTestContext(r Renderer) *RenderingContext {
	ctx := &RenderingContext{}
	ctx.Random.Seed(17)
	ctx.Sampler.Fallback = &ctx.Random
	ctx.RendererCtx = r.CreateContext()
	return ctx
}

func TestAdvancePathNonSpecularMISUpdate(t *testing.T) {
	r := NewVCM(&emptyScene{})
	r.misVMFactorVC = 0.5  // A
	r.misVCFactorVC = 0.25 // B

	dir := Vec3{0, 1, 0} // straight up: cosThetaOut = 1
	mat := &fixedMaterial{
		sampleDir:   dir,
		sampleColor: Color{0.5, 0.5, 0.5},
		samplePdfW:  0.4,
		revPdfW:     0.3,
		event:       DiffuseEvent,
	}
	sd := upFacingShadingData(mat)

	path := vcmPathState{
		throughput: ColorWhite,
		length:     1,
		dVC:        1,
		dVM:        2,
		dVCM:       3,
	}
	ctx := newTestContext(r)

	if !r.advancePath(&path, sd, ctx, vcmCameraPath) {
		t.Fatal("advance failed")
	}

	// dVC' = (cos/pdf)(dVC*rev + dVCM + A) = 2.5*(0.3 + 3 + 0.5)
	if want := float32(2.5 * 3.8); !approxEqual(path.dVC, want, 1e-5) {
		t.Errorf("dVC = %f, want %f", path.dVC, want)
	}
	// dVM' = (cos/pdf)(dVM*rev + dVCM*B + 1) = 2.5*(0.6 + 0.75 + 1)
	if want := float32(2.5 * 2.35); !approxEqual(path.dVM, want, 1e-5) {
		t.Errorf("dVM = %f, want %f", path.dVM, want)
	}
	// dVCM' = 1/pdf
	if want := float32(2.5); !approxEqual(path.dVCM, want, 1e-5) {
		t.Errorf("dVCM = %f, want %f", path.dVCM, want)
	}
	if path.lastSpecular {
		t.Error("lastSpecular = true after a diffuse event")
	}
	if path.length != 2 {
		t.Errorf("length = %d, want 2", path.length)
	}
	if path.throughput != (Color{0.5, 0.5, 0.5}) {
		t.Errorf("throughput = %v", path.throughput)
	}
}

func TestAdvancePathSpecularMISUpdate(t *testing.T) {
	r := NewVCM(&emptyScene{})

	// 60 degrees off the normal: cosThetaOut = 0.5
	dir := Vec3{sqrt32(3) / 2, 0.5, 0}
	mat := &fixedMaterial{
		sampleDir:   dir,
		sampleColor: ColorWhite,
		samplePdfW:  1,
		event:       SpecularEvent,
	}
	sd := upFacingShadingData(mat)

	path := vcmPathState{
		throughput: ColorWhite,
		length:     1,
		dVC:        2,
		dVM:        4,
		dVCM:       8,
	}
	ctx := newTestContext(r)

	if !r.advancePath(&path, sd, ctx, vcmCameraPath) {
		t.Fatal("advance failed")
	}

	if !approxEqual(path.dVC, 1, 1e-5) || !approxEqual(path.dVM, 2, 1e-5) {
		t.Errorf("specular dVC, dVM = %f, %f; want 1, 2", path.dVC, path.dVM)
	}
	if path.dVCM != 0 {
		t.Errorf("specular dVCM = %f, want 0", path.dVCM)
	}
	if !path.lastSpecular {
		t.Error("lastSpecular = false after a specular event")
	}
}

func TestAdvancePathNullEventTerminates(t *testing.T) {
	r := NewVCM(&emptyScene{})
	mat := &fixedMaterial{event: NullEvent}
	sd := upFacingShadingData(mat)
	path := vcmPathState{throughput: ColorWhite, length: 1}
	if r.advancePath(&path, sd, newTestContext(r), vcmCameraPath) {
		t.Error("NullEvent did not terminate the sub-path")
	}
}

func TestEvaluateLightMISWeight(t *testing.T) {
	r := NewVCM(&emptyScene{})
	light := &fixedLight{
		radiance:     Color{2, 2, 2},
		directPdfA:   0.5,
		emissionPdfW: 0.25,
	}

	// directly visible light: unweighted
	path := &vcmPathState{length: 1, dVCM: 3, dVC: 4}
	got := r.evaluateLight(0, light, nil, path)
	if !approxEqual(got.R, 2, 1e-5) {
		t.Errorf("directly visible radiance = %f, want 2", got.R)
	}

	// longer path: balance weighted with wCamera = a*dVCM + e*dVC
	path.length = 3
	got = r.evaluateLight(0, light, nil, path)
	want := float32(2) / (1 + 0.5*3 + 0.25*4)
	if !approxEqual(got.R, want, 1e-5) {
		t.Errorf("weighted radiance = %f, want %f", got.R, want)
	}

	// pure photon mapping keeps only specular-chain hits
	r.UseVertexConnection = false
	path.lastSpecular = false
	if got := r.evaluateLight(1, light, nil, path); !got.AlmostZero() {
		t.Errorf("photon-mapping mode non-specular hit = %v, want black", got)
	}
	path.lastSpecular = true
	if got := r.evaluateLight(1, light, nil, path); got.AlmostZero() {
		t.Error("photon-mapping mode specular hit suppressed")
	}
}

func TestGenerateLightSampleInit(t *testing.T) {
	light := &fixedLight{
		radiance:     Color{3, 3, 3},
		directPdfA:   0.5,
		emissionPdfW: 2,
		flags:        LightIsFinite,
	}
	scene := &emptyScene{lights: []Light{light}}
	r := NewVCM(scene)

	var film Film
	film.width, film.height = 4, 4
	r.PreRenderPass(0, &film)
	r.misVCFactorVC = 0.125 // pin a known connection factor

	var path vcmPathState
	ctx := newTestContext(r)
	if !r.generateLightSample(&path, ctx) {
		t.Fatal("light sample failed")
	}

	// single light: pick probability 1, so the pdfs are unscaled
	if want := float32(0.5 / 2); !approxEqual(path.dVCM, want, 1e-5) {
		t.Errorf("dVCM = %f, want %f", path.dVCM, want)
	}
	// non-delta finite light: dVC = cosAtLight/emissionPdfW
	if want := float32(1.0 / 2); !approxEqual(path.dVC, want, 1e-5) {
		t.Errorf("dVC = %f, want %f", path.dVC, want)
	}
	if want := path.dVC * 0.125; !approxEqual(path.dVM, want, 1e-6) {
		t.Errorf("dVM = %f, want %f", path.dVM, want)
	}
	if !path.isFiniteLight {
		t.Error("isFiniteLight = false for a finite light")
	}
	// throughput = radiance / emissionPdfW
	if !approxEqual(path.throughput.R, 1.5, 1e-5) {
		t.Errorf("throughput = %v, want 1.5", path.throughput)
	}

	// delta lights carry no connectable vertex
	light.flags = LightIsFinite | LightIsDelta
	if !r.generateLightSample(&path, ctx) {
		t.Fatal("delta light sample failed")
	}
	if path.dVC != 0 || path.dVM != 0 {
		t.Errorf("delta light dVC, dVM = %f, %f; want 0, 0", path.dVC, path.dVM)
	}
}

func TestVCMEmptySceneRenders(t *testing.T) {
	r := NewVCM(&emptyScene{})
	var film Film
	film.width, film.height = 2, 2
	film.sum = make([]float32, 12)
	r.PreRenderPass(0, &film)

	ctx := newTestContext(r)
	param := &RenderParam{Camera: stubCamera{}, Film: &film}
	ray := NewRay(Vec3{}, Vec3{0, 0, 1})

	color := r.RenderPixel(&ray, param, ctx)
	if !color.AlmostZero() {
		t.Errorf("empty scene pixel = %v, want black", color)
	}

	r.MergeThread(ctx)
	r.BuildGlobal()
	if r.NumPhotons() != 0 {
		t.Errorf("empty scene recorded %d photons", r.NumPhotons())
	}
}
