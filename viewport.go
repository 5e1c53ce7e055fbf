package lumen

import "fmt"

// maxImageSize bounds the film resolution on each axis.
const maxImageSize = 1 << 16

// Block is a half-open pixel rectangle [MinX, MaxX) x [MinY, MaxY).
type Block struct {
	MinX, MaxX uint32
	MinY, MaxY uint32
}

// Width returns the block width in pixels.
func (b Block) Width() uint32 { return b.MaxX - b.MinX }

// Height returns the block height in pixels.
func (b Block) Height() uint32 { return b.MaxY - b.MinY }

// Area returns the block pixel count.
func (b Block) Area() uint32 { return b.Width() * b.Height() }

// RenderingProgress summarizes the accumulation state.
type RenderingProgress struct {
	// PassesFinished counts completed passes since the last reset.
	PassesFinished uint32
	// AverageError is the whole-image error estimate, updated after even
	// passes when adaptive mode is off.
	AverageError float32
	// ActiveBlocks is the number of unconverged blocks.
	ActiveBlocks uint32
	// ActivePixels is the pixel count covered by active blocks.
	ActivePixels uint32
	// Converged is the fraction of the image retired by adaptive mode.
	Converged float32
}

// Viewport drives progressive rendering: it owns the accumulation buffers,
// the worker contexts, the adaptive block set, and the postprocess chain.
// One Render call is one pass; passes are not cancellable mid-flight, so
// callers interrupt between passes.
type Viewport struct {
	pool     *Pool
	threads  []RenderingContext
	renderer Renderer

	params          RenderingParams
	postprocess     PostprocessParams
	colorScale      Float4
	fullPostUpdate  bool

	width, height uint32
	sum           []float32 // 3*w*h primary accumulation
	secondary     []float32 // mirror of even passes, for the error estimate
	blurred       [numBloomLevels][]float32
	frontBuffer   []uint8 // RGBA8
	pixelSalt     []Vec2

	halton    HaltonSequence
	frameSeed []float32
	rng       Random

	baseSeed uint32

	blocks   []Block
	tiles    []Block
	progress RenderingProgress
	counters RayTracingCounters
}

// NewViewport creates a zero-sized viewport with default parameters. Call
// Resize and SetRenderer before Render.
func NewViewport() *Viewport {
	v := &Viewport{
		params:         DefaultRenderingParams(),
		postprocess:    DefaultPostprocessParams(),
		fullPostUpdate: true,
	}
	v.rng.Seed(0x2545f491)
	v.pool = NewPool(int(v.params.NumThreads))
	v.initThreadData()
	return v
}

// Seed re-seeds the viewport's generators so repeated renders draw
// independent random streams. Call before Resize so the pixel salt differs
// too.
func (v *Viewport) Seed(seed uint32) {
	v.baseSeed = seed
	v.rng.Seed(seed ^ 0x2545f491)
	v.initThreadData()
	if v.width > 0 {
		v.Reset()
	}
}

// initThreadData rebuilds the per-worker contexts, reseeding every PRNG and
// recreating the renderer contexts.
func (v *Viewport) initThreadData() {
	numThreads := v.pool.NumThreads()
	v.threads = make([]RenderingContext, numThreads)
	for i := range v.threads {
		ctx := &v.threads[i]
		ctx.Random.Seed(0x9d2c5681 ^ v.baseSeed + uint32(i)*0x6c078965)
		ctx.Sampler.Fallback = &ctx.Random
		if v.renderer != nil {
			ctx.RendererCtx = v.renderer.CreateContext()
		}
	}
}

// Width returns the film width in pixels.
func (v *Viewport) Width() uint32 { return v.width }

// Height returns the film height in pixels.
func (v *Viewport) Height() uint32 { return v.height }

// Progress returns the accumulation state.
func (v *Viewport) Progress() RenderingProgress { return v.progress }

// Counters returns the merged per-pass work counters.
func (v *Viewport) Counters() RayTracingCounters { return v.counters }

// FrontBuffer exposes the postprocessed RGBA8 image, row-major.
func (v *Viewport) FrontBuffer() []uint8 { return v.frontBuffer }

// AccumulatedImage exposes the raw RGB accumulation sums, interleaved
// row-major. Divide by Progress().PassesFinished for the mean image. The
// slice aliases live state; treat it as read-only between passes.
func (v *Viewport) AccumulatedImage() []float32 { return v.sum }

// Resize reallocates the film. All accumulators reset.
func (v *Viewport) Resize(width, height uint32) error {
	if width == 0 || height == 0 || width > maxImageSize || height > maxImageSize {
		return fmt.Errorf("%w: %dx%d", ErrInvalidResolution, width, height)
	}
	if width == v.width && height == v.height {
		return nil
	}

	v.width, v.height = width, height
	n := int(width * height)
	v.sum = make([]float32, 3*n)
	v.secondary = make([]float32, 3*n)
	for i := range v.blurred {
		v.blurred[i] = make([]float32, 3*n)
	}
	v.frontBuffer = make([]uint8, 4*n)

	v.pixelSalt = make([]Vec2, n)
	for i := range v.pixelSalt {
		v.pixelSalt[i] = Vec2{v.rng.Float(), v.rng.Float()}
	}

	v.Reset()
	return nil
}

// SetRenderer installs the integrator and resets accumulation.
func (v *Viewport) SetRenderer(renderer Renderer) {
	v.renderer = renderer
	v.initThreadData()
	if v.width > 0 {
		v.Reset()
	}
}

// SetRenderingParams validates and installs new parameters, resetting
// accumulation. A failed validation leaves the previous state untouched.
func (v *Viewport) SetRenderingParams(params RenderingParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	if v.params.NumThreads != params.NumThreads {
		v.pool = NewPool(int(params.NumThreads))
		v.params = params
		v.initThreadData()
	} else {
		v.params = params
	}

	if v.width > 0 {
		v.Reset()
	}
	return nil
}

// RenderingParams returns the active configuration.
func (v *Viewport) RenderingParams() RenderingParams { return v.params }

// SetPostprocessParams installs new display parameters; the next pass
// refreshes the whole front buffer.
func (v *Viewport) SetPostprocessParams(params PostprocessParams) {
	if v.postprocess != params {
		v.postprocess = params
		v.fullPostUpdate = true
	}
}

// Reset clears all accumulation and rewinds the sequence, keeping the
// resolution and parameters.
func (v *Viewport) Reset() {
	v.progress = RenderingProgress{}
	v.halton.Initialize(v.params.SamplingDimensions)
	clear(v.sum)
	clear(v.secondary)
	for i := range v.blurred {
		clear(v.blurred[i])
	}
	v.fullPostUpdate = true
	v.buildInitialBlocks()
	v.tiles = v.tiles[:0]
}

// Render accumulates one pass.
func (v *Viewport) Render(camera CameraModel) error {
	if v.width == 0 || v.height == 0 {
		return fmt.Errorf("%w: viewport not sized", ErrInvalidResolution)
	}
	if v.renderer == nil {
		return ErrMissingRenderer
	}

	pass := v.progress.PassesFinished

	// advance the shared low-discrepancy sequence and distribute the
	// pass's sample to every worker
	v.halton.NextSample()
	if cap(v.frameSeed) < v.halton.NumDimensions() {
		v.frameSeed = make([]float32, v.halton.NumDimensions())
	}
	v.frameSeed = v.frameSeed[:v.halton.NumDimensions()]
	for i := range v.frameSeed {
		v.frameSeed[i] = v.halton.Get(i)
	}

	film := NewFilm(v.width, v.height, v.sum, v.secondaryForPass(pass))

	for i := range v.threads {
		ctx := &v.threads[i]
		ctx.Counters.Reset()
		ctx.Params = &v.params
		ctx.Camera = camera
		ctx.Sampler.ResetFrame(v.frameSeed)
		v.renderer.PreRenderThread(pass, ctx)
	}

	v.renderer.PreRenderPass(pass, &film)

	if len(v.tiles) == 0 || pass == 0 {
		v.generateTiles()
	}

	// randomize the anti-aliasing offset once per pass
	nx, ny := v.rng.FloatNormal2()
	tileCtx := tileRenderingContext{
		renderer: v.renderer,
		camera:   camera,
		film:     &film,
		pass:     pass,
		sampleOffset: Vec2{
			nx * v.params.AntiAliasingSpread,
			ny * v.params.AntiAliasingSpread,
		},
	}

	v.pool.ParallelFor(len(v.tiles), func(task, thread int) {
		v.renderTile(&tileCtx, &v.threads[thread], v.tiles[task])
	})

	// barrier reached: merge per-thread photons and build the spatial
	// index for the next pass
	for i := range v.threads {
		v.renderer.MergeThread(&v.threads[i])
	}
	v.renderer.BuildGlobal()

	v.performPostProcess()

	v.progress.PassesFinished++

	if v.progress.PassesFinished%2 == 0 {
		if v.params.Adaptive.Enable {
			v.updateBlocks()
			v.generateTiles()
		} else {
			v.computeError()
		}
	}

	v.counters.Reset()
	for i := range v.threads {
		v.counters.Append(&v.threads[i].Counters)
	}

	return nil
}

// secondaryForPass returns the mirror buffer on even-indexed passes.
func (v *Viewport) secondaryForPass(pass uint32) []float32 {
	if pass%2 == 0 {
		return v.secondary
	}
	return nil
}

type tileRenderingContext struct {
	renderer     Renderer
	camera       CameraModel
	film         *Film
	pass         uint32
	sampleOffset Vec2
}

// renderTile renders every pixel (or ray group) of one tile.
func (v *Viewport) renderTile(tc *tileRenderingContext, ctx *RenderingContext, tile Block) {
	invWidth := 1 / float32(v.width)
	invHeight := 1 / float32(v.height)

	param := RenderParam{Pass: tc.pass, Camera: tc.camera, Film: tc.film}

	// packet groups need a 4x2-divisible tile; clipped border tiles and
	// odd adaptive blocks render single-ray
	usePacket := ctx.Params.TraversalMode == TraversalPacket &&
		tile.Width()%rayGroupSizeX == 0 && tile.Height()%rayGroupSizeY == 0

	if !usePacket {
		spp := ctx.Params.SamplesPerPixel
		invSpp := 1 / float32(spp)

		for y := tile.MinY; y < tile.MaxY; y++ {
			realY := v.height - 1 - y

			for x := tile.MinX; x < tile.MaxX; x++ {
				pixelIndex := y*v.width + x
				u := (float32(x) + tc.sampleOffset.X) * invWidth
				fv := (float32(realY) + tc.sampleOffset.Y) * invHeight

				ctx.Sampler.ResetPixel(v.pixelSalt[pixelIndex])
				ctx.Time = ctx.Random.Float() * ctx.Params.MotionBlurStrength

				param.PixelIndex = pixelIndex

				color := ColorBlack
				for s := uint32(0); s < spp; s++ {
					ray := tc.camera.GenerateRay(u, fv, ctx)
					color = color.Add(tc.renderer.RenderPixel(&ray, &param, ctx))
				}
				tc.film.AccumulateColor(x, y, color.Scale(invSpp))

				ctx.Counters.NumPrimaryRays += uint64(spp)
			}
		}
		return
	}

	// packet mode: one coherent 4x2 ray group per pixel footprint
	ctx.Time = ctx.Random.Float() * ctx.Params.MotionBlurStrength
	packet := &ctx.packet
	packet.Clear()

	for y := tile.MinY; y < tile.MaxY; y += rayGroupSizeY {
		realY := v.height - 1 - y

		for x := tile.MinX; x < tile.MaxX; x += rayGroupSizeX {
			var group RayGroup8
			var locations [rayGroupSize]ImageLocation

			for lane := 0; lane < rayGroupSize; lane++ {
				dx := uint32(lane % rayGroupSizeX)
				dy := uint32(lane / rayGroupSizeX)
				u := (float32(x+dx) + tc.sampleOffset.X) * invWidth
				fv := (float32(realY-dy) + tc.sampleOffset.Y) * invHeight
				ray := tc.camera.GenerateRay(u, fv, ctx)
				group.SetRay(lane, &ray)
				locations[lane] = ImageLocation{X: uint16(x + dx), Y: uint16(y + dy)}
			}

			packet.PushGroup(&group, locations)
		}
	}

	tc.renderer.RenderPacket(packet, &param, ctx)
	ctx.Counters.NumPrimaryRays += uint64(tile.Area())
}

// computeError refreshes the whole-image error estimate.
func (v *Viewport) computeError() {
	full := Block{MinX: 0, MaxX: v.width, MinY: 0, MaxY: v.height}
	v.progress.AverageError = v.computeBlockError(full)
}

// computeBlockError estimates the per-pixel error of a block from the two
// interleaved accumulation buffers. Only meaningful after an even number
// of passes.
func (v *Viewport) computeBlockError(block Block) float32 {
	if v.progress.PassesFinished == 0 {
		return float32(DefaultHitDistance)
	}

	const errorEpsilon = 1e-5

	scale := 1 / float32(v.progress.PassesFinished)

	var totalError float32
	for y := block.MinY; y < block.MaxY; y++ {
		var rowError float32
		for x := block.MinX; x < block.MaxX; x++ {
			i := 3 * (y*v.width + x)
			ar := v.sum[i] * scale
			ag := v.sum[i+1] * scale
			ab := v.sum[i+2] * scale
			br := v.secondary[i] * 2 * scale
			bg := v.secondary[i+1] * 2 * scale
			bb := v.secondary[i+2] * 2 * scale

			// luma-weighted absolute difference, normalized by brightness
			diff := abs32(ar-br) + 2*abs32(ag-bg) + abs32(ab-bb)
			rowError += diff / sqrt32(errorEpsilon+ar+2*ag+ab)
		}
		totalError += rowError
	}

	totalArea := float32(v.width * v.height)
	blockArea := float32(block.Area())
	return totalError * sqrt32(blockArea/totalArea) / blockArea
}

// generateTiles slices the active blocks into tileSize x tileSize jobs,
// clipping the last row and column.
func (v *Viewport) generateTiles() {
	v.tiles = v.tiles[:0]
	tileSize := v.params.TileSize

	for _, block := range v.blocks {
		rows := 1 + (block.Height()-1)/tileSize
		columns := 1 + (block.Width()-1)/tileSize

		for j := uint32(0); j < rows; j++ {
			minY := block.MinY + j*tileSize
			maxY := minU32(block.MaxY, minY+tileSize)

			for i := uint32(0); i < columns; i++ {
				minX := block.MinX + i*tileSize
				maxX := minU32(block.MaxX, minX+tileSize)

				v.tiles = append(v.tiles, Block{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY})
			}
		}
	}
}

// buildInitialBlocks covers the image with maxBlockSize blocks.
func (v *Viewport) buildInitialBlocks() {
	v.blocks = v.blocks[:0]
	if v.width == 0 || v.height == 0 {
		return
	}

	blockSize := v.params.Adaptive.MaxBlockSize
	if blockSize == 0 {
		blockSize = 256
	}
	rows := 1 + (v.height-1)/blockSize
	columns := 1 + (v.width-1)/blockSize

	for j := uint32(0); j < rows; j++ {
		minY := j * blockSize
		maxY := minU32(v.height, minY+blockSize)

		for i := uint32(0); i < columns; i++ {
			minX := i * blockSize
			maxX := minU32(v.width, minX+blockSize)

			v.blocks = append(v.blocks, Block{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY})
		}
	}

	v.progress.ActiveBlocks = uint32(len(v.blocks))
	v.progress.ActivePixels = v.width * v.height
	v.progress.Converged = 0
}

// updateBlocks retires converged blocks and splits nearly converged ones
// along their longer axis.
func (v *Viewport) updateBlocks() {
	settings := &v.params.Adaptive
	if v.progress.PassesFinished < settings.NumInitialPasses {
		return
	}

	next := v.blocks[:0:cap(v.blocks)]
	var split []Block

	for _, block := range v.blocks {
		blockError := v.computeBlockError(block)

		if blockError < settings.ConvergenceThreshold {
			// converged; drop it from the active set
			continue
		}

		if blockError < settings.SubdivisionThreshold &&
			(block.Width() > settings.MinBlockSize || block.Height() > settings.MinBlockSize) {
			// nearly converged; halve it so convergence is tracked at a
			// finer granularity
			a, b := splitBlock(block)
			split = append(split, a, b)
			continue
		}

		next = append(next, block)
	}

	v.blocks = append(next, split...)

	var activePixels uint32
	for _, block := range v.blocks {
		activePixels += block.Area()
	}
	v.progress.ActivePixels = activePixels
	v.progress.ActiveBlocks = uint32(len(v.blocks))
	v.progress.Converged = 1 - float32(activePixels)/float32(v.width*v.height)
}

// splitBlock halves a block at the midpoint of its longer axis.
func splitBlock(block Block) (a, b Block) {
	a, b = block, block
	if block.Width() > block.Height() {
		half := (block.MinX + block.MaxX) / 2
		a.MaxX = half
		b.MinX = half
	} else {
		half := (block.MinY + block.MaxY) / 2
		a.MaxY = half
		b.MinY = half
	}
	return a, b
}

// performPostProcess refreshes the front buffer: the whole image after a
// parameter change, otherwise only the active tiles.
func (v *Viewport) performPostProcess() {
	params := &v.postprocess

	if params.BloomFactor > 0 {
		sigma := float32(2)
		for i := range v.blurred {
			if i == 0 {
				copy(v.blurred[i], v.sum)
			} else {
				copy(v.blurred[i], v.blurred[i-1])
			}
			gaussianBlur(v.blurred[i], v.width, v.height, sigma)
			sigma *= 2.5
		}
	}

	scale := pow32(2, params.Exposure)
	v.colorScale = Float4{params.ColorFilter.R * scale, params.ColorFilter.G * scale, params.ColorFilter.B * scale, 0}

	if v.fullPostUpdate {
		numSlices := v.pool.NumThreads()
		v.pool.ParallelFor(numSlices, func(task, thread int) {
			block := Block{
				MinX: 0,
				MaxX: v.width,
				MinY: v.height * uint32(task) / uint32(numSlices),
				MaxY: v.height * uint32(task+1) / uint32(numSlices),
			}
			v.postProcessTile(block, thread)
		})
		v.fullPostUpdate = false
		return
	}

	if len(v.tiles) > 0 {
		v.pool.ParallelFor(len(v.tiles), func(task, thread int) {
			v.postProcessTile(v.tiles[task], thread)
		})
	}
}

// postProcessTile converts one block of the accumulation buffer into the
// RGBA8 front buffer.
func (v *Viewport) postProcessTile(block Block, thread int) {
	rng := &v.threads[thread].Random
	scale := 1 / float32(1+v.progress.PassesFinished)
	useBloom := v.postprocess.BloomFactor > 0

	for y := block.MinY; y < block.MaxY; y++ {
		for x := block.MinX; x < block.MaxX; x++ {
			i := 3 * (y*v.width + x)
			raw := Float4{v.sum[i], v.sum[i+1], v.sum[i+2], 0}

			var bloom Float4
			if useBloom {
				for level := range v.blurred {
					b := Float4{v.blurred[level][i], v.blurred[level][i+1], v.blurred[level][i+2], 0}
					bloom = b.MulScalar(bloomWeights[level]).Add(bloom)
				}
			}

			out := postProcessPixel(raw, bloom, &v.postprocess, v.colorScale, scale, rng.FloatBipolar())

			o := 4 * (y*v.width + x)
			v.frontBuffer[o] = uint8(out[0]*255 + 0.5)
			v.frontBuffer[o+1] = uint8(out[1]*255 + 0.5)
			v.frontBuffer[o+2] = uint8(out[2]*255 + 0.5)
			v.frontBuffer[o+3] = 255
		}
	}
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
