package lumen

import "fmt"

// AdaptiveSettings controls error-driven block refinement.
type AdaptiveSettings struct {
	// Enable turns adaptive refinement on. When off, the whole image stays
	// one block set and only the average error is tracked.
	Enable bool
	// MaxBlockSize is the initial block edge in pixels.
	MaxBlockSize uint32
	// MinBlockSize stops subdivision once both block edges reach it.
	MinBlockSize uint32
	// NumInitialPasses delays the first block update so the variance
	// estimate has data.
	NumInitialPasses uint32
	// ConvergenceThreshold retires blocks whose error falls below it.
	ConvergenceThreshold float32
	// SubdivisionThreshold splits blocks whose error falls below it but
	// above the convergence threshold.
	SubdivisionThreshold float32
}

// DefaultAdaptiveSettings mirrors the values the interactive demo uses.
func DefaultAdaptiveSettings() AdaptiveSettings {
	return AdaptiveSettings{
		Enable:               false,
		MaxBlockSize:         256,
		MinBlockSize:         4,
		NumInitialPasses:     16,
		ConvergenceThreshold: 0.0002,
		SubdivisionThreshold: 0.005,
	}
}

// RenderingParams is the configuration record the viewport consumes.
type RenderingParams struct {
	// SamplesPerPixel is the sample count per pass; must be >= 1.
	SamplesPerPixel uint32
	// MaxRayDepth caps the path tracer's path length; must be in [1, 254].
	// VCM sub-paths are bounded by VCM.MaxPathLength alone.
	MaxRayDepth uint32
	// MotionBlurStrength scales the per-sample time jitter; in [0, 1].
	MotionBlurStrength float32
	// AntiAliasingSpread is the stddev of the per-pass pixel offset; >= 0.
	AntiAliasingSpread float32
	// TraversalMode selects single-ray or packet primary rays.
	TraversalMode TraversalMode
	// NumThreads is the worker count; must be >= 1.
	NumThreads uint32
	// TileSize is the tile edge in pixels; must be >= 1, and divisible by
	// the ray group size in packet mode.
	TileSize uint32
	// SamplingDimensions is the number of low-discrepancy dimensions before
	// the sampler falls back to the PRNG.
	SamplingDimensions int
	// Adaptive configures block refinement.
	Adaptive AdaptiveSettings
}

// DefaultRenderingParams returns a valid starting configuration.
func DefaultRenderingParams() RenderingParams {
	return RenderingParams{
		SamplesPerPixel:    1,
		MaxRayDepth:        10,
		AntiAliasingSpread: 0.4,
		TraversalMode:      TraversalSingle,
		NumThreads:         1,
		TileSize:           16,
		SamplingDimensions: 24,
		Adaptive:           DefaultAdaptiveSettings(),
	}
}

// Validate reports the first parameter outside its documented range.
func (p *RenderingParams) Validate() error {
	switch {
	case p.SamplesPerPixel < 1:
		return fmt.Errorf("%w: samples per pixel must be >= 1", ErrInvalidParams)
	case p.MaxRayDepth < 1 || p.MaxRayDepth > 254:
		return fmt.Errorf("%w: max ray depth %d outside [1, 254]", ErrInvalidParams, p.MaxRayDepth)
	case p.MotionBlurStrength < 0 || p.MotionBlurStrength > 1:
		return fmt.Errorf("%w: motion blur strength outside [0, 1]", ErrInvalidParams)
	case p.AntiAliasingSpread < 0:
		return fmt.Errorf("%w: anti-aliasing spread must be >= 0", ErrInvalidParams)
	case p.NumThreads < 1:
		return fmt.Errorf("%w: thread count must be >= 1", ErrInvalidParams)
	case p.TileSize < 1:
		return fmt.Errorf("%w: tile size must be >= 1", ErrInvalidParams)
	case p.TraversalMode == TraversalPacket &&
		(p.TileSize%rayGroupSizeX != 0 || p.TileSize%rayGroupSizeY != 0):
		return fmt.Errorf("%w: packet mode needs tile size divisible by %dx%d",
			ErrInvalidParams, rayGroupSizeX, rayGroupSizeY)
	case p.Adaptive.Enable && p.Adaptive.MinBlockSize < 1:
		return fmt.Errorf("%w: min block size must be >= 1", ErrInvalidParams)
	case p.Adaptive.Enable && p.Adaptive.MaxBlockSize < p.Adaptive.MinBlockSize:
		return fmt.Errorf("%w: max block size below min block size", ErrInvalidParams)
	}
	return nil
}

// RayTracingCounters tallies per-thread work; the viewport merges them
// after each pass.
type RayTracingCounters struct {
	NumPrimaryRays   uint64
	NumShadowRays    uint64
	NumRayBoxTests   uint64
	NumIntersections uint64
}

// Reset zeroes the counters.
func (c *RayTracingCounters) Reset() { *c = RayTracingCounters{} }

// Append accumulates o into c.
func (c *RayTracingCounters) Append(o *RayTracingCounters) {
	c.NumPrimaryRays += o.NumPrimaryRays
	c.NumShadowRays += o.NumShadowRays
	c.NumRayBoxTests += o.NumRayBoxTests
	c.NumIntersections += o.NumIntersections
}

// RendererContext is the renderer-specific per-thread state; renderers
// allocate one per worker via Renderer.CreateContext.
type RendererContext interface{}

// RenderingContext is the per-worker state borrowed by every tile job: the
// samplers, parameters, camera, counters, and the renderer's own context.
// Nothing in it is shared between workers.
type RenderingContext struct {
	Random   Random
	Sampler  Sampler
	Params   *RenderingParams
	Camera   CameraModel
	Time     float32
	Counters RayTracingCounters

	// RendererCtx holds the active renderer's per-thread state (photon
	// buffers, light vertex stacks).
	RendererCtx RendererContext

	packet RayPacket // reused across packet-mode tiles
}
