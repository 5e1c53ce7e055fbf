package lumen

// RenderParam carries the per-pixel invariants of one RenderPixel call.
type RenderParam struct {
	Pass       uint32
	PixelIndex uint32
	Camera     CameraModel
	Film       *Film
}

// Renderer is one light-transport integrator. The viewport drives it
// through the pre-render hooks in this order every pass:
//
//  1. PreRenderThread once per worker (per-thread resets).
//  2. PreRenderPass once, with the pass film (pass-global state: radii,
//     MIS factors).
//  3. RenderPixel / RenderPacket for every pixel of every tile, in
//     parallel.
//  4. MergeThread once per worker after the pool barrier, then
//     BuildGlobal once (photon merge and spatial index build).
type Renderer interface {
	// Name identifies the renderer in UIs.
	Name() string
	// CreateContext allocates the renderer's per-thread state.
	CreateContext() RendererContext
	// PreRenderPass prepares pass-global state.
	PreRenderPass(pass uint32, film *Film)
	// PreRenderThread prepares one worker's state.
	PreRenderThread(pass uint32, ctx *RenderingContext)
	// RenderPixel estimates the radiance through the primary ray and
	// returns it; splatted side contributions go directly to param.Film.
	RenderPixel(ray *Ray, param *RenderParam, ctx *RenderingContext) Color
	// RenderPacket renders every 8-ray group of a tile's packet,
	// accumulating into param.Film.
	RenderPacket(packet *RayPacket, param *RenderParam, ctx *RenderingContext)
	// MergeThread folds one worker's per-pass output (photons) into the
	// renderer. Called between passes, never concurrently.
	MergeThread(ctx *RenderingContext)
	// BuildGlobal finalizes merged state (spatial index build).
	BuildGlobal()
}
