// Package lumen is the core of an offline, progressive path-tracing
// renderer: scene-agnostic acceleration structures, low-discrepancy
// sampling, bidirectional light transport, and a multi-threaded progressive
// viewport.
//
// # Architecture
//
// Geometry reaches the core only as bounding boxes: [BuildBVH] packs a
// surface-area-heuristic hierarchy over them, and the traversals hand leaf
// ranges back to the scene through [LeafIntersector]. Materials, lights,
// and cameras are consumed through the narrow [Material], [Light], and
// [CameraModel] contracts; the compact built-in implementations live in the
// geom subpackage.
//
// # Rendering
//
// A [Viewport] owns the film and a worker pool. Each Render call is one
// pass: it advances a shared Halton sequence, seeds every worker's
// [Sampler], dispatches tile jobs, and merges per-thread results at the
// pool barrier. Two integrators implement [Renderer]:
//
//   - [PathTracer]: unidirectional BSDF sampling with optional next event
//     estimation; the reference implementation.
//   - [VCM]: vertex connection and merging, combining unidirectional
//     sampling, next event estimation, bidirectional connections, light
//     tracing, and progressive photon merging under one multiple
//     importance sampling scheme.
//
// After every even pass the viewport derives a per-block error estimate
// from two interleaved accumulation buffers; adaptive mode retires
// converged blocks and subdivides nearly converged ones.
//
// # Quick start
//
//	scene := geom.NewScene(...)
//	vp := lumen.NewViewport()
//	vp.Resize(640, 480)
//	vp.SetRenderer(lumen.NewVCM(scene))
//	for pass := 0; pass < 64; pass++ {
//		vp.Render(camera)
//	}
//	rgba := vp.FrontBuffer()
//
// The demos directory contains an interactive Ebitengine viewer that
// displays the front buffer as it refines.
package lumen
