package lumen

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// Film is a per-pass view over the viewport's accumulation buffers: the
// primary sum and, on even-indexed passes, the secondary sum that feeds the
// variance estimate.
//
// AccumulateColor is unsynchronized - each worker owns a disjoint tile.
// Splat uses an atomic add per channel, since light-tracer paths land on
// arbitrary pixels.
type Film struct {
	width, height uint32
	sum           []float32 // 3*width*height, RGB interleaved
	secondary     []float32 // nil on odd passes
}

// NewFilm builds a film view. secondary may be nil.
func NewFilm(width, height uint32, sum, secondary []float32) Film {
	return Film{width: width, height: height, sum: sum, secondary: secondary}
}

// Width returns the film width in pixels.
func (f *Film) Width() uint32 { return f.width }

// Height returns the film height in pixels.
func (f *Film) Height() uint32 { return f.height }

// AccumulateColor adds c to the pixel (x, y).
func (f *Film) AccumulateColor(x, y uint32, c Color) {
	i := 3 * (y*f.width + x)
	f.sum[i] += c.R
	f.sum[i+1] += c.G
	f.sum[i+2] += c.B
	if f.secondary != nil {
		f.secondary[i] += c.R
		f.secondary[i+1] += c.G
		f.secondary[i+2] += c.B
	}
}

// Splat deposits c at a non-integer film position using a box filter (the
// pixel containing the position). Positions outside the film are dropped.
func (f *Film) Splat(pos Vec2, c Color) {
	// checked before truncation, which would map (-1, 0) onto pixel 0
	if pos.X < 0 || pos.Y < 0 {
		return
	}
	x := int32(pos.X)
	y := int32(pos.Y)
	if x < 0 || y < 0 || uint32(x) >= f.width || uint32(y) >= f.height {
		return
	}
	i := 3 * (uint32(y)*f.width + uint32(x))
	atomicAddFloat32(&f.sum[i], c.R)
	atomicAddFloat32(&f.sum[i+1], c.G)
	atomicAddFloat32(&f.sum[i+2], c.B)
	if f.secondary != nil {
		atomicAddFloat32(&f.secondary[i], c.R)
		atomicAddFloat32(&f.secondary[i+1], c.G)
		atomicAddFloat32(&f.secondary[i+2], c.B)
	}
}

// Clear zeroes both buffers.
func (f *Film) Clear() {
	clear(f.sum)
	clear(f.secondary)
}

// atomicAddFloat32 adds delta to *addr with a CAS loop.
func atomicAddFloat32(addr *float32, delta float32) {
	u := (*uint32)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint32(u)
		next := math.Float32bits(math.Float32frombits(old) + delta)
		if atomic.CompareAndSwapUint32(u, old, next) {
			return
		}
	}
}
