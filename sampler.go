package lumen

// haltonPrimes are the radical inverse bases for the Halton sequence, one
// per sampling dimension.
var haltonPrimes = [...]uint32{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53,
	59, 61, 67, 71, 73, 79, 83, 89, 97, 101, 103, 107, 109, 113, 127, 131,
}

// MaxHaltonDimensions is the largest number of low-discrepancy dimensions a
// sampler can be configured with; further draws fall back to the PRNG.
const MaxHaltonDimensions = len(haltonPrimes)

// radicalInverse returns the base-b radical inverse of index in [0, 1).
func radicalInverse(base uint32, index uint64) float32 {
	invBase := 1.0 / float64(base)
	var reversed uint64
	invBaseN := 1.0
	for index > 0 {
		next := index / uint64(base)
		digit := index - next*uint64(base)
		reversed = reversed*uint64(base) + digit
		invBaseN *= invBase
		index = next
	}
	v := float64(reversed) * invBaseN
	if v >= 1 {
		v = 0
	}
	return float32(v)
}

// HaltonSequence generates the first numDimensions coordinates of the
// Halton low-discrepancy sequence. The viewport advances one shared
// sequence per pass and distributes the resulting sample to every worker.
type HaltonSequence struct {
	numDimensions int
	index         uint64
}

// Initialize configures the dimension count and rewinds the sequence.
// Dimension counts beyond MaxHaltonDimensions are clamped.
func (h *HaltonSequence) Initialize(numDimensions int) {
	if numDimensions > MaxHaltonDimensions {
		numDimensions = MaxHaltonDimensions
	}
	if numDimensions < 1 {
		numDimensions = 1
	}
	h.numDimensions = numDimensions
	h.index = 0
}

// NumDimensions returns the configured dimension count.
func (h *HaltonSequence) NumDimensions() int { return h.numDimensions }

// NextSample advances to the next point of the sequence.
func (h *HaltonSequence) NextSample() { h.index++ }

// Get returns coordinate dim of the current point.
func (h *HaltonSequence) Get(dim int) float32 {
	return radicalInverse(haltonPrimes[dim], h.index)
}

// Sampler composes the per-pass Halton point with a per-pixel
// Cranley-Patterson rotation, falling back to the thread's PRNG once the
// configured dimensions are exhausted.
//
// For a fixed (pass, pixel, dimension) triple the returned value is
// reproducible and independent of the thread schedule, provided consumers
// draw dimensions in a canonical order.
type Sampler struct {
	// Fallback is the thread's PRNG, consulted past the last Halton
	// dimension.
	Fallback *Random

	frame     []float32 // per-pass Halton coordinates
	salt      Vec2      // per-pixel rotation
	dimension int
}

// ResetFrame installs the pass's Halton coordinates. The slice is retained,
// not copied; the viewport owns it for the duration of the pass.
func (s *Sampler) ResetFrame(frame []float32) {
	s.frame = frame
	s.dimension = 0
}

// ResetPixel re-seeds the per-pixel scramble and rewinds the dimension
// counter. salt must be decorrelated across pixels; the viewport draws it
// from a PRNG at resize time.
func (s *Sampler) ResetPixel(salt Vec2) {
	s.salt = salt
	s.dimension = 0
}

// GetFloat draws the next dimension in [0, 1).
func (s *Sampler) GetFloat() float32 {
	if s.dimension < len(s.frame) {
		v := s.frame[s.dimension]
		// Cranley-Patterson rotation: even dimensions rotate by the X
		// component of the salt, odd dimensions by Y.
		if s.dimension&1 == 0 {
			v += s.salt.X
		} else {
			v += s.salt.Y
		}
		s.dimension++
		if v >= 1 {
			v -= 1
		}
		return v
	}
	s.dimension++
	return s.Fallback.Float()
}

// GetFloat2 draws the next two dimensions.
func (s *Sampler) GetFloat2() (x, y float32) {
	return s.GetFloat(), s.GetFloat()
}

// GetFloat3 draws the next three dimensions.
func (s *Sampler) GetFloat3() [3]float32 {
	return [3]float32{s.GetFloat(), s.GetFloat(), s.GetFloat()}
}
