package lumen

import "math"

// Tonemapper selects the HDR to LDR curve.
type Tonemapper uint8

const (
	// TonemapClamp clamps linear values to [0, 1].
	TonemapClamp Tonemapper = iota
	// TonemapReinhard applies x / (1 + x).
	TonemapReinhard
	// TonemapACES applies the ACES filmic fit.
	TonemapACES
)

// PostprocessParams drives the conversion of the accumulation buffer to the
// displayable front buffer.
type PostprocessParams struct {
	// Exposure is in stops; the color scale is 2^Exposure.
	Exposure float32
	// Saturation lerps between grayscale (0) and full color (1); values
	// above 1 oversaturate.
	Saturation float32
	// Contrast is applied as pow(x, Contrast) in linear space.
	Contrast float32
	// ColorFilter tints the image before tonemapping.
	ColorFilter Color
	// BloomFactor blends the blur pyramid over the image; 0 disables bloom.
	BloomFactor float32
	// DitheringStrength adds uniform noise before quantization.
	DitheringStrength float32
	// Tonemapper selects the curve.
	Tonemapper Tonemapper
}

// DefaultPostprocessParams returns a neutral configuration.
func DefaultPostprocessParams() PostprocessParams {
	return PostprocessParams{
		Saturation:        1,
		Contrast:          1,
		ColorFilter:       ColorWhite,
		DitheringStrength: 0.005,
		Tonemapper:        TonemapReinhard,
	}
}

// numBloomLevels is the blur pyramid depth.
const numBloomLevels = 5

// bloomWeights blends the pyramid levels, coarsest last.
var bloomWeights = [numBloomLevels]float32{0.35, 0.25, 0.15, 0.15, 0.1}

// postProcessPixel converts one accumulated RGB value to a display value in
// [0, 1]. scale is 1/passes; colorScale folds the exposure and filter.
func postProcessPixel(raw Float4, bloom Float4, params *PostprocessParams, colorScale Float4, scale float32, dither float32) Float4 {
	rgb := raw.MulScalar(scale)

	if params.BloomFactor > 0 {
		rgb = rgb.MulScalar(1 - params.BloomFactor)
		rgb = bloom.MulScalar(scale * params.BloomFactor).Add(rgb)
	}

	// saturation
	gray := rgb.Dot3(Float4{0.2126, 0.7152, 0.0722, 0})
	rgb = SplatF4(gray).Add(rgb.Sub(SplatF4(gray)).MulScalar(params.Saturation)).Max(SplatF4(0))

	// contrast
	if params.Contrast != 1 {
		rgb = Float4{
			pow32(rgb[0], params.Contrast),
			pow32(rgb[1], params.Contrast),
			pow32(rgb[2], params.Contrast),
			0,
		}
	}

	// exposure and filter
	rgb = rgb.Mul(colorScale)

	// tonemap
	switch params.Tonemapper {
	case TonemapReinhard:
		rgb = Float4{
			rgb[0] / (1 + rgb[0]),
			rgb[1] / (1 + rgb[1]),
			rgb[2] / (1 + rgb[2]),
			0,
		}
	case TonemapACES:
		rgb = Float4{acesFit(rgb[0]), acesFit(rgb[1]), acesFit(rgb[2]), 0}
	}

	// dither and clamp
	rgb = rgb.Add(SplatF4(dither * params.DitheringStrength))
	return rgb.Min(SplatF4(1)).Max(SplatF4(0))
}

// acesFit is the Narkowicz ACES approximation.
func acesFit(x float32) float32 {
	const a, b, c, d, e = 2.51, 0.03, 2.43, 0.59, 0.14
	return clamp32(x*(a*x+b)/(x*(c*x+d)+e), 0, 1)
}

func pow32(x, y float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Pow(float64(x), float64(y)))
}

// gaussianBlur approximates a Gaussian of the given sigma over an
// interleaved RGB buffer with three iterated box blurs per axis.
func gaussianBlur(buf []float32, width, height uint32, sigma float32) {
	if width == 0 || height == 0 {
		return
	}
	// box radius matching sigma over 3 iterations
	radius := int32(sigma*math.Sqrt2) | 1
	if radius < 1 {
		radius = 1
	}
	tmp := make([]float32, len(buf))
	for i := 0; i < 3; i++ {
		boxBlurH(buf, tmp, width, height, radius)
		boxBlurV(tmp, buf, width, height, radius)
	}
}

func boxBlurH(src, dst []float32, width, height uint32, radius int32) {
	inv := 1 / float32(2*radius+1)
	w := int32(width)
	for y := uint32(0); y < height; y++ {
		row := 3 * y * width
		for c := uint32(0); c < 3; c++ {
			var acc float32
			for x := -radius; x <= radius; x++ {
				acc += src[row+3*uint32(clampI32(x, 0, w-1))+c]
			}
			for x := int32(0); x < w; x++ {
				dst[row+3*uint32(x)+c] = acc * inv
				leaving := clampI32(x-radius, 0, w-1)
				entering := clampI32(x+radius+1, 0, w-1)
				acc += src[row+3*uint32(entering)+c] - src[row+3*uint32(leaving)+c]
			}
		}
	}
}

func boxBlurV(src, dst []float32, width, height uint32, radius int32) {
	inv := 1 / float32(2*radius+1)
	h := int32(height)
	for x := uint32(0); x < width; x++ {
		for c := uint32(0); c < 3; c++ {
			col := 3*x + c
			var acc float32
			for y := -radius; y <= radius; y++ {
				acc += src[3*uint32(clampI32(y, 0, h-1))*width+col]
			}
			for y := int32(0); y < h; y++ {
				dst[3*uint32(y)*width+col] = acc * inv
				leaving := clampI32(y-radius, 0, h-1)
				entering := clampI32(y+radius+1, 0, h-1)
				acc += src[3*uint32(entering)*width+col] - src[3*uint32(leaving)*width+col]
			}
		}
	}
}

func clampI32(x, lo, hi int32) int32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
