package lumen

import "fmt"

// Distribution samples a discrete index proportionally to a set of
// non-negative weights, for power-weighted light or texel picking.
type Distribution struct {
	pdf []float32
	cdf []float32 // len(pdf)+1, normalized
}

// NewDistribution builds a distribution over the given weights. The weights
// must be non-negative with a positive sum.
func NewDistribution(weights []float32) (*Distribution, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: empty distribution", ErrInvalidParams)
	}

	d := &Distribution{
		pdf: make([]float32, len(weights)),
		cdf: make([]float32, len(weights)+1),
	}

	var accumulated float32
	for i, w := range weights {
		if !(isFinite32(w) && w >= 0) {
			return nil, fmt.Errorf("%w: distribution weight %d is invalid", ErrInvalidParams, i)
		}
		accumulated += w
		d.cdf[i+1] = accumulated
	}
	if accumulated <= 0 {
		return nil, fmt.Errorf("%w: distribution sums to zero", ErrInvalidParams)
	}

	cdfNorm := 1 / accumulated
	pdfNorm := cdfNorm * float32(len(weights))
	for i := range weights {
		d.cdf[i+1] *= cdfNorm
		d.pdf[i] = weights[i] * pdfNorm
	}
	d.cdf[len(weights)] = 1

	return d, nil
}

// SampleDiscrete maps u in [0, 1) to an index; pdf is the discrete
// probability of that index times the weight count.
func (d *Distribution) SampleDiscrete(u float32) (index int, pdf float32) {
	lo, hi := 0, len(d.pdf)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if d.cdf[mid+1] <= u {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, d.pdf[lo]
}

// Pdf returns the stored density of index.
func (d *Distribution) Pdf(index int) float32 { return d.pdf[index] }
