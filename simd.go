package lumen

// Wide vector types used by the packet traversal and the postprocess loop.
// The implementations are plain scalar Go; lane counts match the ray group
// layout (8 rays) and the color pipeline (RGB plus an unused fourth lane) so a
// build with hardware intrinsics can swap in without changing callers.

// Float4 is a 4-lane float32 vector.
type Float4 [4]float32

// Float8 is an 8-lane float32 vector.
type Float8 [8]float32

// Int4 is a 4-lane int32 vector.
type Int4 [4]int32

// Int8 is an 8-lane int32 vector. Comparisons on Float8 produce lane masks
// here, with -1 for true and 0 for false.
type Int8 [8]int32

// SplatF4 returns a Float4 with every lane set to s.
func SplatF4(s float32) Float4 { return Float4{s, s, s, s} }

// SplatF8 returns a Float8 with every lane set to s.
func SplatF8(s float32) Float8 { return Float8{s, s, s, s, s, s, s, s} }

// Add returns the lanewise sum a + b.
func (a Float4) Add(b Float4) Float4 {
	return Float4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

// Sub returns the lanewise difference a - b.
func (a Float4) Sub(b Float4) Float4 {
	return Float4{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

// Mul returns the lanewise product a * b.
func (a Float4) Mul(b Float4) Float4 {
	return Float4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

// MulScalar returns a with every lane multiplied by s.
func (a Float4) MulScalar(s float32) Float4 {
	return Float4{a[0] * s, a[1] * s, a[2] * s, a[3] * s}
}

// MulAdd returns a*b + c lanewise.
func (a Float4) MulAdd(b, c Float4) Float4 {
	return Float4{a[0]*b[0] + c[0], a[1]*b[1] + c[1], a[2]*b[2] + c[2], a[3]*b[3] + c[3]}
}

// Min returns the lanewise minimum of a and b.
func (a Float4) Min(b Float4) Float4 {
	return Float4{min32(a[0], b[0]), min32(a[1], b[1]), min32(a[2], b[2]), min32(a[3], b[3])}
}

// Max returns the lanewise maximum of a and b.
func (a Float4) Max(b Float4) Float4 {
	return Float4{max32(a[0], b[0]), max32(a[1], b[1]), max32(a[2], b[2]), max32(a[3], b[3])}
}

// Dot3 treats a and b as xyz vectors (lane 3 ignored) and returns their dot
// product.
func (a Float4) Dot3(b Float4) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Add returns the lanewise sum a + b.
func (a Float8) Add(b Float8) Float8 {
	var r Float8
	for i := range r {
		r[i] = a[i] + b[i]
	}
	return r
}

// Sub returns the lanewise difference a - b.
func (a Float8) Sub(b Float8) Float8 {
	var r Float8
	for i := range r {
		r[i] = a[i] - b[i]
	}
	return r
}

// Mul returns the lanewise product a * b.
func (a Float8) Mul(b Float8) Float8 {
	var r Float8
	for i := range r {
		r[i] = a[i] * b[i]
	}
	return r
}

// MulAdd returns a*b + c lanewise.
func (a Float8) MulAdd(b, c Float8) Float8 {
	var r Float8
	for i := range r {
		r[i] = a[i]*b[i] + c[i]
	}
	return r
}

// Min returns the lanewise minimum of a and b.
func (a Float8) Min(b Float8) Float8 {
	var r Float8
	for i := range r {
		r[i] = min32(a[i], b[i])
	}
	return r
}

// Max returns the lanewise maximum of a and b.
func (a Float8) Max(b Float8) Float8 {
	var r Float8
	for i := range r {
		r[i] = max32(a[i], b[i])
	}
	return r
}

// CmpLE returns a lane mask with -1 where a <= b.
func (a Float8) CmpLE(b Float8) Int8 {
	var m Int8
	for i := range m {
		if a[i] <= b[i] {
			m[i] = -1
		}
	}
	return m
}

// CmpLT returns a lane mask with -1 where a < b.
func (a Float8) CmpLT(b Float8) Int8 {
	var m Int8
	for i := range m {
		if a[i] < b[i] {
			m[i] = -1
		}
	}
	return m
}

// Select returns a lanewise blend: a where the mask lane is set, b elsewhere.
func Select(mask Int8, a, b Float8) Float8 {
	var r Float8
	for i := range r {
		if mask[i] != 0 {
			r[i] = a[i]
		} else {
			r[i] = b[i]
		}
	}
	return r
}

// And returns the lanewise bitwise AND of a and b.
func (a Int8) And(b Int8) Int8 {
	var r Int8
	for i := range r {
		r[i] = a[i] & b[i]
	}
	return r
}

// Or returns the lanewise bitwise OR of a and b.
func (a Int8) Or(b Int8) Int8 {
	var r Int8
	for i := range r {
		r[i] = a[i] | b[i]
	}
	return r
}

// MoveMask packs the sign bit of every lane into the low 8 bits of the
// result, lane 0 in bit 0.
func (a Int8) MoveMask() uint32 {
	var m uint32
	for i := range a {
		if a[i] < 0 {
			m |= 1 << uint(i)
		}
	}
	return m
}

// None reports whether no lane is set.
func (a Int8) None() bool { return a.MoveMask() == 0 }

// Add returns the lanewise sum a + b.
func (a Int4) Add(b Int4) Int4 {
	return Int4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

// Mul returns the lanewise product a * b.
func (a Int4) Mul(b Int4) Int4 {
	return Int4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

// Xor returns the lanewise bitwise XOR of a and b.
func (a Int4) Xor(b Int4) Int4 {
	return Int4{a[0] ^ b[0], a[1] ^ b[1], a[2] ^ b[2], a[3] ^ b[3]}
}

// Gather8 loads base[indices[i]] into lane i.
func Gather8(base []float32, indices Int8) Float8 {
	var r Float8
	for i := range r {
		r[i] = base[indices[i]]
	}
	return r
}
