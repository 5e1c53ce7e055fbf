package lumen

import "math"

func float32bits(f float32) uint32     { return math.Float32bits(f) }
func float32frombits(b uint32) float32 { return math.Float32frombits(b) }

// Photon is a compressed light sub-path vertex stored for vertex merging.
// The layout is 32 bytes: position, oct-encoded incoming direction,
// half-float RGB throughput, and the two MIS accumulators the merging
// weight needs.
type Photon struct {
	Position   [3]float32
	Direction  uint32    // oct-encoded unit vector
	Throughput [4]uint16 // half-float RGB + unused lane
	DVM        float32
	DVCM       float32
}

// MakePhoton compresses a light vertex into a photon.
func MakePhoton(position, direction Vec3, throughput Color, dVM, dVCM float32) Photon {
	return Photon{
		Position:   [3]float32{position.X, position.Y, position.Z},
		Direction:  OctEncode(direction),
		Throughput: packHalf4(Float4{throughput.R, throughput.G, throughput.B, 0}),
		DVM:        dVM,
		DVCM:       dVCM,
	}
}

// Pos returns the decoded world position.
func (p *Photon) Pos() Vec3 {
	return Vec3{p.Position[0], p.Position[1], p.Position[2]}
}

// Dir returns the decoded incoming direction.
func (p *Photon) Dir() Vec3 { return OctDecode(p.Direction) }

// Color returns the decoded throughput.
func (p *Photon) Color() Color {
	f := unpackHalf4(p.Throughput)
	return Color{f[0], f[1], f[2]}
}

// OctEncode maps a unit vector to a 32-bit octahedral encoding
// (2 x snorm16).
func OctEncode(v Vec3) uint32 {
	l1 := abs32(v.X) + abs32(v.Y) + abs32(v.Z)
	if l1 == 0 {
		l1 = 1
	}
	x := v.X / l1
	y := v.Y / l1
	if v.Z < 0 {
		// fold the lower hemisphere over the diagonals
		ox, oy := x, y
		x = (1 - abs32(oy)) * signNonZero(ox)
		y = (1 - abs32(ox)) * signNonZero(oy)
	}
	return uint32(snorm16(x)) | uint32(snorm16(y))<<16
}

// OctDecode inverts OctEncode. The result is normalized.
func OctDecode(enc uint32) Vec3 {
	x := unsnorm16(uint16(enc))
	y := unsnorm16(uint16(enc >> 16))
	z := 1 - abs32(x) - abs32(y)
	if z < 0 {
		ox, oy := x, y
		x = (1 - abs32(oy)) * signNonZero(ox)
		y = (1 - abs32(ox)) * signNonZero(oy)
	}
	return Vec3{x, y, z}.Normalized()
}

func signNonZero(x float32) float32 {
	if x < 0 {
		return -1
	}
	return 1
}

func snorm16(x float32) uint16 {
	v := clamp32(x, -1, 1) * 32767
	if v >= 0 {
		return uint16(v + 0.5)
	}
	return uint16(int16(v - 0.5))
}

func unsnorm16(u uint16) float32 {
	return clamp32(float32(int16(u))/32767, -1, 1)
}

// packHalf4 converts 4 float32 lanes to IEEE half precision.
func packHalf4(f Float4) [4]uint16 {
	return [4]uint16{
		floatToHalf(f[0]), floatToHalf(f[1]), floatToHalf(f[2]), floatToHalf(f[3]),
	}
}

// unpackHalf4 converts 4 half-precision lanes back to float32.
func unpackHalf4(h [4]uint16) Float4 {
	return Float4{
		halfToFloat(h[0]), halfToFloat(h[1]), halfToFloat(h[2]), halfToFloat(h[3]),
	}
}

// floatToHalf converts a float32 to IEEE 754 binary16 with round-to-nearest
// and overflow to infinity. Throughput values never need subnormal
// precision, but the conversion handles them anyway.
func floatToHalf(f float32) uint16 {
	bits := float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xff) - 127 + 15
	mant := bits & 0x7fffff

	switch {
	case exp >= 31:
		if int32(bits>>23&0xff) == 255 {
			if mant != 0 {
				return sign | 0x7e00 // NaN
			}
			return sign | 0x7c00 // Inf
		}
		return sign | 0x7c00 // overflow to Inf
	case exp <= 0:
		if exp < -10 {
			return sign // underflow to zero
		}
		// subnormal half
		mant |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(mant >> shift)
		if mant>>(shift-1)&1 != 0 {
			half++
		}
		return sign | half
	default:
		half := sign | uint16(exp)<<10 | uint16(mant>>13)
		if mant&0x1000 != 0 {
			half++
		}
		return half
	}
}

// halfToFloat converts IEEE 754 binary16 to float32.
func halfToFloat(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h >> 10 & 0x1f)
	mant := uint32(h & 0x3ff)

	switch exp {
	case 0:
		if mant == 0 {
			return float32frombits(sign)
		}
		// subnormal half: value is mant * 2^-24
		f := float32(mant) / (1 << 24)
		if sign != 0 {
			f = -f
		}
		return f
	case 31:
		return float32frombits(sign | 0x7f800000 | mant<<13)
	default:
		return float32frombits(sign | (exp+127-15)<<23 | mant<<13)
	}
}
