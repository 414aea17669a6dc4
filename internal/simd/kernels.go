package simd

import "math"

// Kernel function pointers - bound once at init, zero runtime overhead.
// Generic implementations are the default; bindKernels swaps in wider
// variants based on the probed ISA. The selection is never re-evaluated
// per call.
var (
	kernelDot       = dotGeneric
	kernelSquaredL2 = squaredL2Generic
	kernelScale     = scaleGeneric
)

// bindKernels binds the kernel function pointers for the given ISA.
//
// The wide variants process multiple independent accumulator lanes per
// iteration, sized to the register width of the ISA so the compiler can
// keep the lanes in vector registers. All variants accumulate in float64
// so the summation order cannot push their results apart.
func bindKernels(isa ISA) {
	switch isa {
	case AVX512:
		kernelDot = dotLanes16
		kernelSquaredL2 = squaredL2Lanes16
		kernelScale = scaleLanes8
	case AVX2:
		kernelDot = dotLanes8
		kernelSquaredL2 = squaredL2Lanes8
		kernelScale = scaleLanes8
	case NEON:
		kernelDot = dotLanes4
		kernelSquaredL2 = squaredL2Lanes4
		kernelScale = scaleLanes8
	default:
		kernelDot = dotGeneric
		kernelSquaredL2 = squaredL2Generic
		kernelScale = scaleGeneric
	}
}

// ============================================================================
// Public API - dispatch through function pointers
// ============================================================================

// Dot calculates the dot product of two vectors.
//
// SAFETY: Assumes len(a) == len(b). Caller MUST ensure lengths match.
func Dot(a, b []float32) float32 {
	return kernelDot(a, b)
}

// SquaredL2 calculates the squared L2 distance.
//
// SAFETY: Assumes len(a) == len(b). Caller MUST ensure lengths match.
func SquaredL2(a, b []float32) float32 {
	return kernelSquaredL2(a, b)
}

// ScaleInPlace multiplies all elements of a by scalar.
func ScaleInPlace(a []float32, scalar float32) {
	kernelScale(a, scalar)
}

// Sqrt returns the square root of x.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// ============================================================================
// Generic (scalar) kernels
// ============================================================================

func dotGeneric(a, b []float32) float32 {
	var ret float64
	for i := range a {
		ret += float64(a[i]) * float64(b[i])
	}
	return float32(ret)
}

func squaredL2Generic(a, b []float32) float32 {
	var distance float64
	for i := range a {
		d := float64(a[i] - b[i])
		distance += d * d
	}
	return float32(distance)
}

func scaleGeneric(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}

// ============================================================================
// Wide kernels - multi-lane float64 accumulation
// ============================================================================

func dotLanes4(a, b []float32) float32 {
	var s0, s1, s2, s3 float64
	i := 0
	for ; i+4 <= len(a); i += 4 {
		av := a[i : i+4 : i+4]
		bv := b[i : i+4 : i+4]
		s0 += float64(av[0]) * float64(bv[0])
		s1 += float64(av[1]) * float64(bv[1])
		s2 += float64(av[2]) * float64(bv[2])
		s3 += float64(av[3]) * float64(bv[3])
	}
	ret := (s0 + s1) + (s2 + s3)
	for ; i < len(a); i++ {
		ret += float64(a[i]) * float64(b[i])
	}
	return float32(ret)
}

func dotLanes8(a, b []float32) float32 {
	var s0, s1, s2, s3, s4, s5, s6, s7 float64
	i := 0
	for ; i+8 <= len(a); i += 8 {
		av := a[i : i+8 : i+8]
		bv := b[i : i+8 : i+8]
		s0 += float64(av[0]) * float64(bv[0])
		s1 += float64(av[1]) * float64(bv[1])
		s2 += float64(av[2]) * float64(bv[2])
		s3 += float64(av[3]) * float64(bv[3])
		s4 += float64(av[4]) * float64(bv[4])
		s5 += float64(av[5]) * float64(bv[5])
		s6 += float64(av[6]) * float64(bv[6])
		s7 += float64(av[7]) * float64(bv[7])
	}
	ret := ((s0 + s1) + (s2 + s3)) + ((s4 + s5) + (s6 + s7))
	for ; i < len(a); i++ {
		ret += float64(a[i]) * float64(b[i])
	}
	return float32(ret)
}

func dotLanes16(a, b []float32) float32 {
	var s0, s1, s2, s3, s4, s5, s6, s7 float64
	i := 0
	for ; i+16 <= len(a); i += 16 {
		av := a[i : i+16 : i+16]
		bv := b[i : i+16 : i+16]
		s0 += float64(av[0])*float64(bv[0]) + float64(av[8])*float64(bv[8])
		s1 += float64(av[1])*float64(bv[1]) + float64(av[9])*float64(bv[9])
		s2 += float64(av[2])*float64(bv[2]) + float64(av[10])*float64(bv[10])
		s3 += float64(av[3])*float64(bv[3]) + float64(av[11])*float64(bv[11])
		s4 += float64(av[4])*float64(bv[4]) + float64(av[12])*float64(bv[12])
		s5 += float64(av[5])*float64(bv[5]) + float64(av[13])*float64(bv[13])
		s6 += float64(av[6])*float64(bv[6]) + float64(av[14])*float64(bv[14])
		s7 += float64(av[7])*float64(bv[7]) + float64(av[15])*float64(bv[15])
	}
	ret := ((s0 + s1) + (s2 + s3)) + ((s4 + s5) + (s6 + s7))
	for ; i < len(a); i++ {
		ret += float64(a[i]) * float64(b[i])
	}
	return float32(ret)
}

func squaredL2Lanes4(a, b []float32) float32 {
	var s0, s1, s2, s3 float64
	i := 0
	for ; i+4 <= len(a); i += 4 {
		av := a[i : i+4 : i+4]
		bv := b[i : i+4 : i+4]
		d0 := float64(av[0] - bv[0])
		d1 := float64(av[1] - bv[1])
		d2 := float64(av[2] - bv[2])
		d3 := float64(av[3] - bv[3])
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	ret := (s0 + s1) + (s2 + s3)
	for ; i < len(a); i++ {
		d := float64(a[i] - b[i])
		ret += d * d
	}
	return float32(ret)
}

func squaredL2Lanes8(a, b []float32) float32 {
	var s0, s1, s2, s3, s4, s5, s6, s7 float64
	i := 0
	for ; i+8 <= len(a); i += 8 {
		av := a[i : i+8 : i+8]
		bv := b[i : i+8 : i+8]
		d0 := float64(av[0] - bv[0])
		d1 := float64(av[1] - bv[1])
		d2 := float64(av[2] - bv[2])
		d3 := float64(av[3] - bv[3])
		d4 := float64(av[4] - bv[4])
		d5 := float64(av[5] - bv[5])
		d6 := float64(av[6] - bv[6])
		d7 := float64(av[7] - bv[7])
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
		s4 += d4 * d4
		s5 += d5 * d5
		s6 += d6 * d6
		s7 += d7 * d7
	}
	ret := ((s0 + s1) + (s2 + s3)) + ((s4 + s5) + (s6 + s7))
	for ; i < len(a); i++ {
		d := float64(a[i] - b[i])
		ret += d * d
	}
	return float32(ret)
}

func squaredL2Lanes16(a, b []float32) float32 {
	var s0, s1, s2, s3, s4, s5, s6, s7 float64
	i := 0
	for ; i+16 <= len(a); i += 16 {
		av := a[i : i+16 : i+16]
		bv := b[i : i+16 : i+16]
		d0 := float64(av[0] - bv[0])
		d1 := float64(av[1] - bv[1])
		d2 := float64(av[2] - bv[2])
		d3 := float64(av[3] - bv[3])
		d4 := float64(av[4] - bv[4])
		d5 := float64(av[5] - bv[5])
		d6 := float64(av[6] - bv[6])
		d7 := float64(av[7] - bv[7])
		e0 := float64(av[8] - bv[8])
		e1 := float64(av[9] - bv[9])
		e2 := float64(av[10] - bv[10])
		e3 := float64(av[11] - bv[11])
		e4 := float64(av[12] - bv[12])
		e5 := float64(av[13] - bv[13])
		e6 := float64(av[14] - bv[14])
		e7 := float64(av[15] - bv[15])
		s0 += d0*d0 + e0*e0
		s1 += d1*d1 + e1*e1
		s2 += d2*d2 + e2*e2
		s3 += d3*d3 + e3*e3
		s4 += d4*d4 + e4*e4
		s5 += d5*d5 + e5*e5
		s6 += d6*d6 + e6*e6
		s7 += d7*d7 + e7*e7
	}
	ret := ((s0 + s1) + (s2 + s3)) + ((s4 + s5) + (s6 + s7))
	for ; i < len(a); i++ {
		d := float64(a[i] - b[i])
		ret += d * d
	}
	return float32(ret)
}

func scaleLanes8(a []float32, scalar float32) {
	i := 0
	for ; i+8 <= len(a); i += 8 {
		av := a[i : i+8 : i+8]
		av[0] *= scalar
		av[1] *= scalar
		av[2] *= scalar
		av[3] *= scalar
		av[4] *= scalar
		av[5] *= scalar
		av[6] *= scalar
		av[7] *= scalar
	}
	for ; i < len(a); i++ {
		a[i] *= scalar
	}
}
