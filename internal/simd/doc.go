// Package simd provides hardware-dispatched float kernels for distance
// computation.
//
// CPU capabilities are probed exactly once at package init (via
// golang.org/x/sys/cpu) and the widest supported path is bound into
// package-level function pointers. The AGENTDB_SIMD environment variable
// overrides auto-detection (generic, neon, avx2, avx512); an override
// naming an unavailable ISA falls back to auto-detection.
//
// All kernel variants agree within 1e-5 relative error on the same
// input pair. Callers get consistent ranking regardless of hardware.
//
// SAFETY: kernels assume equal-length inputs and perform no bounds
// checks beyond what the compiler requires. Length validation is the
// caller's responsibility (enforced at the store boundary).
package simd
