package simd

import (
	"os"
	"runtime"
	"strings"
)

// ISA represents a SIMD instruction set architecture.
type ISA uint8

const (
	// Generic represents the portable scalar implementation (no SIMD).
	Generic ISA = iota
	// NEON represents ARM64 NEON (128-bit lanes, ASIMD).
	NEON
	// AVX2 represents x86-64 AVX2 with FMA (256-bit lanes).
	AVX2
	// AVX512 represents x86-64 AVX-512 (512-bit lanes).
	AVX512
)

// String returns the string representation of an ISA.
func (i ISA) String() string {
	switch i {
	case Generic:
		return "generic"
	case NEON:
		return "neon"
	case AVX2:
		return "avx2"
	case AVX512:
		return "avx512"
	default:
		return "unknown"
	}
}

// ParseISA parses a string into an ISA value.
func ParseISA(s string) (ISA, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return Generic, true
	case "neon":
		return NEON, true
	case "avx2":
		return AVX2, true
	case "avx512":
		return AVX512, true
	default:
		return Generic, false
	}
}

// Package-level state - initialized once at package init.
// No mutex needed: Go guarantees init() runs before any other code.
var (
	// activeISA is the selected SIMD implementation.
	activeISA ISA

	// hasOverride is true if AGENTDB_SIMD was set.
	hasOverride bool

	// CPU feature flags (set by platform-specific init)
	hasASIMD    bool // ARM64 NEON
	hasAVX2     bool // x86-64 AVX2 + FMA
	hasAVX512F  bool // x86-64 AVX-512 Foundation
	hasAVX512BW bool // x86-64 AVX-512 Byte/Word
)

// initCapabilities is called from platform-specific init functions
// after CPU features are detected.
func initCapabilities() {
	// Check for environment override
	if override := os.Getenv("AGENTDB_SIMD"); override != "" {
		if isa, ok := ParseISA(override); ok {
			hasOverride = true
			// Validate the override is available
			if isISAAvailable(isa) {
				activeISA = isa
				bindKernels(activeISA)
				return
			}
			// Invalid override - fall through to auto-detection
		}
	}

	activeISA = selectBestISA()
	bindKernels(activeISA)
}

// isISAAvailable checks if an ISA is supported on this CPU.
func isISAAvailable(isa ISA) bool {
	switch isa {
	case Generic:
		return true
	case NEON:
		return hasASIMD
	case AVX2:
		return hasAVX2
	case AVX512:
		return hasAVX512F && hasAVX512BW
	default:
		return false
	}
}

// selectBestISA chooses the widest available ISA for the current platform.
func selectBestISA() ISA {
	switch runtime.GOARCH {
	case "arm64":
		if hasASIMD {
			return NEON
		}
	case "amd64":
		if hasAVX512F && hasAVX512BW {
			return AVX512
		}
		if hasAVX2 {
			return AVX2
		}
	}
	return Generic
}

// ActiveISA returns the currently active ISA.
func ActiveISA() ISA {
	return activeISA
}

// IsOverridden returns true if AGENTDB_SIMD was set.
func IsOverridden() bool {
	return hasOverride
}

// HasASIMD returns true if ARM64 NEON is available.
func HasASIMD() bool {
	return hasASIMD
}

// HasAVX2 returns true if x86-64 AVX2+FMA is available.
func HasAVX2() bool {
	return hasAVX2
}

// HasAVX512 returns true if x86-64 AVX-512 (F+BW) is available.
func HasAVX512() bool {
	return hasAVX512F && hasAVX512BW
}
