package simd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestISAString(t *testing.T) {
	assert.Equal(t, "generic", Generic.String())
	assert.Equal(t, "neon", NEON.String())
	assert.Equal(t, "avx2", AVX2.String())
	assert.Equal(t, "avx512", AVX512.String())
	assert.Equal(t, "unknown", ISA(99).String())
}

func TestParseISA(t *testing.T) {
	tests := []struct {
		input string
		want  ISA
		ok    bool
	}{
		{"generic", Generic, true},
		{"neon", NEON, true},
		{"avx2", AVX2, true},
		{"avx512", AVX512, true},
		{" AVX2 ", AVX2, true},
		{"NEON", NEON, true},
		{"", Generic, false},
		{"sse42", Generic, false},
	}

	for _, tt := range tests {
		got, ok := ParseISA(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestActiveISAIsAvailable(t *testing.T) {
	// Whatever init probed must actually be usable on this CPU.
	assert.True(t, isISAAvailable(ActiveISA()))
}

func TestGenericAlwaysAvailable(t *testing.T) {
	assert.True(t, isISAAvailable(Generic))
	assert.False(t, isISAAvailable(ISA(99)))
}
