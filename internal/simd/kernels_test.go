package simd

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return v
}

// relTolerance is the maximum allowed relative disagreement between
// kernel variants. Callers rank by distance, so every variant must
// produce the same ordering regardless of the probed ISA.
const relTolerance = 1e-5

func assertRelClose(t *testing.T, want, got float32) {
	t.Helper()

	diff := math.Abs(float64(want) - float64(got))
	scale := math.Max(math.Abs(float64(want)), math.Abs(float64(got)))
	if scale < 1 {
		scale = 1
	}
	assert.LessOrEqual(t, diff/scale, relTolerance, "want %g got %g", want, got)
}

func TestDotVariantsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	variants := map[string]func(a, b []float32) float32{
		"lanes4":  dotLanes4,
		"lanes8":  dotLanes8,
		"lanes16": dotLanes16,
	}

	for i := 0; i < 1000; i++ {
		dim := 1 + rng.Intn(1024)
		a := randomVector(rng, dim)
		b := randomVector(rng, dim)

		want := dotGeneric(a, b)
		for name, fn := range variants {
			got := fn(a, b)

			diff := math.Abs(float64(want) - float64(got))
			scale := math.Max(math.Abs(float64(want)), math.Abs(float64(got)))
			if scale < 1 {
				scale = 1
			}
			require.LessOrEqual(t, diff/scale, relTolerance,
				"%s dim=%d want=%g got=%g", name, dim, want, got)
		}
	}
}

func TestSquaredL2VariantsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	variants := map[string]func(a, b []float32) float32{
		"lanes4":  squaredL2Lanes4,
		"lanes8":  squaredL2Lanes8,
		"lanes16": squaredL2Lanes16,
	}

	for i := 0; i < 1000; i++ {
		dim := 1 + rng.Intn(1024)
		a := randomVector(rng, dim)
		b := randomVector(rng, dim)

		want := squaredL2Generic(a, b)
		for name, fn := range variants {
			got := fn(a, b)

			diff := math.Abs(float64(want) - float64(got))
			scale := math.Max(math.Abs(float64(want)), math.Abs(float64(got)))
			if scale < 1 {
				scale = 1
			}
			require.LessOrEqual(t, diff/scale, relTolerance,
				"%s dim=%d want=%g got=%g", name, dim, want, got)
		}
	}
}

func TestDotKnownValues(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}

	assertRelClose(t, 32, Dot(a, b))
	assertRelClose(t, 32, dotLanes4(a, b))
	assertRelClose(t, 32, dotLanes8(a, b))
	assertRelClose(t, 32, dotLanes16(a, b))

	assert.Zero(t, Dot(nil, nil))
}

func TestSquaredL2KnownValues(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 6, 8}

	assertRelClose(t, 50, SquaredL2(a, b))
	assertRelClose(t, 50, squaredL2Lanes4(a, b))
	assertRelClose(t, 50, squaredL2Lanes8(a, b))
	assertRelClose(t, 50, squaredL2Lanes16(a, b))
}

func TestScaleInPlace(t *testing.T) {
	for _, dim := range []int{1, 7, 8, 9, 33} {
		a := make([]float32, dim)
		want := make([]float32, dim)
		for i := range a {
			a[i] = float32(i) + 0.5
			want[i] = a[i] * 2
		}

		ScaleInPlace(a, 2)
		assert.Equal(t, want, a, "dim=%d", dim)
	}
}

func TestScaleLanes8MatchesGeneric(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 100; i++ {
		dim := 1 + rng.Intn(128)
		a := randomVector(rng, dim)
		b := make([]float32, dim)
		copy(b, a)

		scaleGeneric(a, 0.25)
		scaleLanes8(b, 0.25)
		assert.Equal(t, a, b)
	}
}

func TestBindKernels(t *testing.T) {
	// Restore the probed binding when done.
	defer bindKernels(ActiveISA())

	for _, isa := range []ISA{Generic, NEON, AVX2, AVX512} {
		bindKernels(isa)

		a := []float32{1, 2, 3, 4, 5}
		b := []float32{5, 4, 3, 2, 1}
		assertRelClose(t, 35, Dot(a, b))
	}
}
