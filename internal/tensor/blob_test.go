package tensor

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlob_Dimensions(t *testing.T) {
	b, err := NewBlob(2, 3, 4, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, b.Num())
	assert.Equal(t, 3, b.Channels())
	assert.Equal(t, 4, b.Height())
	assert.Equal(t, 5, b.Width())
	assert.Equal(t, 120, b.Count())
	assert.Len(t, b.Data(), 120)
	assert.Len(t, b.Diff(), 120)
}

func TestNewBlob_InvalidShape(t *testing.T) {
	_, err := NewBlob(2, 0, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 1")
}

func TestBlob_LegacyDimensions(t *testing.T) {
	b := MustBlob(4, 10)

	assert.Equal(t, 4, b.Num())
	assert.Equal(t, 10, b.Channels())
	assert.Equal(t, 1, b.Height())
	assert.Equal(t, 1, b.Width())
}

func TestBlob_ReshapeKeepsMemoryWhenShrinking(t *testing.T) {
	b := MustBlob(1, 2, 4, 4)
	b.Data()[0] = 7

	require.NoError(t, b.Reshape(Shape{1, 2, 2, 2}))
	assert.Equal(t, 8, b.Count())
	assert.Equal(t, float32(7), b.Data()[0], "shrinking must not reallocate")

	require.NoError(t, b.Reshape(Shape{1, 2, 8, 8}))
	assert.Equal(t, 128, b.Count())
	assert.Equal(t, float32(0), b.Data()[0], "growing reallocates zeroed memory")
}

func TestBlob_Offset(t *testing.T) {
	b := MustBlob(2, 3, 4, 5)
	assert.Equal(t, 0, b.Offset(0, 0, 0, 0))
	assert.Equal(t, 1*60+2*20+3*5+4, b.Offset(1, 2, 3, 4))
}

func TestBlob_CopyFrom(t *testing.T) {
	src, err := FromSlice([]float32{1, 2, 3, 4}, 1, 1, 2, 2)
	require.NoError(t, err)
	copy(src.Diff(), []float32{5, 6, 7, 8})

	dst := MustBlob(1, 4)
	require.Error(t, dst.CopyFrom(src, false, false))

	require.NoError(t, dst.CopyFrom(src, false, true))
	assert.Equal(t, []float32{1, 2, 3, 4}, dst.Data())

	require.NoError(t, dst.CopyFrom(src, true, false))
	assert.Equal(t, []float32{5, 6, 7, 8}, dst.Diff())
}

func TestBlob_ShareData(t *testing.T) {
	src, err := FromSlice([]float32{1, 2, 3, 4}, 1, 1, 2, 2)
	require.NoError(t, err)

	require.ErrorContains(t, MustBlob(1, 4).ShareData(src), "share data")

	dst := MustBlob(1, 1, 2, 2)
	require.NoError(t, dst.ShareData(src))
	assert.Equal(t, []float32{1, 2, 3, 4}, dst.Data())

	src.Data()[0] = 9
	assert.Equal(t, float32(9), dst.Data()[0], "data is shared")
	dst.Diff()[0] = 5
	assert.Zero(t, src.Diff()[0], "diff stays separate")

	require.NoError(t, dst.Reshape(Shape{1, 1, 4, 4}))
	dst.Data()[0] = 3
	assert.Equal(t, float32(9), src.Data()[0], "growing ends sharing")
}

func TestFromSlice_LengthMismatch(t *testing.T) {
	_, err := FromSlice([]float32{1, 2, 3}, 2, 2)
	require.Error(t, err)
}

func TestShape_CountFrom(t *testing.T) {
	s := Shape{2, 3, 4, 5}
	assert.Equal(t, 120, s.CountFrom(0))
	assert.Equal(t, 60, s.CountFrom(1))
	assert.Equal(t, 1, s.CountFrom(4))
	assert.Panics(t, func() { s.CountFrom(5) })
}

func TestFillers(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	t.Run("constant", func(t *testing.T) {
		b := MustBlob(3, 3)
		ConstantFiller{Value: 0.5}.Fill(b, rng)
		for _, v := range b.Data() {
			assert.Equal(t, float32(0.5), v)
		}
	})

	t.Run("uniform", func(t *testing.T) {
		b := MustBlob(100)
		UniformFiller{Min: -2, Max: 3}.Fill(b, rng)
		for _, v := range b.Data() {
			assert.GreaterOrEqual(t, v, float32(-2))
			assert.Less(t, v, float32(3))
		}
	})

	t.Run("xavier", func(t *testing.T) {
		b := MustBlob(4, 3, 3, 3) // fan_in = 27
		XavierFiller{}.Fill(b, rng)
		for _, v := range b.Data() {
			assert.LessOrEqual(t, v, float32(0.334))
			assert.GreaterOrEqual(t, v, float32(-0.334))
		}
	})

	t.Run("gaussian", func(t *testing.T) {
		b := MustBlob(10000)
		GaussianFiller{Mean: 1, Std: 0.1}.Fill(b, rng)
		var sum float64
		for _, v := range b.Data() {
			sum += float64(v)
		}
		assert.InDelta(t, 1.0, sum/float64(b.Count()), 0.01)
	})
}
