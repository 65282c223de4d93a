package layers

import (
	"testing"

	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvolutionLayer_Setup(t *testing.T) {
	l, err := NewConvolution(convParam(4, 3, 1, 1, true), seeded())
	require.NoError(t, err)

	bottom := tensor.MustBlob(2, 3, 8, 6)
	top := &tensor.Blob{}
	require.NoError(t, l.Setup([]*tensor.Blob{bottom}, []*tensor.Blob{top}))

	assert.Equal(t, tensor.Shape{2, 4, 8, 6}, top.Shape())
	require.Len(t, l.Blobs(), 2)
	assert.Equal(t, tensor.Shape{4, 3, 3, 3}, l.Blobs()[0].Shape())
	assert.Equal(t, tensor.Shape{4}, l.Blobs()[1].Shape())
	assert.Equal(t, config.EngineReference, l.Engine())
}

func TestConvolutionLayer_NoBias(t *testing.T) {
	l, err := NewConvolution(convParam(2, 1, 1, 0, false), seeded())
	require.NoError(t, err)

	forward(t, l, tensor.MustBlob(1, 3, 4, 4))
	assert.Len(t, l.Blobs(), 1)
}

func TestConvolutionLayer_SetupErrors(t *testing.T) {
	_, err := NewConvolution(config.LayerParameter{Name: "c", Type: config.TypeConvolution})
	require.ErrorContains(t, err, "missing convolution_param")

	l, err := NewConvolution(convParam(2, 5, 1, 0, true), seeded())
	require.NoError(t, err)

	err = l.Setup([]*tensor.Blob{tensor.MustBlob(1, 1, 3, 3)}, []*tensor.Blob{{}})
	require.ErrorContains(t, err, "does not fit")

	err = l.Setup([]*tensor.Blob{tensor.MustBlob(4, 9)}, []*tensor.Blob{{}})
	require.ErrorContains(t, err, "expected 4D input")

	err = l.Setup(nil, []*tensor.Blob{{}})
	require.ErrorContains(t, err, "expected at least 1 bottom blob")
}

func TestConvolutionLayer_ReshapeKeepsWeights(t *testing.T) {
	l, err := NewConvolution(convParam(2, 3, 1, 0, true), seeded())
	require.NoError(t, err)

	forward(t, l, tensor.MustBlob(1, 2, 5, 5))
	weights := append([]float32(nil), l.Blobs()[0].Data()...)

	top := forward(t, l, tensor.MustBlob(3, 2, 9, 9))
	assert.Equal(t, tensor.Shape{3, 2, 7, 7}, top.Shape())
	assert.Equal(t, weights, l.Blobs()[0].Data())

	err = l.Setup([]*tensor.Blob{tensor.MustBlob(1, 5, 5, 5)}, []*tensor.Blob{{}})
	require.ErrorContains(t, err, "weight channels")
}

func TestConvolutionLayer_Backward(t *testing.T) {
	l, err := NewConvolution(convParam(2, 3, 1, 1, true), seeded())
	require.NoError(t, err)

	bottom := randomBlob(t, 1, 2, 3, 4, 4)
	top := forward(t, l, bottom)
	for i := range top.Diff() {
		top.Diff()[i] = 1
	}

	l.Backward([]*tensor.Blob{top}, []bool{false}, []*tensor.Blob{bottom})
	for _, v := range bottom.Diff() {
		assert.Zero(t, v, "bottom diff must be untouched without propagateDown")
	}
	// d(sum top)/d(bias) = number of output positions over the batch.
	for _, v := range l.Blobs()[1].Diff() {
		assert.InDelta(t, 2*4*4, v, 1e-4)
	}

	l.Backward([]*tensor.Blob{top}, []bool{true}, []*tensor.Blob{bottom})
	var nonZero int
	for _, v := range bottom.Diff() {
		if v != 0 {
			nonZero++
		}
	}
	assert.Positive(t, nonZero)
}

func TestConvolutionLayer_Pairs(t *testing.T) {
	l, err := NewConvolution(convParam(3, 3, 1, 1, true), seeded())
	require.NoError(t, err)

	a, b := randomBlob(t, 11, 2, 2, 6, 5), randomBlob(t, 12, 2, 2, 6, 5)
	bottom := []*tensor.Blob{a, b}
	top := []*tensor.Blob{{}, {}}
	require.NoError(t, l.Setup(bottom, top))
	l.Forward(bottom, top)

	// Each top matches a single-pair forward with the same weights.
	for i := range bottom {
		single := &tensor.Blob{}
		require.NoError(t, single.ReshapeLike(top[i]))
		l.forwardPair(bottom[i], single)
		assert.Equal(t, single.Data(), top[i].Data(), "pair %d", i)
	}

	// Parameter gradients accumulate over the pairs.
	for _, tp := range top {
		for j := range tp.Diff() {
			tp.Diff()[j] = 1
		}
	}
	l.Backward(top, []bool{false, true}, bottom)
	for _, v := range l.Blobs()[1].Diff() {
		assert.InDelta(t, 2*2*6*5, v, 1e-3)
	}
	for _, v := range a.Diff() {
		assert.Zero(t, v)
	}
	var nonZero int
	for _, v := range b.Diff() {
		if v != 0 {
			nonZero++
		}
	}
	assert.Positive(t, nonZero)
}

func TestConvolutionLayer_PairErrors(t *testing.T) {
	l, err := NewConvolution(convParam(2, 3, 1, 0, true), seeded())
	require.NoError(t, err)

	err = l.Setup([]*tensor.Blob{tensor.MustBlob(1, 1, 5, 5), tensor.MustBlob(1, 1, 5, 5)}, []*tensor.Blob{{}})
	require.ErrorContains(t, err, "expected 2 top blobs to match bottoms, got 1")

	err = l.Setup([]*tensor.Blob{tensor.MustBlob(1, 1, 5, 5), tensor.MustBlob(1, 1, 6, 5)}, []*tensor.Blob{{}, {}})
	require.ErrorContains(t, err, "bottom 1 shape")
}
