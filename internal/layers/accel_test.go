package layers

import (
	"math"
	"testing"

	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pair builds a reference layer and an accelerated layer with identical
// parameters.
func convPair(t *testing.T, param config.LayerParameter) (*ConvolutionLayer, *AccelConvolutionLayer) {
	t.Helper()
	ref, err := NewConvolution(param, seeded())
	require.NoError(t, err)
	acc, err := NewAccelConvolution(param, seeded())
	require.NoError(t, err)
	return ref, acc
}

func TestAccelConvolution_MatchesReference(t *testing.T) {
	tests := []struct {
		name      string
		batch     int
		kernel    int
		pad       int
		algorithm config.Algorithm
		transform config.KernelTransform
	}{
		{"inference auto 3x3", 1, 3, 1, config.AlgorithmAuto, config.KernelTransformRecompute},
		{"inference winograd", 1, 3, 0, config.AlgorithmWinograd, config.KernelTransformRecompute},
		{"inference fft 5x5", 1, 5, 2, config.AlgorithmFFT8x8, config.KernelTransformPrecompute},
		{"inference 1x1", 1, 1, 0, config.AlgorithmAuto, config.KernelTransformRecompute},
		{"inference 1x1 reuse", 1, 1, 0, config.AlgorithmAuto, config.KernelTransformReuse},
		{"inference 1x1 precompute", 1, 1, 0, config.AlgorithmAuto, config.KernelTransformPrecompute},
		{"output 1x1", 3, 1, 0, config.AlgorithmAuto, config.KernelTransformRecompute},
		{"output auto", 4, 3, 1, config.AlgorithmAuto, config.KernelTransformRecompute},
		{"output fft16", 2, 11, 0, config.AlgorithmFFT16x16, config.KernelTransformRecompute},
		{"output gemm", 3, 4, 1, config.AlgorithmImplicitGEMM, config.KernelTransformRecompute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			param := convParam(5, tt.kernel, 1, tt.pad, true)
			param.Convolution.Algorithm = tt.algorithm
			param.Convolution.KernelTransform = tt.transform
			ref, acc := convPair(t, param)

			bottom := randomBlob(t, 42, tt.batch, 3, 13, 12)
			want := forward(t, ref, bottom)
			got := forward(t, acc, bottom)

			require.Equal(t, want.Shape(), got.Shape())
			assert.InDeltaSlice(t, want.Data(), got.Data(), 1e-4)
			assert.Equal(t, config.EngineAccel, acc.Engine())
		})
	}
}

func TestAccelConvolution_Pairs(t *testing.T) {
	for _, batch := range []int{1, 3} {
		ref, acc := convPair(t, convParam(4, 3, 1, 1, true))

		bottom := []*tensor.Blob{
			randomBlob(t, 21, batch, 3, 7, 8),
			randomBlob(t, 22, batch, 3, 7, 8),
			randomBlob(t, 23, batch, 3, 7, 8),
		}
		want := []*tensor.Blob{{}, {}, {}}
		got := []*tensor.Blob{{}, {}, {}}
		require.NoError(t, ref.Setup(bottom, want))
		require.NoError(t, acc.Setup(bottom, got))
		ref.Forward(bottom, want)
		acc.Forward(bottom, got)

		for i := range bottom {
			require.Equal(t, want[i].Shape(), got[i].Shape())
			assert.InDeltaSlice(t, want[i].Data(), got[i].Data(), 1e-4, "batch %d pair %d", batch, i)
		}
	}
}

func TestAccelConvolution_FallsBack(t *testing.T) {
	tests := []struct {
		name  string
		param config.LayerParameter
		log   string
	}{
		{"no bias", convParam(4, 3, 1, 1, false), "needs a bias term"},
		{"stride 2", convParam(4, 3, 2, 1, true), "needs unit stride"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureTrace(t)
			ref, acc := convPair(t, tt.param)

			bottom := randomBlob(t, 5, 2, 3, 9, 9)
			want := forward(t, ref, bottom)
			got := forward(t, acc, bottom)

			assert.Equal(t, want.Data(), got.Data(), "fallback must be the reference computation")
			assert.Contains(t, logs.String(), "level=TRACE")
			assert.Contains(t, logs.String(), tt.log)
		})
	}
}

func TestAccelConvolution_UnsupportedAlgorithmPanics(t *testing.T) {
	param := convParam(2, 5, 1, 0, true)
	param.Convolution.Algorithm = config.AlgorithmWinograd
	_, acc := convPair(t, param)

	assert.PanicsWithValue(t, "accel: convolution inference: accel: unsupported algorithm", func() {
		forward(t, acc, randomBlob(t, 1, 1, 1, 8, 8))
	})
}

func TestAccelConvolution_BackwardIsNoOp(t *testing.T) {
	logs := captureTrace(t)
	_, acc := convPair(t, convParam(2, 3, 1, 1, true))

	bottom := randomBlob(t, 9, 1, 2, 5, 5)
	top := forward(t, acc, bottom)
	for i := range top.Diff() {
		top.Diff()[i] = 1
	}

	acc.Backward([]*tensor.Blob{top}, []bool{true}, []*tensor.Blob{bottom})

	for _, v := range bottom.Diff() {
		assert.Zero(t, v)
	}
	for _, p := range acc.Blobs() {
		for _, v := range p.Diff() {
			assert.Zero(t, v)
		}
	}
	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), "backward is not implemented")
}

func TestAccelPooling_MatchesReference(t *testing.T) {
	for _, shape := range [][]int{{1, 1, 4, 4}, {2, 3, 7, 5}, {3, 2, 1, 6}} {
		ref, err := NewPooling(poolParam(config.PoolMax, 2, 2, 0))
		require.NoError(t, err)
		acc, err := NewAccelPooling(poolParam(config.PoolMax, 2, 2, 0))
		require.NoError(t, err)

		bottom := randomBlob(t, 17, shape...)
		want := forward(t, ref, bottom)
		got := forward(t, acc, bottom)

		require.Equal(t, want.Shape(), got.Shape(), "shape %v", shape)
		assert.Equal(t, want.Data(), got.Data(), "shape %v", shape)
	}
}

func TestAccelPooling_NegativeInfinityMatchesReference(t *testing.T) {
	ref, err := NewPooling(poolParam(config.PoolMax, 2, 2, 0))
	require.NoError(t, err)
	acc, err := NewAccelPooling(poolParam(config.PoolMax, 2, 2, 0))
	require.NoError(t, err)

	bottom := tensor.MustBlob(1, 1, 2, 4)
	for i := range bottom.Data() {
		bottom.Data()[i] = float32(math.Inf(-1))
	}
	bottom.Data()[3] = 2

	want := forward(t, ref, bottom)
	got := forward(t, acc, bottom)
	assert.Equal(t, []float32{-math.MaxFloat32, 2}, want.Data())
	assert.Equal(t, want.Data(), got.Data())
}

func TestAccelPooling_BackwardAfterAcceleratedForward(t *testing.T) {
	ref, err := NewPooling(poolParam(config.PoolMax, 2, 2, 0))
	require.NoError(t, err)
	acc, err := NewAccelPooling(poolParam(config.PoolMax, 2, 2, 0))
	require.NoError(t, err)

	refBottom := randomBlob(t, 23, 2, 2, 5, 6)
	accBottom := cloneBlob(t, refBottom)
	refTop := forward(t, ref, refBottom)
	accTop := forward(t, acc, accBottom)
	for i := range refTop.Diff() {
		refTop.Diff()[i] = float32(i)
		accTop.Diff()[i] = float32(i)
	}

	ref.Backward([]*tensor.Blob{refTop}, []bool{true}, []*tensor.Blob{refBottom})
	acc.Backward([]*tensor.Blob{accTop}, []bool{true}, []*tensor.Blob{accBottom})

	assert.Equal(t, refBottom.Diff(), accBottom.Diff())
}

func TestAccelPooling_FallsBack(t *testing.T) {
	global := poolParam(config.PoolMax, 0, 0, 0)
	global.Pooling.GlobalPooling = true

	tests := []struct {
		name  string
		param config.LayerParameter
		log   string
	}{
		{"average", poolParam(config.PoolAve, 2, 2, 0), "only max pooling"},
		{"3x3 kernel", poolParam(config.PoolMax, 3, 2, 0), "only 2x2 kernels"},
		{"stride 1", poolParam(config.PoolMax, 2, 1, 0), "only stride 2"},
		{"padding", poolParam(config.PoolMax, 2, 2, 1), "does not support padding"},
		{"global", global, "global pooling"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureTrace(t)
			ref, err := NewPooling(tt.param)
			require.NoError(t, err)
			acc, err := NewAccelPooling(tt.param)
			require.NoError(t, err)

			bottom := randomBlob(t, 31, 2, 2, 6, 6)
			want := forward(t, ref, bottom)
			got := forward(t, acc, bottom)

			assert.Equal(t, want.Data(), got.Data())
			assert.Contains(t, logs.String(), tt.log)
		})
	}
}

func TestAccelPooling_MaskTopFallsBack(t *testing.T) {
	logs := captureTrace(t)
	acc, err := NewAccelPooling(poolParam(config.PoolMax, 2, 2, 0))
	require.NoError(t, err)

	bottom, err := tensor.FromSlice([]float32{1, 2, 3, 4}, 1, 1, 2, 2)
	require.NoError(t, err)
	top, mask := &tensor.Blob{}, &tensor.Blob{}
	require.NoError(t, acc.Setup([]*tensor.Blob{bottom}, []*tensor.Blob{top, mask}))
	acc.Forward([]*tensor.Blob{bottom}, []*tensor.Blob{top, mask})

	assert.Equal(t, []float32{4}, top.Data())
	assert.Equal(t, []float32{3}, mask.Data())
	assert.Contains(t, logs.String(), "does not produce a mask")
}
