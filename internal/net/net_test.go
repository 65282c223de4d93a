package net

import (
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/layers"
	"github.com/born-ml/accel/internal/tensor"
)

const smallNet = `
name: small
inputs:
  - name: data
    shape: [1, 2, 12, 12]
layers:
  - name: conv1
    type: Convolution
    bottom: [data]
    top: [conv1]
    convolution_param:
      num_output: 4
      kernel_size: 3
      pad: 1
      weight_filler: {type: gaussian, std: 0.2}
      bias_filler: {type: uniform, min: -0.5, max: 0.5}
  - name: relu1
    type: ReLU
    bottom: [conv1]
    top: [conv1]
  - name: pool1
    type: Pooling
    bottom: [conv1]
    top: [pool1]
    pooling_param: {pool: max, kernel_size: 2, stride: 2}
  - name: conv2
    type: Convolution
    bottom: [pool1]
    top: [conv2]
    convolution_param:
      num_output: 3
      kernel_size: 3
      stride: 2
      weight_filler: {type: xavier}
`

func build(t *testing.T, engine string) *Net {
	t.Helper()
	t.Setenv("ACCEL_ENGINE", engine)
	param, err := config.Load(strings.NewReader(smallNet))
	require.NoError(t, err)
	n, err := New(param, layers.WithRand(rand.New(rand.NewPCG(3, 4))))
	require.NoError(t, err)
	return n
}

func fillInput(n *Net) {
	tensor.GaussianFiller{Std: 1}.Fill(n.Input(0), rand.New(rand.NewPCG(5, 6)))
}

func TestNew_Wiring(t *testing.T) {
	n := build(t, "reference")

	assert.Equal(t, "small", n.Name())
	assert.Equal(t, []string{"data", "conv1", "pool1", "conv2"}, n.BlobNames())
	assert.Equal(t, []string{"data"}, n.InputNames())
	assert.Equal(t, []string{"conv2"}, n.OutputNames())
	require.Len(t, n.Layers(), 4)

	conv1, ok := n.Blob("conv1")
	require.True(t, ok)
	assert.Equal(t, tensor.Shape{1, 4, 12, 12}, conv1.Shape())
	pool1, _ := n.Blob("pool1")
	assert.Equal(t, tensor.Shape{1, 4, 6, 6}, pool1.Shape())
	assert.Equal(t, tensor.Shape{1, 3, 2, 2}, n.Output(0).Shape())

	_, ok = n.Blob("missing")
	assert.False(t, ok)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&config.NetParameter{Name: "empty"})
	require.ErrorContains(t, err, "net has no layers")

	param, err := config.Load(strings.NewReader(smallNet))
	require.NoError(t, err)
	param.Inputs[0].Shape = []int{1, 2, 2, 2}
	_, err = New(param)
	require.ErrorContains(t, err, "conv2")
}

func TestNet_AccelMatchesReference(t *testing.T) {
	ref := build(t, "reference")
	acc := build(t, "accel")
	require.NoError(t, acc.CopyParams(ref))

	for _, l := range acc.Layers() {
		assert.Equal(t, config.EngineAccel, l.Engine(), l.Name())
	}

	fillInput(ref)
	fillInput(acc)
	ref.Forward()
	acc.Forward()

	assert.InDeltaSlice(t, ref.Output(0).Data(), acc.Output(0).Data(), 1e-4)
}

func TestNet_ReshapeBatch(t *testing.T) {
	ref := build(t, "reference")
	acc := build(t, "accel")
	require.NoError(t, acc.CopyParams(ref))

	for _, n := range []*Net{ref, acc} {
		require.NoError(t, n.Input(0).Reshape(tensor.Shape{3, 2, 12, 12}))
		require.NoError(t, n.Reshape())
		fillInput(n)
		n.Forward()
	}

	assert.Equal(t, tensor.Shape{3, 3, 2, 2}, acc.Output(0).Shape())
	assert.InDeltaSlice(t, ref.Output(0).Data(), acc.Output(0).Data(), 1e-4)
}

func TestNet_Backward(t *testing.T) {
	n := build(t, "reference")
	fillInput(n)
	n.Forward()

	for i := range n.Output(0).Diff() {
		n.Output(0).Diff()[i] = 1
	}
	n.ClearParamDiffs()
	n.Backward()

	for _, v := range n.Input(0).Diff() {
		assert.Zero(t, v, "net inputs receive no diff")
	}
	params := n.Params()
	var sum float32
	for _, v := range params["conv1.weight"].Diff() {
		sum += v * v
	}
	assert.Positive(t, sum)
	// conv2 has 2x2 outputs per channel and a unit top diff.
	for _, v := range params["conv2.bias"].Diff() {
		assert.InDelta(t, 4, v, 1e-5)
	}

	n.ClearParamDiffs()
	for _, v := range params["conv2.bias"].Diff() {
		assert.Zero(t, v)
	}
}

func TestNet_ConvolutionPairs(t *testing.T) {
	const pairNet = `
inputs:
  - {name: left, shape: [2, 2, 8, 8]}
  - {name: right, shape: [2, 2, 8, 8]}
layers:
  - name: conv
    type: Convolution
    bottom: [left, right]
    top: [conv_left, conv_right]
    convolution_param: {num_output: 3, kernel_size: 3, pad: 1, weight_filler: {type: xavier}, bias_filler: {type: constant, value: 0.1}}
`
	run := func(engine string) *Net {
		t.Setenv("ACCEL_ENGINE", engine)
		param, err := config.Load(strings.NewReader(pairNet))
		require.NoError(t, err)
		n, err := New(param, layers.WithRand(rand.New(rand.NewPCG(7, 8))))
		require.NoError(t, err)
		tensor.GaussianFiller{Std: 1}.Fill(n.Input(0), rand.New(rand.NewPCG(1, 2)))
		tensor.GaussianFiller{Std: 1}.Fill(n.Input(1), rand.New(rand.NewPCG(3, 4)))
		n.Forward()
		return n
	}
	ref, acc := run("reference"), run("accel")

	assert.Equal(t, []string{"conv_left", "conv_right"}, ref.OutputNames())
	assert.Len(t, ref.Params(), 2)
	for i := range 2 {
		assert.Equal(t, tensor.Shape{2, 3, 8, 8}, acc.Output(i).Shape())
		assert.InDeltaSlice(t, ref.Output(i).Data(), acc.Output(i).Data(), 1e-4)
	}
	assert.NotEqual(t, ref.Output(0).Data(), ref.Output(1).Data())
}

func TestNet_Timed(t *testing.T) {
	n := build(t, "accel")
	fillInput(n)

	forward := n.ForwardTimed()
	require.Len(t, forward, 4)
	assert.Equal(t, "conv1", forward[0].Layer)
	assert.Equal(t, config.TypeConvolution, forward[0].Type)
	assert.Equal(t, config.EngineAccel, forward[0].Engine)

	backward := n.BackwardTimed()
	require.Len(t, backward, 4)
	assert.Equal(t, "conv2", backward[3].Layer)
}

func TestNet_Weights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.safetensors")

	src := build(t, "reference")
	require.NoError(t, src.SaveWeights(path))

	params := src.Params()
	assert.Len(t, params, 4)
	assert.Contains(t, params, "conv1.weight")
	assert.Contains(t, params, "conv2.bias")

	dst, err := New(mustLoad(t), layers.WithRand(rand.New(rand.NewPCG(99, 99))))
	require.NoError(t, err)
	require.NoError(t, dst.LoadWeights(path))

	for name, p := range dst.Params() {
		assert.Equal(t, params[name].Data(), p.Data(), name)
	}
}

func TestNet_LoadWeightsMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.safetensors")

	src := build(t, "reference")
	require.NoError(t, src.Params()["conv1.weight"].Reshape(tensor.Shape{4, 2, 3, 1}))
	require.NoError(t, src.SaveWeights(path))

	dst, err := New(mustLoad(t), layers.WithRand(rand.New(rand.NewPCG(99, 99))))
	require.NoError(t, err)
	before := make(map[string][]float32)
	for name, p := range dst.Params() {
		before[name] = append([]float32(nil), p.Data()...)
	}

	err = dst.LoadWeights(path)
	require.ErrorContains(t, err, `parameter "conv1.weight"`)
	// Valid tensors in the same file are not applied either.
	for name, p := range dst.Params() {
		assert.Equal(t, before[name], p.Data(), name)
	}
	assert.NotEqual(t, src.Params()["conv2.weight"].Data(), dst.Params()["conv2.weight"].Data())

	err = dst.LoadWeights(filepath.Join(t.TempDir(), "none"))
	require.ErrorContains(t, err, "load weights")
}

func mustLoad(t *testing.T) *config.NetParameter {
	t.Helper()
	param, err := config.Load(strings.NewReader(smallNet))
	require.NoError(t, err)
	return param
}
