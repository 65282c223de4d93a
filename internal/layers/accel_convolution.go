package layers

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/accel/internal/accel"
	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/logutil"
	"github.com/born-ml/accel/internal/parallel"
	"github.com/born-ml/accel/internal/tensor"
)

// AccelConvolutionLayer runs convolution forward passes on the accelerated
// library when the layer has a bias term and unit stride, and on the
// reference layer otherwise.
//
// Each bottom is convolved into the top at the same index. A batch of one
// image uses the inference kernel, which honors the configured algorithm
// and kernel transform strategy. Larger batches use the batched output
// kernel with the configured algorithm.
//
// Backward is not implemented: it logs an error and leaves every gradient
// untouched.
type AccelConvolutionLayer struct {
	*ConvolutionLayer
}

// NewAccelConvolution creates an accelerated convolution layer.
// The accelerated library must be initialized before Forward is called.
func NewAccelConvolution(param config.LayerParameter, opts ...Option) (*AccelConvolutionLayer, error) {
	return newAccelConvolution(param, buildOptions(opts))
}

func newAccelConvolution(param config.LayerParameter, o options) (*AccelConvolutionLayer, error) {
	ref, err := newConvolution(param, o)
	if err != nil {
		return nil, err
	}
	return &AccelConvolutionLayer{ConvolutionLayer: ref}, nil
}

// Engine implements Layer.
func (l *AccelConvolutionLayer) Engine() config.Engine { return config.EngineAccel }

// Forward implements Layer.
func (l *AccelConvolutionLayer) Forward(bottom, top []*tensor.Blob) {
	if !l.conv.HasBias() {
		logutil.Trace("accelerated convolution needs a bias term, using reference", "layer", l.Name())
		l.ConvolutionLayer.Forward(bottom, top)
		return
	}
	if l.geom.StrideH != 1 || l.geom.StrideW != 1 {
		logutil.Trace("accelerated convolution needs unit stride, using reference",
			"layer", l.Name(), "stride_h", l.geom.StrideH, "stride_w", l.geom.StrideW)
		l.ConvolutionLayer.Forward(bottom, top)
		return
	}

	for i := range bottom {
		l.forwardAccel(bottom[i], top[i])
	}
}

func (l *AccelConvolutionLayer) forwardAccel(bottom, top *tensor.Blob) {
	algorithm := accelAlgorithm(l.conv.Algorithm)
	inputSize := accel.Size{Width: l.geom.Width, Height: l.geom.Height}
	padding := accel.Padding{Top: l.geom.PadH, Right: l.geom.PadW, Bottom: l.geom.PadH, Left: l.geom.PadW}
	kernelSize := accel.Size{Width: l.geom.KernelW, Height: l.geom.KernelH}
	weights, bias := l.blobs[0].Data(), l.blobs[1].Data()
	pool := parallel.Default()

	if num := bottom.Num(); num == 1 {
		status := accel.ConvolutionInference(
			algorithm, accelTransform(l.conv.KernelTransform),
			l.geom.Channels, l.geom.NumOutput,
			inputSize, padding, kernelSize, accel.Size{Width: 1, Height: 1},
			bottom.Data(), weights, bias, top.Data(),
			pool,
		)
		mustSucceed("accel: convolution inference", status)
	} else {
		status := accel.ConvolutionOutput(
			algorithm, num,
			l.geom.Channels, l.geom.NumOutput,
			inputSize, padding, kernelSize,
			bottom.Data(), weights, bias, top.Data(),
			pool,
		)
		mustSucceed("accel: convolution output", status)
	}
}

// Backward implements Layer. It only reports that the accelerated
// convolution has no backward pass.
func (l *AccelConvolutionLayer) Backward(_ []*tensor.Blob, _ []bool, _ []*tensor.Blob) {
	slog.Error("accelerated convolution backward is not implemented", "layer", l.Name())
}

func accelAlgorithm(a config.Algorithm) accel.Algorithm {
	switch a {
	case config.AlgorithmAuto:
		return accel.AlgorithmAuto
	case config.AlgorithmWinograd:
		return accel.AlgorithmWT8x8
	case config.AlgorithmFFT8x8:
		return accel.AlgorithmFT8x8
	case config.AlgorithmFFT16x16:
		return accel.AlgorithmFT16x16
	case config.AlgorithmImplicitGEMM:
		return accel.AlgorithmImplicitGEMM
	case config.AlgorithmDirect:
		return accel.AlgorithmDirect
	}
	panic(fmt.Sprintf("unknown convolution algorithm %d", int(a)))
}

func accelTransform(t config.KernelTransform) accel.TransformStrategy {
	switch t {
	case config.KernelTransformRecompute:
		return accel.TransformCompute
	case config.KernelTransformReuse:
		return accel.TransformReuse
	case config.KernelTransformPrecompute:
		return accel.TransformPrecompute
	}
	panic(fmt.Sprintf("unknown kernel transform strategy %d", int(t)))
}
