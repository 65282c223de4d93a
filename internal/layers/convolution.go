package layers

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/reference"
	"github.com/born-ml/accel/internal/tensor"
)

// ConvolutionLayer is the reference 2D convolution layer.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, num_output, out_height, out_width]
//
// The layer accepts several bottoms of the same shape. Each is convolved
// with the shared parameters into the top at the same index.
//
// Parameters: weights [num_output, channels, kernel_h, kernel_w] and, when
// bias_term is set, bias [num_output].
type ConvolutionLayer struct {
	base
	conv *config.ConvolutionParameter
	geom reference.ConvGeometry
}

// NewConvolution creates a reference convolution layer.
func NewConvolution(param config.LayerParameter, opts ...Option) (*ConvolutionLayer, error) {
	return newConvolution(param, buildOptions(opts))
}

func newConvolution(param config.LayerParameter, o options) (*ConvolutionLayer, error) {
	if param.Convolution == nil {
		return nil, fmt.Errorf("layer %q: missing convolution_param", param.Name)
	}
	return &ConvolutionLayer{base: newBase(param, o), conv: param.Convolution}, nil
}

// Engine implements Layer.
func (l *ConvolutionLayer) Engine() config.Engine { return config.EngineReference }

// Setup creates and fills the weight and bias blobs, then shapes the top.
func (l *ConvolutionLayer) Setup(bottom, top []*tensor.Blob) error {
	if err := checkPairs(l.Name(), bottom, top); err != nil {
		return err
	}
	shape := bottom[0].Shape()
	if len(shape) != 4 {
		return fmt.Errorf("layer %q: expected 4D input [N,C,H,W], got %dD", l.Name(), len(shape))
	}

	kh, kw := l.conv.Kernel()
	if l.blobs == nil {
		weights, err := tensor.NewBlob(l.conv.NumOutput, shape[1], kh, kw)
		if err != nil {
			return fmt.Errorf("layer %q: weights: %w", l.Name(), err)
		}
		if err := fill(weights, l.conv.WeightFiller, l.rng); err != nil {
			return fmt.Errorf("layer %q: %w", l.Name(), err)
		}
		l.blobs = append(l.blobs, weights)

		if l.conv.HasBias() {
			bias := tensor.MustBlob(l.conv.NumOutput)
			if err := fill(bias, l.conv.BiasFiller, l.rng); err != nil {
				return fmt.Errorf("layer %q: %w", l.Name(), err)
			}
			l.blobs = append(l.blobs, bias)
		}
	} else if ws := l.blobs[0].Shape(); ws[1] != shape[1] {
		return fmt.Errorf("layer %q: input channels %d != weight channels %d", l.Name(), shape[1], ws[1])
	}

	return l.Reshape(bottom, top)
}

// Reshape recomputes the geometry from the bottom shape and resizes every top.
func (l *ConvolutionLayer) Reshape(bottom, top []*tensor.Blob) error {
	b := bottom[0]
	for i, other := range bottom[1:] {
		if !other.Shape().Equal(b.Shape()) {
			return fmt.Errorf("layer %q: bottom %d shape %v != bottom 0 shape %v",
				l.Name(), i+1, other.Shape(), b.Shape())
		}
	}
	kh, kw := l.conv.Kernel()
	sh, sw := l.conv.Strides()
	ph, pw := l.conv.Pads()
	l.geom = reference.ConvGeometry{
		Channels: b.Channels(), Height: b.Height(), Width: b.Width(),
		NumOutput: l.conv.NumOutput,
		KernelH:   kh, KernelW: kw,
		StrideH: sh, StrideW: sw,
		PadH: ph, PadW: pw,
	}
	if l.geom.OutputHeight() <= 0 || l.geom.OutputWidth() <= 0 {
		return fmt.Errorf("layer %q: kernel %dx%d does not fit input %dx%d with pad %dx%d",
			l.Name(), kh, kw, b.Height(), b.Width(), ph, pw)
	}
	shape := tensor.Shape{b.Num(), l.conv.NumOutput, l.geom.OutputHeight(), l.geom.OutputWidth()}
	for _, t := range top {
		if err := t.Reshape(shape); err != nil {
			return fmt.Errorf("layer %q: %w", l.Name(), err)
		}
	}
	return nil
}

// Forward computes the convolution of each bottom with the reference kernels.
func (l *ConvolutionLayer) Forward(bottom, top []*tensor.Blob) {
	for i := range bottom {
		l.forwardPair(bottom[i], top[i])
	}
}

func (l *ConvolutionLayer) forwardPair(bottom, top *tensor.Blob) {
	reference.ConvForward(l.geom, bottom.Num(), bottom.Data(), l.blobs[0].Data(), l.biasData(), top.Data())
}

// Backward accumulates parameter gradients over every pair and, where
// requested, computes the input gradient of each bottom.
func (l *ConvolutionLayer) Backward(top []*tensor.Blob, propagateDown []bool, bottom []*tensor.Blob) {
	for i := range top {
		num := bottom[i].Num()
		topDiff := top[i].Diff()

		reference.ConvBackwardWeights(l.geom, num, bottom[i].Data(), topDiff, l.blobs[0].Diff())
		if l.conv.HasBias() {
			reference.ConvBackwardBias(l.geom, num, topDiff, l.blobs[1].Diff())
		}
		if i < len(propagateDown) && propagateDown[i] {
			reference.ConvBackwardInput(l.geom, num, topDiff, l.blobs[0].Data(), bottom[i].Diff())
		}
	}
}

func (l *ConvolutionLayer) biasData() []float32 {
	if !l.conv.HasBias() {
		return nil
	}
	return l.blobs[1].Data()
}

func fill(b *tensor.Blob, p *config.FillerParameter, rng *rand.Rand) error {
	f, err := p.Filler()
	if err != nil {
		return err
	}
	f.Fill(b, rng)
	return nil
}
