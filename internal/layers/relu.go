package layers

import (
	"fmt"

	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/reference"
	"github.com/born-ml/accel/internal/tensor"
)

// ReLULayer is the reference rectified linear unit.
//
// The top may be the bottom blob itself (in-place computation). Backward
// then reads the rectified output as its input, which has the same sign
// pattern for any non-negative slope.
type ReLULayer struct {
	base
	slope float32
}

// NewReLU creates a reference ReLU layer.
func NewReLU(param config.LayerParameter, opts ...Option) (*ReLULayer, error) {
	return newReLU(param, buildOptions(opts)), nil
}

func newReLU(param config.LayerParameter, o options) *ReLULayer {
	l := &ReLULayer{base: newBase(param, o)}
	if param.ReLU != nil {
		l.slope = param.ReLU.NegativeSlope
	}
	return l
}

// Engine implements Layer.
func (l *ReLULayer) Engine() config.Engine { return config.EngineReference }

// NegativeSlope returns the slope applied to negative inputs.
func (l *ReLULayer) NegativeSlope() float32 { return l.slope }

// Setup validates the blob wiring and shapes the top.
func (l *ReLULayer) Setup(bottom, top []*tensor.Blob) error {
	if err := checkBlobs(l.Name(), bottom, top, 1); err != nil {
		return err
	}
	return l.Reshape(bottom, top)
}

// Reshape shapes the top like the bottom.
func (l *ReLULayer) Reshape(bottom, top []*tensor.Blob) error {
	if top[0] == bottom[0] {
		return nil
	}
	if err := top[0].ReshapeLike(bottom[0]); err != nil {
		return fmt.Errorf("layer %q: %w", l.Name(), err)
	}
	return nil
}

// Forward rectifies the bottom into the top.
func (l *ReLULayer) Forward(bottom, top []*tensor.Blob) {
	reference.ReLUForward(bottom[0].Data(), top[0].Data(), l.slope)
}

// Backward gates the top gradient by the sign of the bottom.
func (l *ReLULayer) Backward(top []*tensor.Blob, propagateDown []bool, bottom []*tensor.Blob) {
	if len(propagateDown) == 0 || !propagateDown[0] {
		return
	}
	reference.ReLUBackward(top[0].Diff(), bottom[0].Data(), bottom[0].Diff(), l.slope)
}
