//go:build !noaccelrelu

package layers

import (
	"github.com/born-ml/accel/internal/accel"
	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/parallel"
	"github.com/born-ml/accel/internal/tensor"
)

// AccelReLULayer runs ReLU forward and backward passes on the accelerated
// library. Every configuration is supported, including in-place tops and
// a negative slope.
type AccelReLULayer struct {
	*ReLULayer
}

// NewAccelReLU creates an accelerated ReLU layer.
// The accelerated library must be initialized before Forward is called.
func NewAccelReLU(param config.LayerParameter, opts ...Option) (*AccelReLULayer, error) {
	return &AccelReLULayer{ReLULayer: newReLU(param, buildOptions(opts))}, nil
}

func newAccelReLU(param config.LayerParameter, o options) Layer {
	return &AccelReLULayer{ReLULayer: newReLU(param, o)}
}

// Engine implements Layer.
func (l *AccelReLULayer) Engine() config.Engine { return config.EngineAccel }

// Forward implements Layer.
func (l *AccelReLULayer) Forward(bottom, top []*tensor.Blob) {
	b := bottom[0]
	status := accel.ReluOutput(b.Num(), b.Count()/b.Num(), b.Data(), top[0].Data(), l.slope, parallel.Default())
	mustSucceed("accel: relu output", status)
}

// Backward implements Layer.
func (l *AccelReLULayer) Backward(top []*tensor.Blob, propagateDown []bool, bottom []*tensor.Blob) {
	if len(propagateDown) == 0 || !propagateDown[0] {
		return
	}
	b := bottom[0]
	status := accel.ReluInput(b.Num(), b.Count()/b.Num(), top[0].Diff(), b.Data(), b.Diff(), l.slope, parallel.Default())
	mustSucceed("accel: relu input", status)
}
