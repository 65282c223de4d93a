package layers

import (
	"github.com/born-ml/accel/internal/accel"
	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/logutil"
	"github.com/born-ml/accel/internal/parallel"
	"github.com/born-ml/accel/internal/tensor"
)

// AccelPoolingLayer runs 2x2 stride-2 unpadded max pooling on the
// accelerated library and every other configuration on the reference layer.
//
// The accelerated kernel produces no argmax mask, so a layer publishing its
// mask as a second top always uses the reference path. Backward is the
// reference layer's; after an accelerated Forward it rebuilds the mask
// from the bottom data before routing gradients.
type AccelPoolingLayer struct {
	*PoolingLayer
}

// NewAccelPooling creates an accelerated pooling layer.
// The accelerated library must be initialized before Forward is called.
func NewAccelPooling(param config.LayerParameter, opts ...Option) (*AccelPoolingLayer, error) {
	return newAccelPooling(param, buildOptions(opts))
}

func newAccelPooling(param config.LayerParameter, o options) (*AccelPoolingLayer, error) {
	ref, err := newPooling(param, o)
	if err != nil {
		return nil, err
	}
	return &AccelPoolingLayer{PoolingLayer: ref}, nil
}

// Engine implements Layer.
func (l *AccelPoolingLayer) Engine() config.Engine { return config.EngineAccel }

// Forward implements Layer.
func (l *AccelPoolingLayer) Forward(bottom, top []*tensor.Blob) {
	if reason := l.unsupported(top); reason != "" {
		logutil.Trace("accelerated pooling "+reason+", using reference", "layer", l.Name())
		l.PoolingLayer.Forward(bottom, top)
		return
	}

	status := accel.MaxPoolingOutput(
		bottom[0].Num(), l.geom.Channels,
		accel.Size{Width: l.geom.Width, Height: l.geom.Height},
		accel.Padding{},
		accel.Size{Width: 2, Height: 2},
		accel.Size{Width: 2, Height: 2},
		bottom[0].Data(), top[0].Data(),
		parallel.Default(),
	)
	mustSucceed("accel: max pooling output", status)
	l.invalidateMask()
}

func (l *AccelPoolingLayer) unsupported(top []*tensor.Blob) string {
	switch {
	case l.pool.Pool != config.PoolMax:
		return "supports only max pooling"
	case l.pool.GlobalPooling:
		return "does not support global pooling"
	case l.geom.KernelH != 2 || l.geom.KernelW != 2:
		return "supports only 2x2 kernels"
	case l.geom.StrideH != 2 || l.geom.StrideW != 2:
		return "supports only stride 2"
	case l.geom.PadH != 0 || l.geom.PadW != 0:
		return "does not support padding"
	case len(top) > 1:
		return "does not produce a mask"
	}
	return ""
}
