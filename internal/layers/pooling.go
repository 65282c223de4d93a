package layers

import (
	"fmt"

	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/reference"
	"github.com/born-ml/accel/internal/tensor"
)

// PoolingLayer is the reference spatial pooling layer.
//
// Max pooling records the argmax of every window in a mask, which Backward
// uses to route gradients. When a second top blob is wired, the mask is
// also published there (as float32 indices within each plane).
type PoolingLayer struct {
	base
	pool *config.PoolingParameter
	geom reference.PoolGeometry

	mask []int
	// maskValid is false when the last Forward did not produce mask, for
	// instance because an accelerated kernel computed the top instead.
	maskValid bool
}

// NewPooling creates a reference pooling layer.
func NewPooling(param config.LayerParameter, opts ...Option) (*PoolingLayer, error) {
	return newPooling(param, buildOptions(opts))
}

func newPooling(param config.LayerParameter, o options) (*PoolingLayer, error) {
	if param.Pooling == nil {
		return nil, fmt.Errorf("layer %q: missing pooling_param", param.Name)
	}
	return &PoolingLayer{base: newBase(param, o), pool: param.Pooling}, nil
}

// Engine implements Layer.
func (l *PoolingLayer) Engine() config.Engine { return config.EngineReference }

// Setup validates the blob wiring and shapes the tops.
func (l *PoolingLayer) Setup(bottom, top []*tensor.Blob) error {
	maxTop := 1
	if l.pool.Pool == config.PoolMax {
		maxTop = 2
	}
	if err := checkBlobs(l.Name(), bottom, top, maxTop); err != nil {
		return err
	}
	if n := len(bottom[0].Shape()); n != 4 {
		return fmt.Errorf("layer %q: expected 4D input [N,C,H,W], got %dD", l.Name(), n)
	}
	return l.Reshape(bottom, top)
}

// Reshape recomputes the pooled size from the bottom shape.
func (l *PoolingLayer) Reshape(bottom, top []*tensor.Blob) error {
	b := bottom[0]
	kh, kw := l.pool.Kernel()
	sh, sw := l.pool.Strides()
	ph, pw := l.pool.Pads()
	if l.pool.GlobalPooling {
		kh, kw = b.Height(), b.Width()
		sh, sw, ph, pw = 1, 1, 0, 0
	}
	l.geom = reference.PoolGeometry{
		Channels: b.Channels(), Height: b.Height(), Width: b.Width(),
		KernelH: kh, KernelW: kw,
		StrideH: sh, StrideW: sw,
		PadH: ph, PadW: pw,
	}
	if l.geom.PooledHeight() <= 0 || l.geom.PooledWidth() <= 0 {
		return fmt.Errorf("layer %q: pooling window %dx%d does not fit input %dx%d",
			l.Name(), kh, kw, b.Height(), b.Width())
	}

	shape := tensor.Shape{b.Num(), b.Channels(), l.geom.PooledHeight(), l.geom.PooledWidth()}
	for _, t := range top {
		if err := t.Reshape(shape); err != nil {
			return fmt.Errorf("layer %q: %w", l.Name(), err)
		}
	}
	if l.pool.Pool == config.PoolMax {
		l.mask = resizeInts(l.mask, shape.NumElements())
	}
	l.maskValid = false
	return nil
}

// Forward pools the bottom into the top.
func (l *PoolingLayer) Forward(bottom, top []*tensor.Blob) {
	num := bottom[0].Num()
	switch l.pool.Pool {
	case config.PoolMax:
		reference.MaxPoolForward(l.geom, num, bottom[0].Data(), top[0].Data(), l.mask)
		l.maskValid = true
		if len(top) > 1 {
			out := top[1].Data()
			for i, idx := range l.mask {
				out[i] = float32(idx)
			}
		}
	case config.PoolAve:
		reference.AvePoolForward(l.geom, num, bottom[0].Data(), top[0].Data())
	default:
		panic(fmt.Sprintf("layer %q: unknown pooling method %v", l.Name(), l.pool.Pool))
	}
}

// Backward routes the top gradient to the bottom.
//
// If the mask is stale, max pooling recomputes it from the bottom data
// before routing gradients.
func (l *PoolingLayer) Backward(top []*tensor.Blob, propagateDown []bool, bottom []*tensor.Blob) {
	if len(propagateDown) == 0 || !propagateDown[0] {
		return
	}
	num := bottom[0].Num()
	switch l.pool.Pool {
	case config.PoolMax:
		if !l.maskValid {
			scratch := make([]float32, top[0].Count())
			reference.MaxPoolForward(l.geom, num, bottom[0].Data(), scratch, l.mask)
			l.maskValid = true
		}
		reference.MaxPoolBackward(l.geom, num, top[0].Diff(), l.mask, bottom[0].Diff())
	case config.PoolAve:
		reference.AvePoolBackward(l.geom, num, top[0].Diff(), bottom[0].Diff())
	default:
		panic(fmt.Sprintf("layer %q: unknown pooling method %v", l.Name(), l.pool.Pool))
	}
}

func (l *PoolingLayer) invalidateMask() {
	l.maskValid = false
}

func resizeInts(s []int, n int) []int {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]int, n)
}
