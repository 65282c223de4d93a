// Package layers implements the framework's layer types and the shims that
// route them to the accelerated kernel library.
//
// Each layer type exists twice: a reference layer backed by package
// reference, and an accelerated shim embedding it. A shim checks on every
// Forward whether the layer's configuration is one the accelerated library
// supports. If it is, the shim calls the library; if not, it runs the
// embedded reference layer. Fallbacks are logged at trace level and are
// never reported to the caller. A library call that does not succeed is a
// broken invariant and panics.
package layers

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/accel/internal/accel"
	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/tensor"
)

// Layer is a unit of computation over ordered collections of blobs.
//
// Setup is called once with the blobs the layer is wired to; it creates
// parameters and shapes the tops. Reshape adapts the tops to new bottom
// shapes. Forward reads bottom data and writes top data; Backward reads
// top diffs and writes bottom diffs (where propagateDown is set) and
// accumulates parameter diffs.
type Layer interface {
	Name() string
	Type() string
	Engine() config.Engine
	Setup(bottom, top []*tensor.Blob) error
	Reshape(bottom, top []*tensor.Blob) error
	Forward(bottom, top []*tensor.Blob)
	Backward(top []*tensor.Blob, propagateDown []bool, bottom []*tensor.Blob)
	// Blobs returns the learnable parameters, in a stable order.
	Blobs() []*tensor.Blob
}

// base carries what every layer shares.
type base struct {
	param config.LayerParameter
	blobs []*tensor.Blob
	rng   *rand.Rand
}

func newBase(param config.LayerParameter, o options) base {
	return base{param: param, rng: o.rng}
}

// Name returns the layer name.
func (b *base) Name() string { return b.param.Name }

// Type returns the layer type.
func (b *base) Type() string { return b.param.Type }

// Blobs returns the learnable parameters.
func (b *base) Blobs() []*tensor.Blob { return b.blobs }

// checkBlobs validates blob counts against a layer's expectations.
func checkBlobs(name string, bottom, top []*tensor.Blob, maxTop int) error {
	if len(bottom) != 1 {
		return fmt.Errorf("layer %q: expected 1 bottom blob, got %d", name, len(bottom))
	}
	if len(top) < 1 || len(top) > maxTop {
		return fmt.Errorf("layer %q: expected 1 to %d top blobs, got %d", name, maxTop, len(top))
	}
	return nil
}

// checkPairs validates a layer that maps each bottom to the top at the same
// index.
func checkPairs(name string, bottom, top []*tensor.Blob) error {
	if len(bottom) < 1 {
		return fmt.Errorf("layer %q: expected at least 1 bottom blob, got 0", name)
	}
	if len(top) != len(bottom) {
		return fmt.Errorf("layer %q: expected %d top blobs to match bottoms, got %d", name, len(bottom), len(top))
	}
	return nil
}

// mustSucceed enforces that an accelerated library call succeeded.
func mustSucceed(op string, status accel.Status) {
	if status != accel.StatusSuccess {
		panic(fmt.Sprintf("%s: %v", op, status))
	}
}

// Option configures layer construction.
type Option func(*options)

type options struct {
	rng *rand.Rand
}

// WithRand sets the random source used by parameter fillers.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}
