// Package net wires layers into a sequential net and runs them.
package net

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/layers"
	"github.com/born-ml/accel/internal/tensor"
)

// Net is a sequence of layers connected through named blobs.
//
// A layer whose top names its own bottom computes in place and shares the
// blob. Net is not safe for concurrent use.
type Net struct {
	name   string
	layers []layers.Layer
	bottom [][]*tensor.Blob
	top    [][]*tensor.Blob
	// propagate[i][j] reports whether layer i should compute the diff of
	// its j-th bottom; net inputs never receive a diff.
	propagate [][]bool

	blobs     map[string]*tensor.Blob
	blobNames []string
	inputs    []string
	outputs   []string
}

// New builds and sets up the net described by param.
func New(param *config.NetParameter, opts ...layers.Option) (*Net, error) {
	if err := param.Validate(); err != nil {
		return nil, err
	}

	n := &Net{name: param.Name, blobs: make(map[string]*tensor.Blob)}
	isInput := make(map[string]bool)
	for _, in := range param.Inputs {
		b, err := tensor.NewBlob(in.Shape...)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		n.addBlob(in.Name, b)
		n.inputs = append(n.inputs, in.Name)
		isInput[in.Name] = true
	}

	lastRead, lastWrite := make(map[string]int), make(map[string]int)
	for i, lp := range param.Layers {
		l, err := layers.New(lp, opts...)
		if err != nil {
			return nil, err
		}

		bottom := make([]*tensor.Blob, len(lp.Bottom))
		propagate := make([]bool, len(lp.Bottom))
		for j, name := range lp.Bottom {
			bottom[j] = n.blobs[name]
			propagate[j] = !isInput[name]
			lastRead[name] = i
		}
		top := make([]*tensor.Blob, len(lp.Top))
		for j, name := range lp.Top {
			lastWrite[name] = i
			if b, ok := n.blobs[name]; ok {
				top[j] = b
				continue
			}
			top[j] = &tensor.Blob{}
			n.addBlob(name, top[j])
		}

		if err := l.Setup(bottom, top); err != nil {
			return nil, err
		}
		slog.Debug("set up layer", "net", n.name, "layer", l.Name(), "type", l.Type(),
			"engine", l.Engine(), "top", top[0].Shape())

		n.layers = append(n.layers, l)
		n.bottom = append(n.bottom, bottom)
		n.top = append(n.top, top)
		n.propagate = append(n.propagate, propagate)
	}

	// Outputs are the blobs no layer reads after their final write.
	for _, name := range n.blobNames {
		if w, ok := lastWrite[name]; ok {
			if r, read := lastRead[name]; !read || r <= w {
				n.outputs = append(n.outputs, name)
			}
		}
	}

	return n, nil
}

func (n *Net) addBlob(name string, b *tensor.Blob) {
	n.blobs[name] = b
	n.blobNames = append(n.blobNames, name)
}

// Name returns the net name.
func (n *Net) Name() string { return n.name }

// Layers returns the layers in execution order.
func (n *Net) Layers() []layers.Layer { return n.layers }

// Blob returns the blob with the given name.
func (n *Net) Blob(name string) (*tensor.Blob, bool) {
	b, ok := n.blobs[name]
	return b, ok
}

// BlobNames returns every blob name in creation order.
func (n *Net) BlobNames() []string { return n.blobNames }

// InputNames returns the names of the net inputs.
func (n *Net) InputNames() []string { return n.inputs }

// OutputNames returns the names of the blobs no layer consumes.
func (n *Net) OutputNames() []string { return n.outputs }

// Input returns the i-th input blob.
func (n *Net) Input(i int) *tensor.Blob { return n.blobs[n.inputs[i]] }

// Output returns the i-th output blob.
func (n *Net) Output(i int) *tensor.Blob { return n.blobs[n.outputs[i]] }

// Reshape propagates changed input shapes through every layer.
func (n *Net) Reshape() error {
	for i, l := range n.layers {
		if err := l.Reshape(n.bottom[i], n.top[i]); err != nil {
			return err
		}
	}
	return nil
}

// Forward runs every layer's forward pass in order.
func (n *Net) Forward() {
	for i, l := range n.layers {
		l.Forward(n.bottom[i], n.top[i])
	}
}

// Backward runs every layer's backward pass in reverse order. The caller
// seeds the output diffs beforehand.
func (n *Net) Backward() {
	for i := len(n.layers) - 1; i >= 0; i-- {
		n.layers[i].Backward(n.top[i], n.propagate[i], n.bottom[i])
	}
}

// ClearParamDiffs zeroes the diffs of every learnable parameter.
func (n *Net) ClearParamDiffs() {
	for _, l := range n.layers {
		for _, p := range l.Blobs() {
			p.ZeroDiff()
		}
	}
}

// Timing is the wall time of one layer pass.
type Timing struct {
	Layer    string
	Type     string
	Engine   config.Engine
	Duration time.Duration
}

// ForwardTimed runs Forward and reports the time spent in each layer.
func (n *Net) ForwardTimed() []Timing {
	timings := make([]Timing, len(n.layers))
	for i, l := range n.layers {
		start := time.Now()
		l.Forward(n.bottom[i], n.top[i])
		timings[i] = Timing{Layer: l.Name(), Type: l.Type(), Engine: l.Engine(), Duration: time.Since(start)}
	}
	return timings
}

// BackwardTimed runs Backward and reports the time spent in each layer,
// in forward order.
func (n *Net) BackwardTimed() []Timing {
	timings := make([]Timing, len(n.layers))
	for i := len(n.layers) - 1; i >= 0; i-- {
		l := n.layers[i]
		start := time.Now()
		l.Backward(n.top[i], n.propagate[i], n.bottom[i])
		timings[i] = Timing{Layer: l.Name(), Type: l.Type(), Engine: l.Engine(), Duration: time.Since(start)}
	}
	return timings
}
