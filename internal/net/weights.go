package net

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/born-ml/accel/internal/serialization"
	"github.com/born-ml/accel/internal/tensor"
)

// paramSuffixes names parameter blobs by position: weights first, then bias.
var paramSuffixes = []string{"weight", "bias"}

func paramName(layer string, i int) string {
	if i < len(paramSuffixes) {
		return layer + "." + paramSuffixes[i]
	}
	return layer + "." + strconv.Itoa(i)
}

// Params returns every learnable parameter keyed by "<layer>.weight" and
// "<layer>.bias".
func (n *Net) Params() map[string]*tensor.Blob {
	params := make(map[string]*tensor.Blob)
	for _, l := range n.layers {
		for i, b := range l.Blobs() {
			params[paramName(l.Name(), i)] = b
		}
	}
	return params
}

// CopyParams copies parameter data from src, which must have the same
// parameters with the same shapes.
func (n *Net) CopyParams(src *Net) error {
	return n.assign(src.Params())
}

// SaveWeights writes the parameters to a SafeTensors file.
func (n *Net) SaveWeights(path string) error {
	params := n.Params()
	if err := serialization.WriteFile(path, params, map[string]string{"net": n.name}); err != nil {
		return fmt.Errorf("save weights: %w", err)
	}
	slog.Debug("saved weights", "net", n.name, "path", path, "tensors", len(params))
	return nil
}

// LoadWeights reads the parameters from a SafeTensors file. Every
// parameter must be present with a matching shape; extra tensors are
// ignored.
func (n *Net) LoadWeights(path string) error {
	file, err := serialization.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load weights: %w", err)
	}
	if err := n.assign(file.Tensors); err != nil {
		return fmt.Errorf("load weights: %w", err)
	}
	slog.Debug("loaded weights", "net", n.name, "path", path, "tensors", len(file.Tensors))
	return nil
}

// assign copies src into the parameters only after every name and shape
// has been checked, so a failed call leaves the net untouched.
func (n *Net) assign(src map[string]*tensor.Blob) error {
	params := n.Params()
	var errs []error
	for name, dst := range params {
		b, ok := src[name]
		if !ok {
			errs = append(errs, fmt.Errorf("missing parameter %q", name))
			continue
		}
		if !b.Shape().Equal(dst.Shape()) {
			errs = append(errs, fmt.Errorf("parameter %q: shape %v != %v", name, b.Shape(), dst.Shape()))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	for name, dst := range params {
		if err := dst.CopyFrom(src[name], false, false); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	for name := range src {
		if _, ok := params[name]; !ok {
			slog.Warn("ignoring unknown parameter", "net", n.name, "name", name)
		}
	}
	return nil
}
