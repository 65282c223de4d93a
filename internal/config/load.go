package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load decodes a net definition from r and validates it.
func Load(r io.Reader) (*NetParameter, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var net NetParameter
	if err := dec.Decode(&net); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty net definition")
		}
		return nil, fmt.Errorf("decode net definition: %w", err)
	}
	if err := net.Validate(); err != nil {
		return nil, err
	}
	return &net, nil
}

// LoadFile reads a net definition from path.
func LoadFile(path string) (*NetParameter, error) {
	//nolint:gosec // G304: net definitions are user-provided paths
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read net definition: %w", err)
	}
	net, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return net, nil
}

// Validate checks the net definition, reporting every problem found.
func (n *NetParameter) Validate() error {
	var errs []error
	if len(n.Layers) == 0 {
		errs = append(errs, errors.New("net has no layers"))
	}

	blobs := make(map[string]bool)
	for i, in := range n.Inputs {
		if in.Name == "" {
			errs = append(errs, fmt.Errorf("input %d: missing name", i))
			continue
		}
		if blobs[in.Name] {
			errs = append(errs, fmt.Errorf("input %q: declared twice", in.Name))
		}
		blobs[in.Name] = true
		for _, d := range in.Shape {
			if d <= 0 {
				errs = append(errs, fmt.Errorf("input %q: invalid shape %v", in.Name, in.Shape))
				break
			}
		}
	}

	names := make(map[string]bool)
	for i := range n.Layers {
		l := &n.Layers[i]
		if err := l.Validate(); err != nil {
			errs = append(errs, err)
		}
		if names[l.Name] {
			errs = append(errs, fmt.Errorf("layer %q: duplicate name", l.Name))
		}
		names[l.Name] = true

		for _, b := range l.Bottom {
			if !blobs[b] {
				errs = append(errs, fmt.Errorf("layer %q: unknown bottom blob %q", l.Name, b))
			}
		}
		for _, t := range l.Top {
			blobs[t] = true
		}
	}
	return errors.Join(errs...)
}

// Validate checks a single layer's parameters.
func (l *LayerParameter) Validate() error {
	var errs []error
	if l.Name == "" {
		errs = append(errs, errors.New("missing name"))
	}

	switch l.Type {
	case TypeConvolution:
		p := l.Convolution
		if p == nil {
			errs = append(errs, errors.New("missing convolution_param"))
			break
		}
		kh, kw := p.Kernel()
		sh, sw := p.Strides()
		ph, pw := p.Pads()
		if p.NumOutput <= 0 {
			errs = append(errs, fmt.Errorf("num_output must be positive, got %d", p.NumOutput))
		}
		if kh <= 0 || kw <= 0 {
			errs = append(errs, fmt.Errorf("kernel size must be positive, got %dx%d", kh, kw))
		}
		if sh <= 0 || sw <= 0 {
			errs = append(errs, fmt.Errorf("stride must be positive, got %dx%d", sh, sw))
		}
		if ph < 0 || pw < 0 {
			errs = append(errs, fmt.Errorf("pad must not be negative, got %dx%d", ph, pw))
		}
		for _, f := range []*FillerParameter{p.WeightFiller, p.BiasFiller} {
			if _, err := f.Filler(); err != nil {
				errs = append(errs, err)
			}
		}
	case TypePooling:
		p := l.Pooling
		if p == nil {
			errs = append(errs, errors.New("missing pooling_param"))
			break
		}
		kh, kw := p.Kernel()
		sh, sw := p.Strides()
		ph, pw := p.Pads()
		if !p.GlobalPooling && (kh <= 0 || kw <= 0) {
			errs = append(errs, fmt.Errorf("kernel size must be positive, got %dx%d", kh, kw))
		}
		if p.GlobalPooling && (ph != 0 || pw != 0 || sh != 1 || sw != 1) {
			errs = append(errs, errors.New("global pooling requires pad 0 and stride 1"))
		}
		if sh <= 0 || sw <= 0 {
			errs = append(errs, fmt.Errorf("stride must be positive, got %dx%d", sh, sw))
		}
		if ph < 0 || pw < 0 {
			errs = append(errs, fmt.Errorf("pad must not be negative, got %dx%d", ph, pw))
		}
		if !p.GlobalPooling && (ph >= kh || pw >= kw) && kh > 0 && kw > 0 {
			errs = append(errs, fmt.Errorf("pad %dx%d must be smaller than kernel %dx%d", ph, pw, kh, kw))
		}
	case TypeReLU:
	default:
		// Unknown types are reported by the layer factory, which owns the registry.
	}

	switch {
	case l.Type == TypeConvolution:
		// Convolution applies shared weights to each bottom/top pair.
		if len(l.Bottom) < 1 {
			errs = append(errs, errors.New("expected at least 1 bottom blob, got 0"))
		}
		if len(l.Top) != len(l.Bottom) {
			errs = append(errs, fmt.Errorf("expected %d top blobs to match bottoms, got %d", len(l.Bottom), len(l.Top)))
		}
	default:
		if len(l.Bottom) != 1 {
			errs = append(errs, fmt.Errorf("expected exactly 1 bottom blob, got %d", len(l.Bottom)))
		}
		if len(l.Top) < 1 || len(l.Top) > l.maxTops() {
			errs = append(errs, fmt.Errorf("expected 1 to %d top blobs, got %d", l.maxTops(), len(l.Top)))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("layer %q (%s): %w", l.Name, l.Type, err)
	}
	return nil
}

// maxTops is 2 for max pooling, which can expose its argmax mask.
func (l *LayerParameter) maxTops() int {
	if l.Type == TypePooling && l.Pooling != nil && l.Pooling.Pool == PoolMax {
		return 2
	}
	return 1
}
