package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Engine selects the implementation behind a layer.
type Engine int

// Engines.
const (
	// EngineDefault defers to the process-wide default (ACCEL_ENGINE).
	EngineDefault Engine = iota
	// EngineReference always uses the framework's reference kernels.
	EngineReference
	// EngineAccel uses the accelerated shim, which itself falls back to the
	// reference kernels for unsupported configurations.
	EngineAccel
)

var engineNames = map[Engine]string{
	EngineDefault:   "default",
	EngineReference: "reference",
	EngineAccel:     "accel",
}

// Algorithm is the convolution algorithm requested for the accelerated engine.
type Algorithm int

// Convolution algorithms.
const (
	AlgorithmAuto Algorithm = iota
	AlgorithmWinograd
	AlgorithmFFT8x8
	AlgorithmFFT16x16
	AlgorithmImplicitGEMM
	AlgorithmDirect
)

var algorithmNames = map[Algorithm]string{
	AlgorithmAuto:         "auto",
	AlgorithmWinograd:     "winograd",
	AlgorithmFFT8x8:       "fft_8x8",
	AlgorithmFFT16x16:     "fft_16x16",
	AlgorithmImplicitGEMM: "implicit_gemm",
	AlgorithmDirect:       "direct",
}

// KernelTransform is the kernel transform strategy for the accelerated engine.
type KernelTransform int

// Kernel transform strategies.
const (
	KernelTransformRecompute KernelTransform = iota
	KernelTransformReuse
	KernelTransformPrecompute
)

var kernelTransformNames = map[KernelTransform]string{
	KernelTransformRecompute:  "recompute",
	KernelTransformReuse:      "reuse",
	KernelTransformPrecompute: "precompute",
}

// PoolMethod is the pooling reduction.
type PoolMethod int

// Pooling methods.
const (
	PoolMax PoolMethod = iota
	PoolAve
)

var poolMethodNames = map[PoolMethod]string{
	PoolMax: "max",
	PoolAve: "ave",
}

func (e Engine) String() string          { return enumString(engineNames, e) }
func (a Algorithm) String() string       { return enumString(algorithmNames, a) }
func (k KernelTransform) String() string { return enumString(kernelTransformNames, k) }
func (p PoolMethod) String() string      { return enumString(poolMethodNames, p) }

// ParseEngine parses an engine name; the empty string is EngineDefault.
func ParseEngine(s string) (Engine, error) {
	if strings.TrimSpace(s) == "" {
		return EngineDefault, nil
	}
	return parseEnum(engineNames, "engine", s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Engine) UnmarshalYAML(node *yaml.Node) error {
	return unmarshalEnum(node, engineNames, "engine", e)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Algorithm) UnmarshalYAML(node *yaml.Node) error {
	return unmarshalEnum(node, algorithmNames, "algorithm", a)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *KernelTransform) UnmarshalYAML(node *yaml.Node) error {
	return unmarshalEnum(node, kernelTransformNames, "kernel transform", k)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *PoolMethod) UnmarshalYAML(node *yaml.Node) error {
	return unmarshalEnum(node, poolMethodNames, "pool method", p)
}

// MarshalYAML implements yaml.Marshaler.
func (e Engine) MarshalYAML() (any, error) { return e.String(), nil }

// MarshalYAML implements yaml.Marshaler.
func (a Algorithm) MarshalYAML() (any, error) { return a.String(), nil }

// MarshalYAML implements yaml.Marshaler.
func (k KernelTransform) MarshalYAML() (any, error) { return k.String(), nil }

// MarshalYAML implements yaml.Marshaler.
func (p PoolMethod) MarshalYAML() (any, error) { return p.String(), nil }

func enumString[T ~int](names map[T]string, v T) string {
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("%d", int(v))
}

func parseEnum[T ~int](names map[T]string, kind, s string) (T, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for v, name := range names {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, s)
}

func unmarshalEnum[T ~int](node *yaml.Node, names map[T]string, kind string, dst *T) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: %s must be a string: %w", node.Line, kind, err)
	}
	v, err := parseEnum(names, kind, s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*dst = v
	return nil
}
