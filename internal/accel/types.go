package accel

import "fmt"

// Size is a two-dimensional extent.
type Size struct {
	Width  int
	Height int
}

// Padding is implicit zero padding around an image.
type Padding struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// Algorithm selects the convolution algorithm.
type Algorithm int

// Convolution algorithms.
const (
	// AlgorithmAuto picks an algorithm from the kernel size.
	AlgorithmAuto Algorithm = iota
	// AlgorithmFT8x8 is the FFT-based algorithm with 8x8 tiles.
	AlgorithmFT8x8
	// AlgorithmFT16x16 is the FFT-based algorithm with 16x16 tiles.
	AlgorithmFT16x16
	// AlgorithmWT8x8 is Winograd F(6x6, 3x3) with 8x8 tiles.
	AlgorithmWT8x8
	// AlgorithmImplicitGEMM lowers the convolution to matrix multiplication.
	AlgorithmImplicitGEMM
	// AlgorithmDirect computes 1x1 convolutions directly.
	AlgorithmDirect
)

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmAuto:
		return "auto"
	case AlgorithmFT8x8:
		return "ft8x8"
	case AlgorithmFT16x16:
		return "ft16x16"
	case AlgorithmWT8x8:
		return "wt8x8"
	case AlgorithmImplicitGEMM:
		return "implicit-gemm"
	case AlgorithmDirect:
		return "direct"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// TransformStrategy controls how kernel transforms are handled across calls.
type TransformStrategy int

// Kernel transform strategies.
const (
	// TransformCompute transforms the kernel on every call.
	TransformCompute TransformStrategy = iota
	// TransformPrecompute transforms the kernel and keeps the result.
	TransformPrecompute
	// TransformReuse uses a previously precomputed transform.
	TransformReuse
)

// String implements fmt.Stringer.
func (s TransformStrategy) String() string {
	switch s {
	case TransformCompute:
		return "compute"
	case TransformPrecompute:
		return "precompute"
	case TransformReuse:
		return "reuse"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}
