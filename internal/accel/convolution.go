package accel

import (
	"github.com/born-ml/accel/internal/parallel"
)

// ConvolutionInference computes the convolution of a single image.
//
// Buffers are flat and dense:
//   - input:  [inputChannels][inputSize.Height][inputSize.Width]
//   - kernel: [outputChannels][inputChannels][kernelSize.Height][kernelSize.Width]
//   - bias:   [outputChannels]
//   - output: [outputChannels][outH][outW], where
//     outH = (pad.Top + H + pad.Bottom - kH) / subsampling.Height + 1
//
// The transform strategy only affects which algorithms are accepted;
// the library keeps no state between calls.
func ConvolutionInference(
	algorithm Algorithm,
	strategy TransformStrategy,
	inputChannels, outputChannels int,
	inputSize Size,
	inputPadding Padding,
	kernelSize Size,
	outputSubsampling Size,
	input, kernel, bias, output []float32,
	pool *parallel.Pool,
) Status {
	if !initialized.Load() {
		return StatusUninitialized
	}
	if status := validateConvolution(inputChannels, outputChannels, inputSize, inputPadding, kernelSize, outputSubsampling); status != StatusSuccess {
		return status
	}
	if strategy < TransformCompute || strategy > TransformReuse {
		return StatusInvalidTransformStrategy
	}

	alg, status := resolveAlgorithm(algorithm, kernelSize, outputSubsampling, strategy == TransformCompute)
	if status != StatusSuccess {
		return status
	}
	// An explicitly requested algorithm without a kernel transform cannot
	// honor precompute or reuse. Under AlgorithmAuto the strategy only
	// steers the choice.
	if algorithm != AlgorithmAuto && strategy != TransformCompute &&
		(alg == AlgorithmImplicitGEMM || alg == AlgorithmDirect) {
		return StatusUnsupportedTransformStrategy
	}

	g := newConvGeometry(inputChannels, outputChannels, inputSize, inputPadding, kernelSize, outputSubsampling)
	if status := checkBuffers(&g, 1, input, kernel, bias, output); status != StatusSuccess {
		return status
	}

	g.convolveImage(input, kernel, bias, output, pool)
	return StatusSuccess
}

// ConvolutionOutput computes the forward convolution of a batch with unit
// stride. Buffer layouts match ConvolutionInference with a leading batch
// dimension on input and output.
func ConvolutionOutput(
	algorithm Algorithm,
	batchSize int,
	inputChannels, outputChannels int,
	inputSize Size,
	inputPadding Padding,
	kernelSize Size,
	input, kernel, bias, output []float32,
	pool *parallel.Pool,
) Status {
	if !initialized.Load() {
		return StatusUninitialized
	}
	if batchSize <= 0 {
		return StatusInvalidBatchSize
	}
	unit := Size{Width: 1, Height: 1}
	if status := validateConvolution(inputChannels, outputChannels, inputSize, inputPadding, kernelSize, unit); status != StatusSuccess {
		return status
	}
	alg, status := resolveAlgorithm(algorithm, kernelSize, unit, false)
	if status != StatusSuccess {
		return status
	}
	if alg == AlgorithmDirect {
		// Direct only exists for single-image inference.
		return StatusUnsupportedAlgorithm
	}

	g := newConvGeometry(inputChannels, outputChannels, inputSize, inputPadding, kernelSize, unit)
	if status := checkBuffers(&g, batchSize, input, kernel, bias, output); status != StatusSuccess {
		return status
	}

	g.convolveBatch(batchSize, input, kernel, bias, output, pool)
	return StatusSuccess
}

func validateConvolution(inCh, outCh int, in Size, pad Padding, kernel, subsampling Size) Status {
	switch {
	case inCh <= 0:
		return StatusInvalidInputChannels
	case outCh <= 0:
		return StatusInvalidOutputChannels
	case in.Width <= 0 || in.Height <= 0:
		return StatusInvalidInputSize
	case kernel.Width <= 0 || kernel.Height <= 0:
		return StatusInvalidKernelSize
	case pad.Top < 0 || pad.Bottom < 0 || pad.Left < 0 || pad.Right < 0:
		return StatusInvalidInputPadding
	case pad.Top >= kernel.Height || pad.Bottom >= kernel.Height ||
		pad.Left >= kernel.Width || pad.Right >= kernel.Width:
		return StatusInvalidInputPadding
	case subsampling.Width <= 0 || subsampling.Height <= 0:
		return StatusInvalidOutputSubsampling
	case pad.Top+in.Height+pad.Bottom < kernel.Height ||
		pad.Left+in.Width+pad.Right < kernel.Width:
		return StatusInvalidInputSize
	}
	return StatusSuccess
}

// resolveAlgorithm checks algorithm constraints and replaces
// AlgorithmAuto with a concrete choice. Auto picks AlgorithmDirect for 1x1
// kernels only when allowDirect is set, so it never resolves to an
// algorithm the calling entry point rejects.
func resolveAlgorithm(algorithm Algorithm, kernel, subsampling Size, allowDirect bool) (Algorithm, Status) {
	unitStride := subsampling.Width == 1 && subsampling.Height == 1
	maxKernel := max(kernel.Width, kernel.Height)

	switch algorithm {
	case AlgorithmAuto:
		switch {
		case kernel.Width == 1 && kernel.Height == 1 && allowDirect:
			return AlgorithmDirect, StatusSuccess
		case !unitStride:
			return AlgorithmImplicitGEMM, StatusSuccess
		case kernel.Width == 3 && kernel.Height == 3:
			return AlgorithmWT8x8, StatusSuccess
		case maxKernel <= 8:
			return AlgorithmFT8x8, StatusSuccess
		case maxKernel <= 16:
			return AlgorithmFT16x16, StatusSuccess
		default:
			return AlgorithmImplicitGEMM, StatusSuccess
		}
	case AlgorithmWT8x8:
		if kernel.Width != 3 || kernel.Height != 3 || !unitStride {
			return algorithm, StatusUnsupportedAlgorithm
		}
	case AlgorithmFT8x8:
		if maxKernel > 8 || !unitStride {
			return algorithm, StatusUnsupportedAlgorithm
		}
	case AlgorithmFT16x16:
		if maxKernel > 16 || !unitStride {
			return algorithm, StatusUnsupportedAlgorithm
		}
	case AlgorithmDirect:
		if kernel.Width != 1 || kernel.Height != 1 {
			return algorithm, StatusUnsupportedAlgorithm
		}
	case AlgorithmImplicitGEMM:
	default:
		return algorithm, StatusInvalidAlgorithm
	}
	return algorithm, StatusSuccess
}

func checkBuffers(g *convGeometry, batch int, input, kernel, bias, output []float32) Status {
	switch {
	case len(input) < batch*g.inputPerImage:
		return StatusInvalidBuffer
	case len(kernel) < g.outCh*g.colRows:
		return StatusInvalidBuffer
	case len(bias) < g.outCh:
		return StatusInvalidBuffer
	case len(output) < batch*g.outPerImage:
		return StatusInvalidBuffer
	}
	return StatusSuccess
}
