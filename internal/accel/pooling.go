package accel

import (
	"math"

	"github.com/born-ml/accel/internal/parallel"
)

// MaxPoolingOutput computes max pooling over a batch.
//
// Only 2x2 pooling with stride 2 is supported. The output size follows
// ceil division, so odd inputs produce a final partial window that is
// clamped to the image; padded positions never win the max:
//
//	outH = ceil((pad.Top + H + pad.Bottom - poolH) / strideH) + 1
func MaxPoolingOutput(
	batchSize, channels int,
	inputSize Size,
	inputPadding Padding,
	poolingSize, poolingStride Size,
	input, output []float32,
	pool *parallel.Pool,
) Status {
	if !initialized.Load() {
		return StatusUninitialized
	}
	switch {
	case batchSize <= 0:
		return StatusInvalidBatchSize
	case channels <= 0:
		return StatusInvalidChannels
	case inputSize.Width <= 0 || inputSize.Height <= 0:
		return StatusInvalidInputSize
	case poolingSize.Width <= 0 || poolingSize.Height <= 0:
		return StatusInvalidPoolingSize
	case poolingStride.Width <= 0 || poolingStride.Height <= 0:
		return StatusInvalidPoolingStride
	case inputPadding.Top < 0 || inputPadding.Bottom < 0 || inputPadding.Left < 0 || inputPadding.Right < 0:
		return StatusInvalidInputPadding
	case inputPadding.Top >= poolingSize.Height || inputPadding.Bottom >= poolingSize.Height ||
		inputPadding.Left >= poolingSize.Width || inputPadding.Right >= poolingSize.Width:
		return StatusInvalidInputPadding
	case poolingSize.Width != 2 || poolingSize.Height != 2:
		return StatusUnsupportedPoolingSize
	case poolingStride.Width != 2 || poolingStride.Height != 2:
		return StatusUnsupportedPoolingStride
	}

	out := PoolingOutputSize(inputSize, inputPadding, poolingSize, poolingStride)
	inPlane := inputSize.Height * inputSize.Width
	outPlane := out.Height * out.Width
	if len(input) < batchSize*channels*inPlane || len(output) < batchSize*channels*outPlane {
		return StatusInvalidBuffer
	}

	pool.Parallelize2D(batchSize, channels, func(n, c int) {
		plane := n*channels + c
		src := input[plane*inPlane : (plane+1)*inPlane]
		dst := output[plane*outPlane : (plane+1)*outPlane]

		for oh := 0; oh < out.Height; oh++ {
			hStart := max(oh*poolingStride.Height-inputPadding.Top, 0)
			hEnd := min(oh*poolingStride.Height-inputPadding.Top+poolingSize.Height, inputSize.Height)
			for ow := 0; ow < out.Width; ow++ {
				wStart := max(ow*poolingStride.Width-inputPadding.Left, 0)
				wEnd := min(ow*poolingStride.Width-inputPadding.Left+poolingSize.Width, inputSize.Width)

				maxVal := float32(-math.MaxFloat32)
				for h := hStart; h < hEnd; h++ {
					row := src[h*inputSize.Width : (h+1)*inputSize.Width]
					for w := wStart; w < wEnd; w++ {
						if row[w] > maxVal {
							maxVal = row[w]
						}
					}
				}
				dst[oh*out.Width+ow] = maxVal
			}
		}
	})
	return StatusSuccess
}

// PoolingOutputSize returns the ceil-mode output size of a pooling window
// sliding over a padded input. A last window that would start inside the
// bottom or right padding is dropped, so every window covers at least one
// input element.
func PoolingOutputSize(in Size, pad Padding, poolSize, stride Size) Size {
	return Size{
		Width:  pooledExtent(in.Width, pad.Left, pad.Right, poolSize.Width, stride.Width),
		Height: pooledExtent(in.Height, pad.Top, pad.Bottom, poolSize.Height, stride.Height),
	}
}

func pooledExtent(in, padBefore, padAfter, window, stride int) int {
	out := ceilDiv(max(padBefore+in+padAfter-window, 0), stride) + 1
	if padBefore > 0 && (out-1)*stride >= in+padBefore {
		out--
	}
	return out
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
