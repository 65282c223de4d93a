//go:build !noaccelrelu

package accel

import (
	"math"

	"github.com/born-ml/accel/internal/parallel"
)

// HasReLU reports whether the ReLU kernels are compiled in.
const HasReLU = true

// reluBlock is the number of elements handed to one pool task.
const reluBlock = 4096

// ReluOutput computes output = max(input, 0) + negativeSlope * min(input, 0)
// over batchSize*channels elements. Input and output may alias.
func ReluOutput(batchSize, channels int, input, output []float32, negativeSlope float32, pool *parallel.Pool) Status {
	n, status := validateRelu(batchSize, channels, negativeSlope)
	if status != StatusSuccess {
		return status
	}
	if len(input) < n || len(output) < n {
		return StatusInvalidBuffer
	}

	pool.Parallelize1D(ceilDiv(n, reluBlock), func(blk int) {
		start := blk * reluBlock
		end := min(start+reluBlock, n)
		for i := start; i < end; i++ {
			v := input[i]
			if v < 0 {
				v *= negativeSlope
			}
			output[i] = v
		}
	})
	return StatusSuccess
}

// ReluInput computes the gradient with respect to the ReLU input:
// gradInput = gradOutput where input > 0, negativeSlope * gradOutput elsewhere.
// gradOutput and gradInput may alias.
func ReluInput(batchSize, channels int, gradOutput, input, gradInput []float32, negativeSlope float32, pool *parallel.Pool) Status {
	n, status := validateRelu(batchSize, channels, negativeSlope)
	if status != StatusSuccess {
		return status
	}
	if len(gradOutput) < n || len(input) < n || len(gradInput) < n {
		return StatusInvalidBuffer
	}

	pool.Parallelize1D(ceilDiv(n, reluBlock), func(blk int) {
		start := blk * reluBlock
		end := min(start+reluBlock, n)
		for i := start; i < end; i++ {
			g := gradOutput[i]
			if input[i] <= 0 {
				g *= negativeSlope
			}
			gradInput[i] = g
		}
	})
	return StatusSuccess
}

func validateRelu(batchSize, channels int, negativeSlope float32) (int, Status) {
	switch {
	case !initialized.Load():
		return 0, StatusUninitialized
	case batchSize <= 0:
		return 0, StatusInvalidBatchSize
	case channels <= 0:
		return 0, StatusInvalidChannels
	case math.IsNaN(float64(negativeSlope)) || math.IsInf(float64(negativeSlope), 0):
		return 0, StatusInvalidNegativeSlope
	}
	return batchSize * channels, StatusSuccess
}
