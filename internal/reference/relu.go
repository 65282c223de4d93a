package reference

// ReLUForward computes output = max(x, 0) + slope * min(x, 0).
// input and output may be the same slice.
func ReLUForward(input, output []float32, negativeSlope float32) {
	for i, v := range input {
		if v > 0 {
			output[i] = v
		} else {
			output[i] = v * negativeSlope
		}
	}
}

// ReLUBackward computes bottomDiff = topDiff * (x > 0 ? 1 : slope).
// topDiff and bottomDiff may be the same slice.
func ReLUBackward(topDiff, input, bottomDiff []float32, negativeSlope float32) {
	for i, g := range topDiff {
		if input[i] > 0 {
			bottomDiff[i] = g
		} else {
			bottomDiff[i] = g * negativeSlope
		}
	}
}
