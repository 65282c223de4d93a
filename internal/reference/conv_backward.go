package reference

// ConvBackwardBias accumulates the bias gradient: the sum of topDiff over
// the batch and every output position of each channel.
func ConvBackwardBias(g ConvGeometry, batch int, topDiff, biasDiff []float32) {
	spatial := g.outSpatial()
	for n := 0; n < batch; n++ {
		top := topDiff[n*g.outPerImage() : (n+1)*g.outPerImage()]
		for oc := 0; oc < g.NumOutput; oc++ {
			var sum float32
			for _, v := range top[oc*spatial : (oc+1)*spatial] {
				sum += v
			}
			biasDiff[oc] += sum
		}
	}
}

// ConvBackwardWeights accumulates the weight gradient.
//
// Algorithm, per image:
//  1. Im2col the forward input into col [Channels*KH*KW, OH*OW]
//  2. weightDiff [NumOutput, Channels*KH*KW] += topDiff [NumOutput, OH*OW] @ col^T
func ConvBackwardWeights(g ConvGeometry, batch int, input, topDiff, weightDiff []float32) {
	kdim, spatial := g.kernelDim(), g.outSpatial()
	col := make([]float32, kdim*spatial)

	for n := 0; n < batch; n++ {
		im2col(g, input[n*g.inPerImage():(n+1)*g.inPerImage()], col)
		top := topDiff[n*g.outPerImage() : (n+1)*g.outPerImage()]

		for oc := 0; oc < g.NumOutput; oc++ {
			grad := top[oc*spatial : (oc+1)*spatial]
			wDiff := weightDiff[oc*kdim : (oc+1)*kdim]
			for k := range wDiff {
				src := col[k*spatial : (k+1)*spatial]
				var sum float32
				for j, gv := range grad {
					sum += gv * src[j]
				}
				wDiff[k] += sum
			}
		}
	}
}

// ConvBackwardInput computes the gradient with respect to the input,
// overwriting bottomDiff.
//
// Algorithm, per image (transposed convolution):
//  1. colDiff [Channels*KH*KW, OH*OW] = weights^T @ topDiff
//  2. Col2im: scatter-add colDiff back into the image gradient
func ConvBackwardInput(g ConvGeometry, batch int, topDiff, weights, bottomDiff []float32) {
	kdim, spatial := g.kernelDim(), g.outSpatial()
	colDiff := make([]float32, kdim*spatial)

	for n := 0; n < batch; n++ {
		top := topDiff[n*g.outPerImage() : (n+1)*g.outPerImage()]
		clear(colDiff)
		for oc := 0; oc < g.NumOutput; oc++ {
			grad := top[oc*spatial : (oc+1)*spatial]
			wRow := weights[oc*kdim : (oc+1)*kdim]
			for k, wv := range wRow {
				if wv == 0 {
					continue
				}
				dst := colDiff[k*spatial : (k+1)*spatial]
				for j, gv := range grad {
					dst[j] += wv * gv
				}
			}
		}

		bottom := bottomDiff[n*g.inPerImage() : (n+1)*g.inPerImage()]
		clear(bottom)
		col2im(g, colDiff, bottom)
	}
}
