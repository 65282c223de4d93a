package reference

import "fmt"

// ConvGeometry describes a convolution over one image.
type ConvGeometry struct {
	Channels  int // input channels
	Height    int
	Width     int
	NumOutput int // output channels
	KernelH   int
	KernelW   int
	StrideH   int
	StrideW   int
	PadH      int
	PadW      int
}

// OutputHeight returns (H + 2*pad_h - kernel_h) / stride_h + 1.
func (g ConvGeometry) OutputHeight() int {
	return (g.Height+2*g.PadH-g.KernelH)/g.StrideH + 1
}

// OutputWidth returns (W + 2*pad_w - kernel_w) / stride_w + 1.
func (g ConvGeometry) OutputWidth() int {
	return (g.Width+2*g.PadW-g.KernelW)/g.StrideW + 1
}

// Validate panics if the geometry cannot produce an output.
func (g ConvGeometry) Validate() {
	if g.Channels <= 0 || g.NumOutput <= 0 {
		panic(fmt.Sprintf("conv: invalid channels in=%d out=%d", g.Channels, g.NumOutput))
	}
	if g.KernelH <= 0 || g.KernelW <= 0 || g.StrideH <= 0 || g.StrideW <= 0 {
		panic(fmt.Sprintf("conv: invalid kernel %dx%d or stride %dx%d", g.KernelH, g.KernelW, g.StrideH, g.StrideW))
	}
	if g.OutputHeight() <= 0 || g.OutputWidth() <= 0 {
		panic(fmt.Sprintf("conv: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)",
			g.OutputHeight(), g.OutputWidth()))
	}
}

func (g ConvGeometry) kernelDim() int  { return g.Channels * g.KernelH * g.KernelW }
func (g ConvGeometry) outSpatial() int { return g.OutputHeight() * g.OutputWidth() }
func (g ConvGeometry) inPerImage() int { return g.Channels * g.Height * g.Width }
func (g ConvGeometry) outPerImage() int {
	return g.NumOutput * g.outSpatial()
}

// ConvForward computes the convolution of a batch using im2col.
//
// Shapes:
//   - input:   [batch, Channels, Height, Width]
//   - weights: [NumOutput, Channels, KernelH, KernelW]
//   - bias:    [NumOutput], or nil for no bias term
//   - output:  [batch, NumOutput, OutputHeight, OutputWidth]
//
// Algorithm, per image:
//  1. Im2col: unroll the image into col [Channels*KH*KW, OH*OW]
//  2. MatMul: weights [NumOutput, Channels*KH*KW] @ col -> [NumOutput, OH*OW]
//  3. Add the per-channel bias
func ConvForward(g ConvGeometry, batch int, input, weights, bias, output []float32) {
	g.Validate()
	kdim, spatial := g.kernelDim(), g.outSpatial()
	col := make([]float32, kdim*spatial)

	for n := 0; n < batch; n++ {
		im2col(g, input[n*g.inPerImage():(n+1)*g.inPerImage()], col)
		out := output[n*g.outPerImage() : (n+1)*g.outPerImage()]

		for oc := 0; oc < g.NumOutput; oc++ {
			// Pre-slice weight row and output plane
			wRow := weights[oc*kdim : (oc+1)*kdim]
			dst := out[oc*spatial : (oc+1)*spatial]
			clear(dst)
			for k, wv := range wRow {
				if wv == 0 {
					continue
				}
				src := col[k*spatial : (k+1)*spatial]
				for j := range dst {
					dst[j] += wv * src[j]
				}
			}
			if bias != nil {
				bv := bias[oc]
				for j := range dst {
					dst[j] += bv
				}
			}
		}
	}
}

// im2col transforms one image into a column matrix.
//
// Input: [C, H, W]
// Output: col [C * K_h * K_w, H_out * W_out]
//
// Each row of col corresponds to one kernel weight, each column to one
// output position. Positions falling into the padding are zero.
func im2col(g ConvGeometry, input, col []float32) {
	outH, outW := g.OutputHeight(), g.OutputWidth()
	idx := 0
	for c := 0; c < g.Channels; c++ {
		for kh := 0; kh < g.KernelH; kh++ {
			for kw := 0; kw < g.KernelW; kw++ {
				for oh := 0; oh < outH; oh++ {
					h := oh*g.StrideH - g.PadH + kh
					for ow := 0; ow < outW; ow++ {
						w := ow*g.StrideW - g.PadW + kw
						if h >= 0 && h < g.Height && w >= 0 && w < g.Width {
							col[idx] = input[(c*g.Height+h)*g.Width+w]
						} else {
							col[idx] = 0.0
						}
						idx++
					}
				}
			}
		}
	}
}

// col2im accumulates a column matrix back into an image (the adjoint of im2col).
func col2im(g ConvGeometry, col, image []float32) {
	outH, outW := g.OutputHeight(), g.OutputWidth()
	idx := 0
	for c := 0; c < g.Channels; c++ {
		for kh := 0; kh < g.KernelH; kh++ {
			for kw := 0; kw < g.KernelW; kw++ {
				for oh := 0; oh < outH; oh++ {
					h := oh*g.StrideH - g.PadH + kh
					for ow := 0; ow < outW; ow++ {
						w := ow*g.StrideW - g.PadW + kw
						if h >= 0 && h < g.Height && w >= 0 && w < g.Width {
							image[(c*g.Height+h)*g.Width+w] += col[idx]
						}
						idx++
					}
				}
			}
		}
	}
}
