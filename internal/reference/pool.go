package reference

import (
	"fmt"
	"math"
)

// PoolGeometry describes pooling over one image.
type PoolGeometry struct {
	Channels int
	Height   int
	Width    int
	KernelH  int
	KernelW  int
	StrideH  int
	StrideW  int
	PadH     int
	PadW     int
}

// PooledHeight returns the ceil-mode output height.
func (g PoolGeometry) PooledHeight() int {
	return pooledExtent(g.Height, g.KernelH, g.StrideH, g.PadH)
}

// PooledWidth returns the ceil-mode output width.
func (g PoolGeometry) PooledWidth() int {
	return pooledExtent(g.Width, g.KernelW, g.StrideW, g.PadW)
}

// pooledExtent computes ceil((in + 2*pad - kernel) / stride) + 1, dropping a
// last window that would start inside the padding.
func pooledExtent(in, kernel, stride, pad int) int {
	out := int(math.Ceil(float64(in+2*pad-kernel)/float64(stride))) + 1
	if pad > 0 && (out-1)*stride >= in+pad {
		out--
	}
	return out
}

// Validate panics on geometry the pooling kernels cannot handle.
func (g PoolGeometry) Validate() {
	if g.KernelH <= 0 || g.KernelW <= 0 {
		panic(fmt.Sprintf("pool: invalid kernel size %dx%d", g.KernelH, g.KernelW))
	}
	if g.StrideH <= 0 || g.StrideW <= 0 {
		panic(fmt.Sprintf("pool: invalid stride %dx%d", g.StrideH, g.StrideW))
	}
	if g.PadH >= g.KernelH || g.PadW >= g.KernelW {
		panic(fmt.Sprintf("pool: padding %dx%d must be smaller than kernel %dx%d", g.PadH, g.PadW, g.KernelH, g.KernelW))
	}
	if g.PooledHeight() <= 0 || g.PooledWidth() <= 0 {
		panic(fmt.Sprintf("pool: invalid output dimensions %dx%d (kernel=%dx%d, input=%dx%d)",
			g.PooledHeight(), g.PooledWidth(), g.KernelH, g.KernelW, g.Height, g.Width))
	}
}

// MaxPoolForward computes max pooling and records, in mask, the index
// (h*Width + w within its plane) of each maximum.
//
// Input:  [batch, Channels, Height, Width]
// Output: [batch, Channels, PooledHeight, PooledWidth]
// Mask:   same length as output; may be nil when no backward pass follows.
func MaxPoolForward(g PoolGeometry, batch int, input, output []float32, mask []int) {
	g.Validate()
	ph, pw := g.PooledHeight(), g.PooledWidth()
	inPlane, outPlane := g.Height*g.Width, ph*pw

	for p := 0; p < batch*g.Channels; p++ {
		// Pre-slice channel planes
		src := input[p*inPlane : (p+1)*inPlane]
		dst := output[p*outPlane : (p+1)*outPlane]

		for oh := 0; oh < ph; oh++ {
			hStart := max(oh*g.StrideH-g.PadH, 0)
			hEnd := min(oh*g.StrideH-g.PadH+g.KernelH, g.Height)
			for ow := 0; ow < pw; ow++ {
				wStart := max(ow*g.StrideW-g.PadW, 0)
				wEnd := min(ow*g.StrideW-g.PadW+g.KernelW, g.Width)

				maxVal := float32(-math.MaxFloat32)
				maxIdx := -1
				for h := hStart; h < hEnd; h++ {
					for w := wStart; w < wEnd; w++ {
						idx := h*g.Width + w
						if src[idx] > maxVal {
							maxVal = src[idx]
							maxIdx = idx
						}
					}
				}

				dst[oh*pw+ow] = maxVal
				if mask != nil {
					mask[p*outPlane+oh*pw+ow] = maxIdx
				}
			}
		}
	}
}

// MaxPoolBackward routes each output gradient to the input position
// recorded in mask, overwriting bottomDiff.
func MaxPoolBackward(g PoolGeometry, batch int, topDiff []float32, mask []int, bottomDiff []float32) {
	inPlane, outPlane := g.Height*g.Width, g.PooledHeight()*g.PooledWidth()
	if len(mask) < batch*g.Channels*outPlane {
		panic(fmt.Sprintf("pool: mask length %d != expected %d", len(mask), batch*g.Channels*outPlane))
	}

	clear(bottomDiff[:batch*g.Channels*inPlane])
	for p := 0; p < batch*g.Channels; p++ {
		bottom := bottomDiff[p*inPlane : (p+1)*inPlane]
		for i, gv := range topDiff[p*outPlane : (p+1)*outPlane] {
			if idx := mask[p*outPlane+i]; idx >= 0 {
				bottom[idx] += gv
			}
		}
	}
}

// AvePoolForward computes average pooling. The divisor counts padded
// positions inside the window but not positions past the padding, so edge
// windows are averaged over their full padded extent.
func AvePoolForward(g PoolGeometry, batch int, input, output []float32) {
	g.Validate()
	ph, pw := g.PooledHeight(), g.PooledWidth()
	inPlane, outPlane := g.Height*g.Width, ph*pw

	for p := 0; p < batch*g.Channels; p++ {
		src := input[p*inPlane : (p+1)*inPlane]
		dst := output[p*outPlane : (p+1)*outPlane]

		for oh := 0; oh < ph; oh++ {
			for ow := 0; ow < pw; ow++ {
				hStart, hEnd, wStart, wEnd, size := g.aveWindow(oh, ow)
				var sum float32
				for h := hStart; h < hEnd; h++ {
					for w := wStart; w < wEnd; w++ {
						sum += src[h*g.Width+w]
					}
				}
				dst[oh*pw+ow] = sum / float32(size)
			}
		}
	}
}

// AvePoolBackward spreads each output gradient evenly over its window,
// overwriting bottomDiff.
func AvePoolBackward(g PoolGeometry, batch int, topDiff, bottomDiff []float32) {
	ph, pw := g.PooledHeight(), g.PooledWidth()
	inPlane, outPlane := g.Height*g.Width, ph*pw

	clear(bottomDiff[:batch*g.Channels*inPlane])
	for p := 0; p < batch*g.Channels; p++ {
		top := topDiff[p*outPlane : (p+1)*outPlane]
		bottom := bottomDiff[p*inPlane : (p+1)*inPlane]

		for oh := 0; oh < ph; oh++ {
			for ow := 0; ow < pw; ow++ {
				hStart, hEnd, wStart, wEnd, size := g.aveWindow(oh, ow)
				share := top[oh*pw+ow] / float32(size)
				for h := hStart; h < hEnd; h++ {
					for w := wStart; w < wEnd; w++ {
						bottom[h*g.Width+w] += share
					}
				}
			}
		}
	}
}

// aveWindow returns the clamped window bounds and the divisor for output (oh, ow).
func (g PoolGeometry) aveWindow(oh, ow int) (hStart, hEnd, wStart, wEnd, size int) {
	hStart = oh*g.StrideH - g.PadH
	wStart = ow*g.StrideW - g.PadW
	hEnd = min(hStart+g.KernelH, g.Height+g.PadH)
	wEnd = min(wStart+g.KernelW, g.Width+g.PadW)
	size = (hEnd - hStart) * (wEnd - wStart)

	hStart, wStart = max(hStart, 0), max(wStart, 0)
	hEnd, wEnd = min(hEnd, g.Height), min(wEnd, g.Width)
	return hStart, hEnd, wStart, wEnd, size
}
