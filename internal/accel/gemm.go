package accel

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/accel/internal/parallel"
)

// convGeometry describes one image's convolution.
type convGeometry struct {
	inCh, outCh   int
	in            Size
	pad           Padding
	kernel        Size
	stride        Size
	out           Size
	colRows       int // inCh * kernel.Height * kernel.Width
	colCols       int // out.Height * out.Width
	inputPerImage int
	outPerImage   int
}

func newConvGeometry(inCh, outCh int, in Size, pad Padding, kernel, stride Size) convGeometry {
	out := Size{
		Width:  (pad.Left+in.Width+pad.Right-kernel.Width)/stride.Width + 1,
		Height: (pad.Top+in.Height+pad.Bottom-kernel.Height)/stride.Height + 1,
	}
	return convGeometry{
		inCh:          inCh,
		outCh:         outCh,
		in:            in,
		pad:           pad,
		kernel:        kernel,
		stride:        stride,
		out:           out,
		colRows:       inCh * kernel.Height * kernel.Width,
		colCols:       out.Height * out.Width,
		inputPerImage: inCh * in.Height * in.Width,
		outPerImage:   outCh * out.Height * out.Width,
	}
}

// im2col unrolls one image into col, laid out [inCh*kh*kw][outH*outW] so
// that the convolution becomes kernel[outCh][K] x col[K][outH*outW].
func (g *convGeometry) im2col(col, input []float32) {
	row := 0
	for c := 0; c < g.inCh; c++ {
		plane := input[c*g.in.Height*g.in.Width : (c+1)*g.in.Height*g.in.Width]
		for kh := 0; kh < g.kernel.Height; kh++ {
			for kw := 0; kw < g.kernel.Width; kw++ {
				dst := col[row*g.colCols : (row+1)*g.colCols]
				idx := 0
				for oh := 0; oh < g.out.Height; oh++ {
					h := oh*g.stride.Height - g.pad.Top + kh
					if h < 0 || h >= g.in.Height {
						clear(dst[idx : idx+g.out.Width])
						idx += g.out.Width
						continue
					}
					src := plane[h*g.in.Width : (h+1)*g.in.Width]
					for ow := 0; ow < g.out.Width; ow++ {
						w := ow*g.stride.Width - g.pad.Left + kw
						if w >= 0 && w < g.in.Width {
							dst[idx] = src[w]
						} else {
							dst[idx] = 0
						}
						idx++
					}
				}
				row++
			}
		}
	}
}

// gemmBias computes out[rows][colCols] = kernel[rows][colRows] x col + bias
// for output channels [first, first+rows).
func (g *convGeometry) gemmBias(out, kernel, col, bias []float32, first, rows int) {
	a := blas32.General{
		Rows:   rows,
		Cols:   g.colRows,
		Stride: g.colRows,
		Data:   kernel[first*g.colRows : (first+rows)*g.colRows],
	}
	b := blas32.General{
		Rows:   g.colRows,
		Cols:   g.colCols,
		Stride: g.colCols,
		Data:   col,
	}
	c := blas32.General{
		Rows:   rows,
		Cols:   g.colCols,
		Stride: g.colCols,
		Data:   out[first*g.colCols : (first+rows)*g.colCols],
	}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, a, b, 0, c)

	for r := 0; r < rows; r++ {
		bv := bias[first+r]
		dst := c.Data[r*g.colCols : (r+1)*g.colCols]
		for i := range dst {
			dst[i] += bv
		}
	}
}

// convolveImage runs one image, splitting output channels across the pool.
func (g *convGeometry) convolveImage(input, kernel, bias, output []float32, pool *parallel.Pool) {
	col := make([]float32, g.colRows*g.colCols)
	g.im2col(col, input)

	blocks := min(pool.Size(), g.outCh)
	blockSize := (g.outCh + blocks - 1) / blocks
	pool.Parallelize1D(blocks, func(blk int) {
		first := blk * blockSize
		if first >= g.outCh {
			return
		}
		rows := min(blockSize, g.outCh-first)
		g.gemmBias(output, kernel, col, bias, first, rows)
	})
}

// convolveBatch runs a batch, one image per task.
func (g *convGeometry) convolveBatch(batch int, input, kernel, bias, output []float32, pool *parallel.Pool) {
	pool.Parallelize1D(batch, func(n int) {
		col := make([]float32, g.colRows*g.colCols)
		g.im2col(col, input[n*g.inputPerImage:(n+1)*g.inputPerImage])
		g.gemmBias(output[n*g.outPerImage:(n+1)*g.outPerImage], kernel, col, bias, 0, g.outCh)
	})
}
