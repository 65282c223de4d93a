// Package accel is the accelerated kernel library the layer shims dispatch to.
//
// The library exposes a narrow, C-style calling convention: sizes and
// padding travel in small parameter blocks, buffers are flat NCHW float32
// slices, every entry point returns a Status, and work is spread over a
// caller-supplied *parallel.Pool. Initialize must succeed before any kernel
// is called.
//
// # Kernels
//
//   - ConvolutionInference: one image, any output subsampling
//   - ConvolutionOutput: a batch of images, unit stride
//   - MaxPoolingOutput: 2x2 max pooling with stride 2
//   - ReluOutput / ReluInput: leaky ReLU forward and backward (absent when
//     built with the noaccelrelu tag, see HasReLU)
//
// Convolutions accept an Algorithm choice. Each algorithm carries the
// constraints of its transform family (Winograd needs 3x3 kernels, the FFT
// variants bound the kernel by their tile size), and every accepted
// configuration executes through an im2col lowering onto single-precision
// GEMM from gonum's blas32.
package accel
