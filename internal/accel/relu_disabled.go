//go:build noaccelrelu

package accel

// HasReLU reports whether the ReLU kernels are compiled in.
const HasReLU = false
