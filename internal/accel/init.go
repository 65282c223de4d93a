package accel

import (
	"sync/atomic"

	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/gonum"
)

var initialized atomic.Bool

// Initialize prepares the library. It is safe to call more than once.
func Initialize() Status {
	if initialized.Load() {
		return StatusSuccess
	}
	blas32.Use(gonum.Implementation{})
	initialized.Store(true)
	return StatusSuccess
}

// Deinitialize releases the library. Kernels return StatusUninitialized
// until the next Initialize.
func Deinitialize() Status {
	initialized.Store(false)
	return StatusSuccess
}

// Initialized reports whether Initialize has been called.
func Initialized() bool {
	return initialized.Load()
}
