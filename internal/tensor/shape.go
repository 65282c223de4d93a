// Package tensor provides the blob buffers layers read from and write into.
package tensor

import "fmt"

// Shape represents the dimensions of a blob.
//
// Four-dimensional shapes follow the NCHW convention used throughout the
// layers: [batch, channels, height, width].
type Shape []int

// NumElements returns the total number of elements described by the shape.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// CountFrom returns the product of dimensions starting at axis.
//
// CountFrom(1) of an NCHW shape is the per-image element count.
func (s Shape) CountFrom(axis int) int {
	if axis < 0 || axis > len(s) {
		panic(fmt.Sprintf("shape: axis %d out of range for rank %d", axis, len(s)))
	}
	n := 1
	for _, dim := range s[axis:] {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// legacy returns the dimension at index i, treating missing trailing
// dimensions as 1 so that 2D blobs still answer Height and Width.
func (s Shape) legacy(i int) int {
	if i < len(s) {
		return s[i]
	}
	return 1
}
