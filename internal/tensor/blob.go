package tensor

import "fmt"

// Blob is the buffer layers read from and write into.
//
// A blob carries two equally sized float32 buffers: Data holds activations
// or parameters, Diff holds the matching gradients. Blobs are owned by the
// net that allocated them; layers only borrow them for the duration of a
// Forward or Backward call.
type Blob struct {
	shape    Shape
	data     []float32
	diff     []float32
	capacity int
}

// NewBlob creates a zero-filled blob with the given shape.
func NewBlob(shape ...int) (*Blob, error) {
	b := &Blob{}
	if err := b.Reshape(Shape(shape)); err != nil {
		return nil, err
	}
	return b, nil
}

// MustBlob is like NewBlob but panics on an invalid shape.
func MustBlob(shape ...int) *Blob {
	b, err := NewBlob(shape...)
	if err != nil {
		panic(fmt.Sprintf("blob: %v", err))
	}
	return b
}

// FromSlice creates a blob holding a copy of data.
func FromSlice(data []float32, shape ...int) (*Blob, error) {
	b, err := NewBlob(shape...)
	if err != nil {
		return nil, err
	}
	if len(data) != b.Count() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)", len(data), b.shape, b.Count())
	}
	copy(b.data, data)
	return b, nil
}

// Reshape changes the blob's shape.
//
// Memory is kept when the new shape needs no more elements than the blob
// already holds, and reallocated (zeroed) otherwise.
func (b *Blob) Reshape(shape Shape) error {
	if err := shape.Validate(); err != nil {
		return fmt.Errorf("invalid shape: %w", err)
	}
	count := shape.NumElements()
	if count > b.capacity {
		b.data = make([]float32, count)
		b.diff = make([]float32, count)
		b.capacity = count
	}
	b.shape = shape.Clone()
	return nil
}

// ReshapeLike reshapes the blob to match other.
func (b *Blob) ReshapeLike(other *Blob) error {
	return b.Reshape(other.shape)
}

// Shape returns the blob's shape.
func (b *Blob) Shape() Shape {
	return b.shape
}

// Count returns the number of elements in the blob.
func (b *Blob) Count() int {
	if b.shape == nil {
		return 0
	}
	return b.shape.NumElements()
}

// Num returns the batch dimension.
func (b *Blob) Num() int { return b.shape.legacy(0) }

// Channels returns the channel dimension.
func (b *Blob) Channels() int { return b.shape.legacy(1) }

// Height returns the height dimension.
func (b *Blob) Height() int { return b.shape.legacy(2) }

// Width returns the width dimension.
func (b *Blob) Width() int { return b.shape.legacy(3) }

// Data returns the activation buffer, sized to Count.
func (b *Blob) Data() []float32 {
	return b.data[:b.Count()]
}

// Diff returns the gradient buffer, sized to Count.
func (b *Blob) Diff() []float32 {
	return b.diff[:b.Count()]
}

// Offset returns the flat index of element (n, c, h, w).
func (b *Blob) Offset(n, c, h, w int) int {
	return ((n*b.Channels()+c)*b.Height()+h)*b.Width() + w
}

// CopyFrom copies data (or diff, when copyDiff is set) from src.
// With reshape set, b is first reshaped to src's shape; otherwise the
// shapes must match.
func (b *Blob) CopyFrom(src *Blob, copyDiff, reshape bool) error {
	if !src.shape.Equal(b.shape) {
		if !reshape {
			return fmt.Errorf("copy from blob of shape %v into %v", src.shape, b.shape)
		}
		if err := b.ReshapeLike(src); err != nil {
			return err
		}
	}
	if copyDiff {
		copy(b.Diff(), src.Diff())
	} else {
		copy(b.Data(), src.Data())
	}
	return nil
}

// ShareData makes b use other's data buffer. The shapes must match. Diff
// stays separate, and sharing ends when b grows past the shared buffer.
func (b *Blob) ShareData(other *Blob) error {
	if !other.shape.Equal(b.shape) {
		return fmt.Errorf("share data of blob of shape %v into %v", other.shape, b.shape)
	}
	count := other.Count()
	b.data = other.data[:count]
	b.capacity = min(b.capacity, count)
	return nil
}

// ZeroDiff clears the gradient buffer.
func (b *Blob) ZeroDiff() {
	clear(b.Diff())
}

// ZeroData clears the activation buffer.
func (b *Blob) ZeroData() {
	clear(b.Data())
}

// String implements fmt.Stringer.
func (b *Blob) String() string {
	return fmt.Sprintf("Blob%v", []int(b.shape))
}
