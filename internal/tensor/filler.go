package tensor

import (
	"math"
	"math/rand/v2"
)

// Filler initializes a blob's data, typically a layer's weights or bias.
type Filler interface {
	Fill(b *Blob, rng *rand.Rand)
}

// ConstantFiller sets every element to Value.
type ConstantFiller struct {
	Value float32
}

// Fill implements Filler.
func (f ConstantFiller) Fill(b *Blob, _ *rand.Rand) {
	data := b.Data()
	for i := range data {
		data[i] = f.Value
	}
}

// GaussianFiller draws from N(Mean, Std^2).
type GaussianFiller struct {
	Mean float32
	Std  float32
}

// Fill implements Filler.
func (f GaussianFiller) Fill(b *Blob, rng *rand.Rand) {
	data := b.Data()
	for i := range data {
		data[i] = f.Mean + f.Std*float32(rng.NormFloat64())
	}
}

// UniformFiller draws from U(Min, Max).
type UniformFiller struct {
	Min float32
	Max float32
}

// Fill implements Filler.
func (f UniformFiller) Fill(b *Blob, rng *rand.Rand) {
	data := b.Data()
	for i := range data {
		data[i] = f.Min + (f.Max-f.Min)*rng.Float32()
	}
}

// XavierFiller draws from U(-sqrt(3/fan_in), sqrt(3/fan_in)), where fan_in
// is the number of elements per output unit (Count / Num).
type XavierFiller struct{}

// Fill implements Filler.
func (XavierFiller) Fill(b *Blob, rng *rand.Rand) {
	fanIn := b.Count() / b.Num()
	bound := float32(math.Sqrt(3.0 / float64(fanIn)))
	UniformFiller{Min: -bound, Max: bound}.Fill(b, rng)
}
