// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package net

import (
	"io"
	"math/rand/v2"

	"github.com/born-ml/accel/internal/accel"
	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/layers"
	inet "github.com/born-ml/accel/internal/net"
	"github.com/born-ml/accel/internal/parallel"
	"github.com/born-ml/accel/internal/tensor"
)

// Net is a sequence of layers connected through named blobs.
type Net = inet.Net

// Timing is the wall time of one layer pass.
type Timing = inet.Timing

// Blob is a buffer with data and gradient storage.
type Blob = tensor.Blob

// Shape is a blob shape in NCHW order.
type Shape = tensor.Shape

// Layer is a unit of computation over blobs.
type Layer = layers.Layer

// NetParameter describes a net.
type NetParameter = config.NetParameter

// LayerParameter describes one layer.
type LayerParameter = config.LayerParameter

// Engine selects the implementation behind a layer.
type Engine = config.Engine

// Engines.
const (
	EngineDefault   = config.EngineDefault
	EngineReference = config.EngineReference
	EngineAccel     = config.EngineAccel
)

// ErrUnknownLayerType is returned for layer types the factory cannot build.
var ErrUnknownLayerType = layers.ErrUnknownLayerType

// Option configures layer construction.
type Option = layers.Option

// WithRand sets the random source used by parameter fillers.
func WithRand(rng *rand.Rand) Option {
	return layers.WithRand(rng)
}

// New builds and sets up the net described by param.
func New(param *NetParameter, opts ...Option) (*Net, error) {
	return inet.New(param, opts...)
}

// Load decodes and validates a YAML net definition.
func Load(r io.Reader) (*NetParameter, error) {
	return config.Load(r)
}

// LoadFile decodes and validates a YAML net definition from path.
func LoadFile(path string) (*NetParameter, error) {
	return config.LoadFile(path)
}

// Initialize prepares the accelerated library. Nets using the accel
// engine call it on construction.
func Initialize() error {
	return accel.Initialize().Err()
}

// Shutdown releases the accelerated library and the kernel thread pool.
func Shutdown() {
	accel.Deinitialize()
	parallel.Shutdown()
}
