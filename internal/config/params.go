// Package config defines layer and net parameters and loads them from YAML.
package config

import (
	"fmt"

	"github.com/born-ml/accel/internal/tensor"
)

// Layer types understood by the layer factory.
const (
	TypeConvolution = "Convolution"
	TypePooling     = "Pooling"
	TypeReLU        = "ReLU"
)

// NetParameter describes a sequential net.
type NetParameter struct {
	Name   string           `yaml:"name"`
	Inputs []InputParameter `yaml:"inputs"`
	Layers []LayerParameter `yaml:"layers"`
}

// InputParameter declares a net input blob.
type InputParameter struct {
	Name  string `yaml:"name"`
	Shape []int  `yaml:"shape"`
}

// LayerParameter configures one layer. Exactly the parameter block that
// matches Type is consulted.
type LayerParameter struct {
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	Bottom []string `yaml:"bottom"`
	Top    []string `yaml:"top"`
	Engine Engine   `yaml:"engine,omitempty"`

	Convolution *ConvolutionParameter `yaml:"convolution_param,omitempty"`
	Pooling     *PoolingParameter     `yaml:"pooling_param,omitempty"`
	ReLU        *ReLUParameter        `yaml:"relu_param,omitempty"`
}

// ConvolutionParameter configures a convolution layer.
//
// Kernel, stride and pad can be given as a square value or as explicit
// height/width pairs; explicit values win.
type ConvolutionParameter struct {
	NumOutput int   `yaml:"num_output"`
	BiasTerm  *bool `yaml:"bias_term,omitempty"`

	KernelSize int `yaml:"kernel_size,omitempty"`
	KernelH    int `yaml:"kernel_h,omitempty"`
	KernelW    int `yaml:"kernel_w,omitempty"`
	Stride     int `yaml:"stride,omitempty"`
	StrideH    int `yaml:"stride_h,omitempty"`
	StrideW    int `yaml:"stride_w,omitempty"`
	Pad        int `yaml:"pad,omitempty"`
	PadH       int `yaml:"pad_h,omitempty"`
	PadW       int `yaml:"pad_w,omitempty"`

	WeightFiller *FillerParameter `yaml:"weight_filler,omitempty"`
	BiasFiller   *FillerParameter `yaml:"bias_filler,omitempty"`

	Algorithm       Algorithm       `yaml:"algorithm,omitempty"`
	KernelTransform KernelTransform `yaml:"kernel_transform,omitempty"`
}

// HasBias reports whether the layer learns a bias; true unless disabled.
func (p *ConvolutionParameter) HasBias() bool {
	return p.BiasTerm == nil || *p.BiasTerm
}

// Kernel returns the kernel height and width.
func (p *ConvolutionParameter) Kernel() (h, w int) {
	return pick(p.KernelH, p.KernelSize, 0), pick(p.KernelW, p.KernelSize, 0)
}

// Strides returns the stride height and width; the default is 1.
func (p *ConvolutionParameter) Strides() (h, w int) {
	return pick(p.StrideH, p.Stride, 1), pick(p.StrideW, p.Stride, 1)
}

// Pads returns the padding height and width; the default is 0.
func (p *ConvolutionParameter) Pads() (h, w int) {
	return pick(p.PadH, p.Pad, 0), pick(p.PadW, p.Pad, 0)
}

// PoolingParameter configures a pooling layer.
type PoolingParameter struct {
	Pool          PoolMethod `yaml:"pool,omitempty"`
	KernelSize    int        `yaml:"kernel_size,omitempty"`
	KernelH       int        `yaml:"kernel_h,omitempty"`
	KernelW       int        `yaml:"kernel_w,omitempty"`
	Stride        int        `yaml:"stride,omitempty"`
	StrideH       int        `yaml:"stride_h,omitempty"`
	StrideW       int        `yaml:"stride_w,omitempty"`
	Pad           int        `yaml:"pad,omitempty"`
	PadH          int        `yaml:"pad_h,omitempty"`
	PadW          int        `yaml:"pad_w,omitempty"`
	GlobalPooling bool       `yaml:"global_pooling,omitempty"`
}

// Kernel returns the pooling window height and width.
func (p *PoolingParameter) Kernel() (h, w int) {
	return pick(p.KernelH, p.KernelSize, 0), pick(p.KernelW, p.KernelSize, 0)
}

// Strides returns the stride height and width; the default is 1.
func (p *PoolingParameter) Strides() (h, w int) {
	return pick(p.StrideH, p.Stride, 1), pick(p.StrideW, p.Stride, 1)
}

// Pads returns the padding height and width; the default is 0.
func (p *PoolingParameter) Pads() (h, w int) {
	return pick(p.PadH, p.Pad, 0), pick(p.PadW, p.Pad, 0)
}

// ReLUParameter configures a (leaky) ReLU layer.
type ReLUParameter struct {
	NegativeSlope float32 `yaml:"negative_slope,omitempty"`
}

// FillerParameter selects how a parameter blob is initialized.
type FillerParameter struct {
	Type  string  `yaml:"type"`
	Value float32 `yaml:"value,omitempty"`
	Min   float32 `yaml:"min,omitempty"`
	Max   float32 `yaml:"max,omitempty"`
	Mean  float32 `yaml:"mean,omitempty"`
	Std   float32 `yaml:"std,omitempty"`
}

// Filler returns the tensor.Filler described by p. A nil parameter means
// a constant zero filler.
func (p *FillerParameter) Filler() (tensor.Filler, error) {
	if p == nil {
		return tensor.ConstantFiller{}, nil
	}
	switch p.Type {
	case "", "constant":
		return tensor.ConstantFiller{Value: p.Value}, nil
	case "gaussian":
		std := p.Std
		if std == 0 {
			std = 1
		}
		return tensor.GaussianFiller{Mean: p.Mean, Std: std}, nil
	case "uniform":
		maxVal := p.Max
		if maxVal == 0 && p.Min == 0 {
			maxVal = 1
		}
		return tensor.UniformFiller{Min: p.Min, Max: maxVal}, nil
	case "xavier":
		return tensor.XavierFiller{}, nil
	default:
		return nil, fmt.Errorf("unknown filler type %q", p.Type)
	}
}

// pick returns explicit if set, else square if set, else def.
func pick(explicit, square, def int) int {
	switch {
	case explicit != 0:
		return explicit
	case square != 0:
		return square
	default:
		return def
	}
}
