// Package reference holds the framework's own layer kernels.
//
// These are the default code paths: they support every configuration the
// layer parameters can express and implement both forward and backward
// passes. The accelerated shims in package layers fall back to them
// whenever a configuration is outside what the accelerated library handles.
//
// All kernels operate on flat NCHW float32 slices and panic on malformed
// geometry, mirroring how the rest of the framework treats shape errors.
package reference
