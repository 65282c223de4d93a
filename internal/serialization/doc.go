// Package serialization reads and writes layer parameters in the
// SafeTensors format:
//
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON, tensor name -> {dtype, shape, data_offsets}]
//	[tensor data: raw little-endian bytes]
//
// Only F32 tensors are supported. Tensors are written in name order, and
// the writer records a SHA-256 checksum of the data section under the
// "sha256" metadata key, which the reader verifies when present.
package serialization
