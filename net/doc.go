// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package net builds and runs layer nets whose convolution, pooling and
// ReLU layers dispatch to an accelerated kernel library.
//
// # Overview
//
// A net is described in YAML: named input blobs followed by a sequence of
// layers, each reading bottom blobs and writing top blobs by name. Every
// layer selects an engine:
//   - reference: the framework's own kernels
//   - accel: a shim that calls the accelerated library when the layer's
//     configuration is supported and the reference kernels otherwise
//   - default: the process default from ACCEL_ENGINE (accel when unset)
//
// # Basic Usage
//
//	import "github.com/born-ml/accel/net"
//
//	func main() {
//	    param, err := net.LoadFile("lenet.yaml")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    n, err := net.New(param)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    copy(n.Input(0).Data(), image)
//	    n.Forward()
//	    fmt.Println(n.Output(0).Data())
//	}
//
// # Environment
//
//   - ACCEL_ENGINE: default engine (reference or accel)
//   - ACCEL_NUM_THREADS, OPENBLAS_NUM_THREADS, OMP_NUM_THREADS: kernel
//     thread pool size, first set wins (default 1)
//   - ACCEL_DEBUG: 1 for debug logging, 2 for trace (fallback decisions)
package net
