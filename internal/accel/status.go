package accel

import "fmt"

// Status is the result of every library call.
type Status int

// Status codes.
const (
	StatusSuccess Status = iota
	StatusInvalidBatchSize
	StatusInvalidChannels
	StatusInvalidInputChannels
	StatusInvalidOutputChannels
	StatusInvalidInputSize
	StatusInvalidInputPadding
	StatusInvalidKernelSize
	StatusInvalidPoolingSize
	StatusInvalidPoolingStride
	StatusInvalidAlgorithm
	StatusInvalidTransformStrategy
	StatusInvalidOutputSubsampling
	StatusInvalidNegativeSlope
	StatusInvalidBuffer
	StatusUnsupportedInputSize
	StatusUnsupportedPoolingSize
	StatusUnsupportedPoolingStride
	StatusUnsupportedAlgorithm
	StatusUnsupportedTransformStrategy
	StatusUninitialized
)

var statusNames = map[Status]string{
	StatusSuccess:                      "success",
	StatusInvalidBatchSize:             "invalid batch size",
	StatusInvalidChannels:              "invalid channels",
	StatusInvalidInputChannels:         "invalid input channels",
	StatusInvalidOutputChannels:        "invalid output channels",
	StatusInvalidInputSize:             "invalid input size",
	StatusInvalidInputPadding:          "invalid input padding",
	StatusInvalidKernelSize:            "invalid kernel size",
	StatusInvalidPoolingSize:           "invalid pooling size",
	StatusInvalidPoolingStride:         "invalid pooling stride",
	StatusInvalidAlgorithm:             "invalid algorithm",
	StatusInvalidTransformStrategy:     "invalid transform strategy",
	StatusInvalidOutputSubsampling:     "invalid output subsampling",
	StatusInvalidNegativeSlope:         "invalid negative slope",
	StatusInvalidBuffer:                "invalid buffer",
	StatusUnsupportedInputSize:         "unsupported input size",
	StatusUnsupportedPoolingSize:       "unsupported pooling size",
	StatusUnsupportedPoolingStride:     "unsupported pooling stride",
	StatusUnsupportedAlgorithm:         "unsupported algorithm",
	StatusUnsupportedTransformStrategy: "unsupported transform strategy",
	StatusUninitialized:                "uninitialized",
}

// String returns a human-readable status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Error implements error so a failing Status can be returned or wrapped directly.
func (s Status) Error() string {
	return "accel: " + s.String()
}

// Err returns nil for StatusSuccess and the status itself otherwise.
func (s Status) Err() error {
	if s == StatusSuccess {
		return nil
	}
	return s
}
