//go:build noaccelrelu

package layers

import (
	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/logutil"
)

// Without the accelerated ReLU kernels, the accel engine builds reference
// ReLU layers.
func newAccelReLU(param config.LayerParameter, o options) Layer {
	logutil.Trace("accelerated relu is not compiled in, using reference", "layer", param.Name)
	return newReLU(param, o)
}
