package layers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/born-ml/accel/internal/accel"
	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/envconfig"
)

// ErrUnknownLayerType is returned by New for a layer type without a
// constructor.
var ErrUnknownLayerType = errors.New("unknown layer type")

// New creates the layer described by param.
//
// The engine is taken from param, with EngineDefault resolved through
// ResolveEngine. The accel engine initializes the accelerated library on
// first use and panics if that fails.
func New(param config.LayerParameter, opts ...Option) (Layer, error) {
	o := buildOptions(opts)
	engine := ResolveEngine(param.Engine)
	if engine == config.EngineAccel {
		mustInitialize()
	}

	var (
		l   Layer
		err error
	)
	switch param.Type {
	case config.TypeConvolution:
		if engine == config.EngineAccel {
			l, err = newAccelConvolution(param, o)
		} else {
			l, err = newConvolution(param, o)
		}
	case config.TypePooling:
		if engine == config.EngineAccel {
			l, err = newAccelPooling(param, o)
		} else {
			l, err = newPooling(param, o)
		}
	case config.TypeReLU:
		if engine == config.EngineAccel {
			l = newAccelReLU(param, o)
		} else {
			l = newReLU(param, o)
		}
	default:
		return nil, fmt.Errorf("layer %q: %w: %s", param.Name, ErrUnknownLayerType, param.Type)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ResolveEngine maps EngineDefault to the process default from
// ACCEL_ENGINE. An unset or unparsable variable means EngineAccel.
func ResolveEngine(e config.Engine) config.Engine {
	if e != config.EngineDefault {
		return e
	}
	s := envconfig.Engine()
	parsed, err := config.ParseEngine(s)
	if err != nil {
		slog.Warn("invalid ACCEL_ENGINE, using accel", "value", s, "error", err)
		return config.EngineAccel
	}
	if parsed == config.EngineDefault {
		return config.EngineAccel
	}
	return parsed
}

func mustInitialize() {
	if accel.Initialized() {
		return
	}
	if status := accel.Initialize(); status != accel.StatusSuccess {
		panic(fmt.Sprintf("accel: initialize: %v", status))
	}
	slog.Debug("accelerated library initialized")
}
