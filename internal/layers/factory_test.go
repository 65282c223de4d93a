package layers

import (
	"testing"

	"github.com/born-ml/accel/internal/accel"
	"github.com/born-ml/accel/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEngine(t *testing.T) {
	tests := []struct {
		env  string
		in   config.Engine
		want config.Engine
	}{
		{"", config.EngineDefault, config.EngineAccel},
		{"reference", config.EngineDefault, config.EngineReference},
		{"accel", config.EngineDefault, config.EngineAccel},
		{"default", config.EngineDefault, config.EngineAccel},
		{"gpu", config.EngineDefault, config.EngineAccel},
		{"reference", config.EngineAccel, config.EngineAccel},
		{"accel", config.EngineReference, config.EngineReference},
	}
	for _, tt := range tests {
		t.Run(tt.env+"_"+tt.in.String(), func(t *testing.T) {
			t.Setenv("ACCEL_ENGINE", tt.env)
			assert.Equal(t, tt.want, ResolveEngine(tt.in))
		})
	}
}

func TestNew_Engines(t *testing.T) {
	t.Setenv("ACCEL_ENGINE", "")

	conv := convParam(2, 3, 1, 0, true)
	l, err := New(conv)
	require.NoError(t, err)
	assert.IsType(t, &AccelConvolutionLayer{}, l)

	conv.Engine = config.EngineReference
	l, err = New(conv)
	require.NoError(t, err)
	assert.IsType(t, &ConvolutionLayer{}, l)

	pool := poolParam(config.PoolMax, 2, 2, 0)
	l, err = New(pool)
	require.NoError(t, err)
	assert.IsType(t, &AccelPoolingLayer{}, l)

	pool.Engine = config.EngineReference
	l, err = New(pool)
	require.NoError(t, err)
	assert.IsType(t, &PoolingLayer{}, l)

	relu := reluParam(0)
	relu.Engine = config.EngineReference
	l, err = New(relu)
	require.NoError(t, err)
	assert.IsType(t, &ReLULayer{}, l)

	relu.Engine = config.EngineAccel
	l, err = New(relu)
	require.NoError(t, err)
	assert.Equal(t, config.TypeReLU, l.Type())
	if accel.HasReLU {
		assert.Equal(t, config.EngineAccel, l.Engine())
	} else {
		assert.Equal(t, config.EngineReference, l.Engine())
	}
}

func TestNew_ProcessDefaultReference(t *testing.T) {
	t.Setenv("ACCEL_ENGINE", "reference")

	l, err := New(convParam(2, 3, 1, 0, true))
	require.NoError(t, err)
	assert.Equal(t, config.EngineReference, l.Engine())
}

func TestNew_InitializesLibrary(t *testing.T) {
	require.Equal(t, accel.StatusSuccess, accel.Deinitialize())
	t.Cleanup(func() { accel.Initialize() })

	_, err := New(poolParam(config.PoolMax, 2, 2, 0))
	require.NoError(t, err)
	assert.True(t, accel.Initialized())
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(config.LayerParameter{Name: "ip", Type: "InnerProduct", Engine: config.EngineReference})
	require.ErrorIs(t, err, ErrUnknownLayerType)
	assert.Contains(t, err.Error(), "InnerProduct")
}
