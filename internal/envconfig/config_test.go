package envconfig

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"0":     slog.LevelInfo,
		"true":  slog.LevelDebug,
		"1":     slog.LevelDebug,
		"2":     slog.Level(-8),
	}

	for value, expected := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("ACCEL_DEBUG", value)
			assert.Equal(t, expected, LogLevel())
		})
	}
}

func TestNumThreads(t *testing.T) {
	cases := []struct {
		name                 string
		accel, openblas, omp string
		expected             uint
	}{
		{"default", "", "", "", 1},
		{"accel wins", "6", "4", "2", 6},
		{"openblas", "", "4", "2", 4},
		{"omp", "", "", "3", 3},
		{"zero skipped", "0", "", "5", 5},
		{"invalid skipped", "many", "2", "", 2},
		{"quoted", "\"8\"", "", "", 8},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ACCEL_NUM_THREADS", tt.accel)
			t.Setenv("OPENBLAS_NUM_THREADS", tt.openblas)
			t.Setenv("OMP_NUM_THREADS", tt.omp)
			assert.Equal(t, tt.expected, NumThreads())
		})
	}
}

func TestEngine(t *testing.T) {
	t.Setenv("ACCEL_ENGINE", " reference ")
	assert.Equal(t, "reference", Engine())
}

func TestValues(t *testing.T) {
	t.Setenv("ACCEL_NUM_THREADS", "4")
	vals := Values()
	assert.Equal(t, "4", vals["ACCEL_NUM_THREADS"])
	assert.Contains(t, vals, "OMP_NUM_THREADS")
}
