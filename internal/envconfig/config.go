// Package envconfig reads process settings from the environment.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// LogLevel returns the log level.
// Configurable via ACCEL_DEBUG: 0/false = INFO (default), 1/true = DEBUG, 2 = TRACE.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("ACCEL_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Engine returns the engine layers use when their configuration says
// "default". Configurable via ACCEL_ENGINE; empty means accel.
var Engine = String("ACCEL_ENGINE")

// threadVars are consulted in order by NumThreads. The math-library
// variables come after our own so that an explicit setting wins.
var threadVars = []string{"ACCEL_NUM_THREADS", "OPENBLAS_NUM_THREADS", "OMP_NUM_THREADS"}

// NumThreads returns the size of the process-wide kernel thread pool.
// The first valid positive value among ACCEL_NUM_THREADS,
// OPENBLAS_NUM_THREADS and OMP_NUM_THREADS is used; the default is 1.
func NumThreads() uint {
	for _, key := range threadVars {
		if n := Uint(key, 0)(); n > 0 {
			return n
		}
	}
	return 1
}

// Var returns an environment variable stripped of surrounding whitespace and quotes.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// String returns a getter for a string variable.
func String(key string) func() string {
	return func() string {
		return Var(key)
	}
}

// Uint returns a getter for an unsigned variable with a default.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// EnvVar describes one setting for display.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every setting with its current value.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"ACCEL_DEBUG":          {"ACCEL_DEBUG", LogLevel(), "Show additional debug information (1 = debug, 2 = trace)"},
		"ACCEL_ENGINE":         {"ACCEL_ENGINE", Engine(), "Engine for layers configured as default (accel, reference)"},
		"ACCEL_NUM_THREADS":    {"ACCEL_NUM_THREADS", Var("ACCEL_NUM_THREADS"), "Kernel thread pool size"},
		"OPENBLAS_NUM_THREADS": {"OPENBLAS_NUM_THREADS", Var("OPENBLAS_NUM_THREADS"), "Math library thread count, used when ACCEL_NUM_THREADS is unset"},
		"OMP_NUM_THREADS":      {"OMP_NUM_THREADS", Var("OMP_NUM_THREADS"), "OpenMP thread count, used as the last fallback"},
	}
}

// Values returns every setting formatted as a string.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
