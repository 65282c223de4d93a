package parallel

import (
	"log/slog"
	"sync"

	"github.com/born-ml/accel/internal/envconfig"
)

var (
	defaultMu   sync.Mutex
	defaultPool *Pool
)

// Default returns the process-wide pool, creating it on first use with
// envconfig.NumThreads workers.
func Default() *Pool {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultPool == nil {
		defaultPool = New(int(envconfig.NumThreads()))
		slog.Debug("created kernel thread pool", "threads", defaultPool.Size())
	}
	return defaultPool
}

// Shutdown releases the process-wide pool. The next Default call creates
// a new one.
func Shutdown() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultPool != nil {
		slog.Debug("destroyed kernel thread pool", "threads", defaultPool.Size())
		defaultPool = nil
	}
}
