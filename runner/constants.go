package runner

import "time"

const (
	// DefaultTailBytes is the output retained per run when no cap is configured
	DefaultTailBytes = 64 * 1024

	// DefaultParallelism runs iterations strictly sequentially
	DefaultParallelism = 1

	// killGracePeriod is how long a terminated child gets between SIGTERM and
	// SIGKILL before we stop being polite
	killGracePeriod = 2 * time.Second

	// MaxReasonableParallelism is where requested parallelism starts drawing a warning
	MaxReasonableParallelism = 64
)
