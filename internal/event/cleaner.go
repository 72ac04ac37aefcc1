package event

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/config"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/logger"
)

// Callable is one piece of shutdown work: closing the ControlEndpoint's
// listener, deregistering from the controller via AgentLink, flushing the
// logger. cmd/agent registers one per long-lived resource it opens.
type Callable interface {
	Invoke(ctx context.Context) error
}

// Cleaner runs every registered Callable, in registration order, on the
// first SIGINT/SIGTERM this process receives (spec.md's agent-lifecycle
// "shutdown" path). It is a process-wide singleton rather than a value
// cmd/agent threads through every constructor, since signal.NotifyContext
// itself is a process-wide notification.
type Cleaner struct {
	cleaners       []Callable
	mu             sync.Mutex
	initOnce       sync.Once
	cleaning       bool
	loggerShutdown Callable
}

var cleanerInstance = &Cleaner{}

func NewCleaner() *Cleaner {
	return cleanerInstance
}

// Add registers callable to run on shutdown. A call arriving after
// shutdown has already started is dropped — by then nothing will ever
// run it, and the alternative (restart cleanup mid-shutdown) risks
// invoking a half-torn-down resource.
func (c *Cleaner) Add(callable Callable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cleaning {
		logger.Debug("Cleaner is already shutting down, ignoring new cleaner")
		return
	}
	c.cleaners = append(c.cleaners, callable)
}

// Init wires the signal handler exactly once; loggerShutdown runs last,
// after every other Callable, so log lines from the cleanup pass above
// are guaranteed to reach the sink before it closes.
func (c *Cleaner) Init(loggerShutdown Callable) {
	c.initOnce.Do(func() {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		c.loggerShutdown = loggerShutdown

		go func() {
			<-ctx.Done()
			stop()
			logger.Info("Received interrupt signal, shutting down")

			cfg, _ := config.GetConfig()

			c.mu.Lock()
			c.cleaning = true // blocks any further Add once shutdown starts
			cleanersCopy := make([]Callable, len(c.cleaners))
			copy(cleanersCopy, c.cleaners)
			c.mu.Unlock()

			logger.DebugF("Starting cleanup of %d registered functions", len(cleanersCopy))

			cleanupTimeout := time.Duration(cfg.CleanupTimeoutSeconds) * time.Second
			if cleanupTimeout <= 0 {
				cleanupTimeout = 10 * time.Second
			}

			var errs []error
			for i, callable := range cleanersCopy {
				func(idx int, c Callable) { // closes over idx/c per iteration, not the loop variable
					logger.DebugF("Invoking cleaner #%d (%T)", idx+1, c)
					timeoutCtx, cancelFunc := context.WithTimeout(context.Background(), cleanupTimeout)
					defer cancelFunc()
					if err := c.Invoke(timeoutCtx); err != nil {
						logger.ErrorF("Cleaner #%d (%T) failed: %v", idx+1, c, err)
						errs = append(errs, err)
					}
				}(i, callable)
			}

			if len(errs) > 0 {
				logger.ErrorF("%d errors occurred during cleanup:", len(errs))
				for i, err := range errs {
					logger.ErrorF("Error %d: %v", i+1, err)
				}
			} else {
				logger.Debug("All cleaners executed successfully")
			}
			logger.Info("Cleanup finished, agent offline")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := c.loggerShutdown.Invoke(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "LOGGER SHUTDOWN ERROR: %v\n", err)
			}
			syscall.Exit(0)
		}()
	})
}
