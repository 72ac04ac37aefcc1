// Command agent runs one test-harness agent process (spec.md §6.3):
// it registers with a test-orchestration controller, serves the
// control-plane RPC endpoint, and bridges the resulting MQTT sessions
// back to that controller until told to shut down.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"syscall"

	"os/signal"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/config"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/event"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/link"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/logger"
)

const usage = "usage: agent AGENT_ID [PORT [HOST ...]]"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	agentID, port, hosts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	if _, err := config.ReadConfig(); err != nil {
		slog.Warn("reading agent.json", "error", err)
	}
	loggerShutdown := logger.Init()
	defer func() { _ = loggerShutdown.Invoke(context.Background()) }()

	cleaner := event.NewCleaner()
	cleaner.Init(loggerShutdown)

	// SIGINT/SIGTERM are handled by Cleaner's own signal path above (it
	// drains registered Callables, then exits 0). SIGQUIT instead feeds
	// AgentLink's own cooperative "local signal" shutdown so an
	// in-flight RPC gets a graceful GracefulStop rather than a hard exit.
	ctx, stopQuit := signal.NotifyContext(context.Background(), syscall.SIGQUIT)
	defer stopQuit()

	l, err := link.Bootstrap(ctx, agentID, hosts, port)
	if err != nil {
		logger.FatalF("bootstrap failed: %v", err)
		return 2
	}
	cleaner.Add(linkCallable{l})

	reason := l.HandleRequests(ctx)
	logger.InfoF("agent %s shutting down: %s", l.AgentID(), reason)
	l.Shutdown(reason)
	return 0
}

// linkCallable adapts *link.Link onto event.Callable so it can be
// registered with the shutdown Cleaner.
type linkCallable struct{ link *link.Link }

func (c linkCallable) Invoke(context.Context) error {
	c.link.Shutdown("signal received")
	return nil
}

// parseArgs implements spec.md §6.3's CLI grammar:
// agent_program AGENT_ID [PORT [HOST ...]].
func parseArgs(args []string) (agentID string, port int32, hosts []string, err error) {
	if len(args) < 1 {
		return "", 0, nil, fmt.Errorf("AGENT_ID is required")
	}
	agentID = args[0]
	if agentID == "" {
		return "", 0, nil, fmt.Errorf("AGENT_ID must not be empty")
	}

	port = 47619
	if len(args) >= 2 {
		p, perr := strconv.Atoi(args[1])
		if perr != nil || p < 1 || p > 65535 {
			return "", 0, nil, fmt.Errorf("PORT must be an integer 1..65535, got %q", args[1])
		}
		port = int32(p)
	}

	hosts = []string{"127.0.0.1"}
	if len(args) >= 3 {
		hosts = args[2:]
	}
	return agentID, port, hosts, nil
}
