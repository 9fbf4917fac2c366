// Package hostevents subscribes to the pipeline runtime's execution
// event socket. The events are advisory: they warm the tracker with
// execution-order hints and trigger stale-record eviction at round
// boundaries. Attribution works without them, just with less context.
package hostevents

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/prompttrace/internal/ctxlog"
)

const connectTimeout = 15 * time.Second

// Tracker receives the hints extracted from host events.
type Tracker interface {
	EvictStale(maxAge time.Duration) int
	RegisterConnection(fromID, toID string)
}

// Config describes the socket endpoint to subscribe to.
type Config struct {
	URL                string
	Namespace          string
	Staleness          time.Duration
	InsecureSkipVerify bool
}

// Listener holds a connected socket and the per-round execution chain.
type Listener struct {
	cfg     Config
	tracker Tracker
	logger  *slog.Logger
	io      *socket.Socket

	mu       sync.Mutex
	lastNode string
}

// Connect dials the host's event socket and subscribes to execution
// events. It blocks until the connection is established or fails.
func Connect(ctx context.Context, cfg Config, tracker Tracker) (*Listener, error) {
	logger := ctxlog.FromContext(ctx).With("component", "hostevents", "url", cfg.URL)
	logger.Info("connecting to host event socket")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse host events URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("connected to host event socket", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connectChan <- connectError(errs...)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("host event socket connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while connecting to host event socket")
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s connecting to host event socket", connectTimeout)
	}

	l := &Listener{cfg: cfg, tracker: tracker, logger: logger, io: io}
	io.On(types.EventName("execution_start"), func(args ...any) {
		l.handleExecutionStart(args...)
	})
	io.On(types.EventName("executing"), func(args ...any) {
		l.handleExecuting(args...)
	})
	io.On(types.EventName("disconnect"), func(...any) {
		logger.Warn("host event socket disconnected")
	})
	return l, nil
}

// Close disconnects the socket. The tracker keeps whatever hints were
// already delivered.
func (l *Listener) Close() {
	if l.io != nil {
		l.io.Disconnect()
	}
	l.logger.Info("host event socket closed")
}

// handleExecutionStart marks a round boundary: stale records from the
// previous round are evicted and the execution chain restarts.
func (l *Listener) handleExecutionStart(args ...any) {
	evicted := l.tracker.EvictStale(l.cfg.Staleness)
	l.mu.Lock()
	l.lastNode = ""
	l.mu.Unlock()
	l.logger.Debug("execution round started", "evicted", evicted)
}

// handleExecuting chains consecutive executing events into connection
// hints. A null node marks the end of the round.
func (l *Listener) handleExecuting(args ...any) {
	nodeID, ok := executingNode(args...)
	l.mu.Lock()
	prev := l.lastNode
	if ok {
		l.lastNode = nodeID
	} else {
		l.lastNode = ""
	}
	l.mu.Unlock()

	if !ok {
		return
	}
	if prev != "" && prev != nodeID {
		l.tracker.RegisterConnection(prev, nodeID)
		l.logger.Debug("registered execution hint", "from", prev, "to", nodeID)
	}
}
