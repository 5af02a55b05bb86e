package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const defaultShutdownTimeout = 30 * time.Second

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

type namedFunc struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager stops HTTP servers and then releases resources in reverse
// registration order, all under one deadline.
type ShutdownManager struct {
	logger  *Logger
	timeout time.Duration

	mu      sync.Mutex
	servers []namedServer
	funcs   []namedFunc
}

type namedServer struct {
	name   string
	server *http.Server
}

// NewShutdownManager creates a new shutdown manager. A zero timeout selects 30s.
func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &ShutdownManager{
		logger:  logger,
		timeout: timeout,
	}
}

// RegisterServer adds a server drained at the start of shutdown
func (sm *ShutdownManager) RegisterServer(name string, server *http.Server) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.servers = append(sm.servers, namedServer{name: name, server: server})
}

// RegisterShutdownFunc registers a function to call once the servers are stopped
func (sm *ShutdownManager) RegisterShutdownFunc(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.funcs = append(sm.funcs, namedFunc{name: name, fn: fn})
}

// Shutdown drains servers concurrently, then runs the shutdown functions last
// registered first. Every step runs even if an earlier one failed; the errors
// are joined.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sm.timeout)
	defer cancel()

	sm.mu.Lock()
	servers := append([]namedServer(nil), sm.servers...)
	funcs := append([]namedFunc(nil), sm.funcs...)
	sm.mu.Unlock()

	var (
		wg   sync.WaitGroup
		errM sync.Mutex
		errs []error
	)
	for _, s := range servers {
		wg.Add(1)
		go func(s namedServer) {
			defer wg.Done()
			sm.logger.WithField("server", s.name).Info("Shutting down HTTP server")
			if err := s.server.Shutdown(ctx); err != nil {
				sm.logger.WithField("server", s.name).WithError(err).Error("HTTP server shutdown failed")
				errM.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
				errM.Unlock()
			}
		}(s)
	}
	wg.Wait()

	for i := len(funcs) - 1; i >= 0; i-- {
		f := funcs[i]
		if err := f.fn(ctx); err != nil {
			sm.logger.WithField("component", f.name).WithError(err).Error("Shutdown step failed")
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		sm.logger.WithField("component", f.name).Debug("Shutdown step complete")
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	sm.logger.Info("Graceful shutdown complete")
	return nil
}
