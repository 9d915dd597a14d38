// Package graceful coordinates orderly process shutdown.
package graceful

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vestra-invest/ledger-service/pkg/logger"
)

// Shutdowner is anything that can stop within a deadline
type Shutdowner interface {
	Shutdown(timeout time.Duration) error
}

// ShutdownFunc adapts a plain function to the Shutdowner interface
type ShutdownFunc func(timeout time.Duration) error

// Shutdown implements Shutdowner
func (f ShutdownFunc) Shutdown(timeout time.Duration) error {
	return f(timeout)
}

// ShutdownManager waits for termination signals and stops registered
// components in registration order.
type ShutdownManager struct {
	shutdowners []Shutdowner
	logger      *logger.Logger
}

// NewShutdownManager creates a shutdown manager
func NewShutdownManager(logger *logger.Logger) *ShutdownManager {
	return &ShutdownManager{
		shutdowners: make([]Shutdowner, 0),
		logger:      logger,
	}
}

// Register adds a component to stop on shutdown
func (sm *ShutdownManager) Register(s Shutdowner) {
	sm.shutdowners = append(sm.shutdowners, s)
}

// WaitForShutdown blocks until SIGINT/SIGTERM, then stops all components
func (sm *ShutdownManager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sm.logger.Info("Shutting down gracefully...")

	timeout := 30 * time.Second
	for _, s := range sm.shutdowners {
		if err := s.Shutdown(timeout); err != nil {
			sm.logger.Warn("Component shutdown error", "error", err)
		}
	}

	sm.logger.Info("Shutdown complete")
}
