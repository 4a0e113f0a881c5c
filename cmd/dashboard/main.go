package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/di"
	"github.com/mikey/spam-dashboard/internal/poller"
	"github.com/mikey/spam-dashboard/internal/ports"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the dependency injection container
	container, err := di.BuildContainer(ctx, *configFile)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(func(logger *zap.Logger, services []ports.Service, handle *poller.Handle, stores di.Stores) error {
		return run(ctx, logger, services, handle, stores)
	}); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	ctx context.Context,
	logger *zap.Logger,
	services []ports.Service,
	handle *poller.Handle,
	stores di.Stores,
) error {
	defer logger.Sync()
	defer stores.Stop()

	// Start the listeners
	started := make([]ports.Service, 0, len(services))
	for _, svc := range services {
		if err := svc.Start(); err != nil {
			logger.Error("Failed to start service", zap.Error(err))
			stopAll(logger, started)
			handle.Stop()
			return err
		}
		started = append(started, svc)
	}

	logger.Info("Dashboard running",
		zap.Int("services", len(started)),
		zap.String("poller", handle.Status().String()))

	// Handle graceful shutdown
	<-ctx.Done()
	logger.Info("Shutting down...")

	stopAll(logger, started)

	handle.Stop()
	handle.Wait()

	logger.Info("Shutdown complete")
	return nil
}

// stopAll stops services in reverse start order
func stopAll(logger *zap.Logger, services []ports.Service) {
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(); err != nil {
			logger.Error("Failed to stop service", zap.Error(err))
		}
	}
}
