package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/core"
	"github.com/mikey/spam-dashboard/internal/di"
	"github.com/mikey/spam-dashboard/internal/history"
	"github.com/mikey/spam-dashboard/internal/preferences"
	"github.com/mikey/spam-dashboard/internal/utils"
)

func main() {
	flags, err := di.ParseFlags(os.Args[0], os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	err = container.Invoke(func(
		logger *zap.Logger,
		client core.ClassifierClient,
		scanner *core.ScanService,
		scans *history.Store,
		prefs *preferences.Store,
		tp *utils.TextProcessor,
		stores di.Stores,
	) error {
		defer logger.Sync()
		defer stores.Stop()

		a := &app{
			flags:   flags,
			in:      os.Stdin,
			out:     os.Stdout,
			client:  client,
			scanner: scanner,
			scans:   scans,
			prefs:   prefs,
			text:    tp,
			logger:  logger,
		}
		return a.run(ctx)
	})
	if err != nil {
		var usage *usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(os.Stderr, "%v\n", usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", core.ToUserMessage(err))
		os.Exit(1)
	}
}
