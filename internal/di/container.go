package di

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/adapters/httpapi"
	"github.com/mikey/spam-dashboard/internal/config"
	"github.com/mikey/spam-dashboard/internal/core"
	"github.com/mikey/spam-dashboard/internal/factory"
	"github.com/mikey/spam-dashboard/internal/history"
	"github.com/mikey/spam-dashboard/internal/logging"
	"github.com/mikey/spam-dashboard/internal/metrics"
	"github.com/mikey/spam-dashboard/internal/poller"
	"github.com/mikey/spam-dashboard/internal/ports"
	"github.com/mikey/spam-dashboard/internal/preferences"
	"github.com/mikey/spam-dashboard/internal/session"
	"github.com/mikey/spam-dashboard/internal/utils"
)

// Stores groups the two key-value backends
type Stores struct {
	dig.In

	Durable ports.Store `name:"durable"`
	Session ports.Store `name:"session"`
}

// Stop releases both backends
func (s Stores) Stop() {
	s.Durable.Stop()
	s.Session.Stop()
}

// BuildContainer creates and configures the dependency injection container
// of the dashboard daemon. ctx bounds the metrics poller.
func BuildContainer(ctx context.Context, configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.New(configFile)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideDomain(container); err != nil {
		return nil, err
	}

	// Register metrics registry
	if err := container.Provide(func() (prometheus.Gatherer, error) {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		return prometheus.DefaultGatherer, nil
	}); err != nil {
		return nil, err
	}

	// Register metrics poller
	if err := container.Provide(func(cfg *config.Config, client core.ClassifierClient, logger *zap.Logger) (*poller.Handle, error) {
		pollCfg, err := cfg.GetPoller()
		if err != nil {
			return nil, err
		}
		return poller.Start(ctx, client, poller.Config{
			Interval: pollCfg.Interval,
			Enabled:  pollCfg.Enabled,
		}, logger.With(zap.String("component", "poller"))), nil
	}); err != nil {
		return nil, err
	}

	// Register HTTP API
	if err := container.Provide(func(
		handle *poller.Handle,
		client core.ClassifierClient,
		scanService *core.ScanService,
		handoff *session.Handoff,
		scans *history.Store,
		prefs *preferences.Store,
		logger *zap.Logger,
	) *httpapi.Handler {
		return httpapi.NewHandler(handle, client, scanService, handoff, scans, prefs, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config, handler *httpapi.Handler, gatherer prometheus.Gatherer, logger *zap.Logger) *httpapi.Server {
		return httpapi.NewServer(handler, cfg.GetServer().ListenAddress, gatherer, logger.With(zap.String("component", "http")))
	}); err != nil {
		return nil, err
	}

	// Register listeners
	if err := container.Provide(factory.NewIntakeFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(server *httpapi.Server, f *factory.IntakeFactory) ([]ports.Service, error) {
		services := []ports.Service{server}
		smtpIntake, err := f.CreateIntake()
		if err != nil {
			return nil, err
		}
		if smtpIntake != nil {
			services = append(services, smtpIntake)
		}
		return services, nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideDomain registers the client, stores and services shared by the
// daemon and the CLI. Configuration and logger must already be provided.
func provideDomain(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewClientFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register classification client
	if err := container.Provide(func(f *factory.ClientFactory) (core.ClassifierClient, error) {
		return f.CreateClassifierClient()
	}); err != nil {
		return err
	}

	// Register key-value stores
	if err := container.Provide(func(f *factory.StoreFactory) (ports.Store, error) {
		return f.CreateDurableStore()
	}, dig.Name("durable")); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.StoreFactory) (ports.Store, error) {
		return f.CreateSessionStore()
	}, dig.Name("session")); err != nil {
		return err
	}

	// Register history, preferences and session handoff
	if err := container.Provide(func(stores Stores, logger *zap.Logger, tp *utils.TextProcessor) *history.Store {
		return history.NewStore(stores.Durable, logger.With(zap.String("component", "history")), tp)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(stores Stores, logger *zap.Logger) *preferences.Store {
		return preferences.NewStore(stores.Durable, logger)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(stores Stores, logger *zap.Logger) *session.Handoff {
		return session.NewHandoff(stores.Session, logger)
	}); err != nil {
		return err
	}

	// Register scan service
	if err := container.Provide(func(
		client core.ClassifierClient,
		scans *history.Store,
		prefs *preferences.Store,
		handoff *session.Handoff,
		logger *zap.Logger,
	) *core.ScanService {
		return core.NewScanService(client, scans, prefs, handoff, metrics.ObserveScan, logger)
	}); err != nil {
		return err
	}

	return nil
}
