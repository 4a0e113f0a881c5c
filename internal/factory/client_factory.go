package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/adapters/api"
	"github.com/mikey/spam-dashboard/internal/config"
	"github.com/mikey/spam-dashboard/internal/core"
)

// ClientFactory creates the classification service client
type ClientFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClientFactory creates a new client factory
func NewClientFactory(cfg *config.Config, logger *zap.Logger) *ClientFactory {
	return &ClientFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifierClient creates a client for the configured service
func (f *ClientFactory) CreateClassifierClient() (core.ClassifierClient, error) {
	apiCfg, err := f.cfg.GetAPI()
	if err != nil {
		return nil, fmt.Errorf("invalid api configuration: %w", err)
	}

	client := api.NewClient(apiCfg.BaseURL, apiCfg.Timeout, f.logger)
	f.logger.Info("Using classification service",
		zap.String("base_url", client.BaseURL()),
		zap.Duration("timeout", apiCfg.Timeout))
	return client, nil
}
