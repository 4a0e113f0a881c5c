package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/adapters/intake"
	"github.com/mikey/spam-dashboard/internal/allowlist"
	"github.com/mikey/spam-dashboard/internal/config"
	"github.com/mikey/spam-dashboard/internal/core"
)

// IntakeFactory creates the SMTP intake based on configuration
type IntakeFactory struct {
	cfg         *config.Config
	logger      *zap.Logger
	scanService *core.ScanService
}

// NewIntakeFactory creates a new intake factory
func NewIntakeFactory(cfg *config.Config, logger *zap.Logger, scanService *core.ScanService) *IntakeFactory {
	return &IntakeFactory{
		cfg:         cfg,
		logger:      logger,
		scanService: scanService,
	}
}

// CreateIntake returns the SMTP intake, or nil when it is disabled
func (f *IntakeFactory) CreateIntake() (*intake.SMTPIntake, error) {
	intakeCfg, err := f.cfg.GetIntake()
	if err != nil {
		return nil, fmt.Errorf("invalid intake configuration: %w", err)
	}
	if !intakeCfg.Enabled {
		return nil, nil
	}

	logger := f.logger.With(zap.String("component", "intake"))
	return intake.NewSMTPIntake(
		f.scanService,
		allowlist.NewChecker(intakeCfg.AllowedDomains, logger),
		intake.Config{
			ListenAddr:      intakeCfg.ListenAddress,
			Domain:          intakeCfg.Domain,
			ScanTimeout:     intakeCfg.ScanTimeout,
			MaxMessageBytes: intakeCfg.MaxMessageBytes,
		},
		logger,
	), nil
}
