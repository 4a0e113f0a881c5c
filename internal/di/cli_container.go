package di

import (
	"flag"
	"fmt"
	"io"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/config"
	"github.com/mikey/spam-dashboard/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Classification flags
	APIURL string
	Model  string

	// Storage flags
	DurableStore string
	SQLitePath   string

	// Input and output flags
	InputFile  string
	JSONOutput bool
	Verbose    bool
	JSONLog    bool
	ConfigFile string

	// Command and its arguments
	Command string
	Args    []string
}

// ParseFlags parses command line arguments into a CLIFlags struct. The
// first positional argument names the command and defaults to "scan".
func ParseFlags(name string, args []string, output io.Writer) (*CLIFlags, error) {
	flags := &CLIFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&flags.APIURL, "api-url", "", "Classification service base URL (overrides config)")
	fs.StringVar(&flags.Model, "model", "", "Model to scan with: nb, lr or both (default: stored preference)")

	fs.StringVar(&flags.DurableStore, "store", "", "Durable store type: memory, sqlite, mysql or redis (overrides config)")
	fs.StringVar(&flags.SQLitePath, "sqlite-path", "", "SQLite database path (overrides config)")

	fs.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	fs.BoolVar(&flags.JSONOutput, "json", false, "Print results as JSON")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: %s [flags] <command> [args]\n\n", name)
		fmt.Fprintln(output, "Commands:")
		fmt.Fprintln(output, "  scan                      classify an email from -file or stdin (default)")
		fmt.Fprintln(output, "  metrics                   print the classification service metrics")
		fmt.Fprintln(output, "  features                  print the top weighted terms")
		fmt.Fprintln(output, "  history [list|export|clear]")
		fmt.Fprintln(output, "  prefs [get|set key=value ...]")
		fmt.Fprintln(output, "\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rest := fs.Args()
	flags.Command = "scan"
	if len(rest) > 0 {
		flags.Command = rest[0]
		flags.Args = rest[1:]
	}
	return flags, nil
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.New(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideDomain(container); err != nil {
		return nil, err
	}

	return container, nil
}

// applyFlags overrides configuration with explicitly set flags
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	if flags.APIURL != "" {
		cfg.Set("api.base_url", flags.APIURL)
	}
	if flags.DurableStore != "" {
		cfg.Set("store.durable.type", flags.DurableStore)
	}
	if flags.SQLitePath != "" {
		cfg.Set("store.durable.sqlite_path", flags.SQLitePath)
	}

	// A one-shot process has nothing to sweep
	if cfg.GetString("store.session.type") == "memory" {
		cfg.Set("store.session.cleanup_frequency", "0s")
	}
}
