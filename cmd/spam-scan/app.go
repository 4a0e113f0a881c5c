package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/adapters/intake"
	"github.com/mikey/spam-dashboard/internal/core"
	"github.com/mikey/spam-dashboard/internal/di"
	"github.com/mikey/spam-dashboard/internal/history"
	"github.com/mikey/spam-dashboard/internal/preferences"
	"github.com/mikey/spam-dashboard/internal/utils"
)

// usageError is a malformed command line
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type app struct {
	flags   *di.CLIFlags
	in      io.Reader
	out     io.Writer
	client  core.ClassifierClient
	scanner *core.ScanService
	scans   *history.Store
	prefs   *preferences.Store
	text    *utils.TextProcessor
	logger  *zap.Logger
}

func (a *app) run(ctx context.Context) error {
	switch a.flags.Command {
	case "scan":
		return a.scan(ctx)
	case "metrics":
		return a.metrics(ctx)
	case "features":
		return a.features(ctx)
	case "history":
		return a.history(ctx)
	case "prefs":
		return a.preferences(ctx)
	}
	return usagef("unknown command %q", a.flags.Command)
}

func (a *app) scan(ctx context.Context) error {
	raw, err := a.readInput()
	if err != nil {
		return err
	}

	// Accept both raw messages and pasted text
	text, err := intake.ScanText(raw, a.text)
	if err != nil {
		a.logger.Debug("Input is not a message, scanning as plain text", zap.Error(err))
		text = a.text.SanitizeUTF8(string(raw))
	}

	result, err := a.scanner.Scan(ctx, core.ScanRequest{Text: text, Model: core.ModelType(a.flags.Model)}, core.SourceCLI)
	if err != nil {
		return err
	}

	if a.flags.JSONOutput {
		return a.printJSON(result)
	}

	fmt.Fprintf(a.out, "=== Results ===\n")
	fmt.Fprintf(a.out, "Model requested: %s\n", result.Model)
	for _, prediction := range result.Result.All() {
		fmt.Fprintf(a.out, "%-20s %-4s %6.2f%%\n", prediction.Model, prediction.Prediction, prediction.Confidence*100)
	}
	if result.Result.IsMulti() {
		fmt.Fprintf(a.out, "Models agree: %t\n", result.Result.Agreement)
	}
	return nil
}

func (a *app) readInput() ([]byte, error) {
	if a.flags.InputFile == "" {
		a.logger.Info("Reading email from stdin")
		return io.ReadAll(a.in)
	}

	file, err := os.Open(a.flags.InputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	a.logger.Info("Reading email from file", zap.String("file", a.flags.InputFile))
	return io.ReadAll(file)
}

func (a *app) metrics(ctx context.Context) error {
	snapshot, err := a.client.GetMetrics(ctx)
	if err != nil {
		return err
	}

	if a.flags.JSONOutput {
		return a.printJSON(snapshot)
	}

	models := snapshot.Models()
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(a.out, "%-20s %9s %9s %9s %9s\n", "MODEL", "ACCURACY", "PRECISION", "RECALL", "F1")
	for _, name := range names {
		m := models[name]
		fmt.Fprintf(a.out, "%-20s %9.4f %9.4f %9.4f %9.4f\n", name, m.Accuracy, m.Precision, m.Recall, m.F1)
	}

	totals := snapshot.Totals
	fmt.Fprintf(a.out, "\nScans: %d (spam %d, ham %d)\n", totals.Scans, totals.Spam, totals.Ham)
	fmt.Fprintf(a.out, "Spam rate: %.1f%%  Ham rate: %.1f%%\n", totals.SpamRate()*100, totals.HamRate()*100)
	fmt.Fprintf(a.out, "Average confidence: %.4f\n", totals.AvgConfidence)
	return nil
}

func (a *app) features(ctx context.Context) error {
	importance, err := a.client.GetFeatureImportance(ctx)
	if err != nil {
		return err
	}

	if a.flags.JSONOutput {
		return a.printJSON(importance)
	}

	fmt.Fprintf(a.out, "Model: %s\n", importance.Model)
	for i, feature := range importance.TopFeatures {
		fmt.Fprintf(a.out, "%3d. %-24s %8.4f\n", i+1, feature.Term, feature.Weight)
	}
	return nil
}

func (a *app) history(ctx context.Context) error {
	action := "list"
	if len(a.flags.Args) > 0 {
		action = a.flags.Args[0]
	}

	switch action {
	case "list":
		entries := a.scans.List(ctx)
		if a.flags.JSONOutput {
			return a.printJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(a.out, "No scans recorded")
			return nil
		}
		for _, entry := range entries {
			fmt.Fprintf(a.out, "%s  %-4s %6.2f%%  %-20s %s\n",
				entry.Timestamp, entry.Prediction, entry.Confidence*100, entry.Model, entry.Preview)
		}
		return nil
	case "export":
		_, err := fmt.Fprintln(a.out, a.scans.ExportCSV(ctx))
		return err
	case "clear":
		if err := a.scans.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Scan history cleared")
		return nil
	}
	return usagef("unknown history action %q", action)
}

func (a *app) preferences(ctx context.Context) error {
	action := "get"
	if len(a.flags.Args) > 0 {
		action = a.flags.Args[0]
	}

	var prefs core.Preferences
	switch action {
	case "get":
		prefs = a.prefs.Get(ctx)
	case "set":
		var update core.Preferences
		if len(a.flags.Args) < 2 {
			return usagef("prefs set needs at least one key=value")
		}
		for _, arg := range a.flags.Args[1:] {
			key, value, ok := strings.Cut(arg, "=")
			if !ok {
				return usagef("expected key=value, got %q", arg)
			}
			switch key {
			case "default_model":
				update.DefaultModel = core.ModelType(value)
			case "theme":
				update.Theme = core.Theme(value)
			default:
				return usagef("unknown preference %q", key)
			}
		}

		var err error
		if prefs, err = a.prefs.Update(ctx, update); err != nil {
			return err
		}
	default:
		return usagef("unknown prefs action %q", action)
	}

	if a.flags.JSONOutput {
		return a.printJSON(prefs)
	}
	fmt.Fprintf(a.out, "default_model=%s\ntheme=%s\n", prefs.DefaultModel, prefs.Theme)
	return nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
