package preferences

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/core"
)

const (
	// DefaultModelKey holds the preferred model choice
	DefaultModelKey = "defaultModel"
	// ThemeKey holds the preferred theme
	ThemeKey = "theme"
)

// Defaults used when nothing, or something unrecognised, is stored
const (
	FallbackModel = core.ModelBoth
	FallbackTheme = core.ThemeSystem
)

// Store persists user preferences as single named values
type Store struct {
	kv     core.KVStore
	logger *zap.Logger
}

// NewStore creates a preference store on top of kv
func NewStore(kv core.KVStore, logger *zap.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger,
	}
}

// DefaultModel returns the preferred model, or FallbackModel
func (s *Store) DefaultModel(ctx context.Context) core.ModelType {
	raw, ok := s.read(ctx, DefaultModelKey)
	if !ok {
		return FallbackModel
	}
	model := core.ModelType(raw)
	if !model.Valid() {
		s.logger.Warn("Ignoring unknown default model preference", zap.String("value", raw))
		return FallbackModel
	}
	return model
}

// SetDefaultModel stores the preferred model
func (s *Store) SetDefaultModel(ctx context.Context, model core.ModelType) error {
	if !model.Valid() {
		return &core.ValidationError{Field: "default_model", Message: "Model must be one of nb, lr, both"}
	}
	if err := s.kv.Write(ctx, DefaultModelKey, []byte(model)); err != nil {
		return fmt.Errorf("failed to save default model: %w", err)
	}
	return nil
}

// Theme returns the preferred theme, or FallbackTheme
func (s *Store) Theme(ctx context.Context) core.Theme {
	raw, ok := s.read(ctx, ThemeKey)
	if !ok {
		return FallbackTheme
	}
	theme := core.Theme(raw)
	if !theme.Valid() {
		s.logger.Warn("Ignoring unknown theme preference", zap.String("value", raw))
		return FallbackTheme
	}
	return theme
}

// SetTheme stores the preferred theme
func (s *Store) SetTheme(ctx context.Context, theme core.Theme) error {
	if !theme.Valid() {
		return &core.ValidationError{Field: "theme", Message: "Theme must be one of light, dark, system"}
	}
	if err := s.kv.Write(ctx, ThemeKey, []byte(theme)); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

// Get returns every preference
func (s *Store) Get(ctx context.Context) core.Preferences {
	return core.Preferences{
		DefaultModel: s.DefaultModel(ctx),
		Theme:        s.Theme(ctx),
	}
}

// Update applies the non-empty fields of prefs. Nothing is written unless
// every supplied field is valid.
func (s *Store) Update(ctx context.Context, prefs core.Preferences) (core.Preferences, error) {
	if prefs.DefaultModel != "" && !prefs.DefaultModel.Valid() {
		return core.Preferences{}, &core.ValidationError{Field: "default_model", Message: "Model must be one of nb, lr, both"}
	}
	if prefs.Theme != "" && !prefs.Theme.Valid() {
		return core.Preferences{}, &core.ValidationError{Field: "theme", Message: "Theme must be one of light, dark, system"}
	}

	if prefs.DefaultModel != "" {
		if err := s.SetDefaultModel(ctx, prefs.DefaultModel); err != nil {
			return core.Preferences{}, err
		}
	}
	if prefs.Theme != "" {
		if err := s.SetTheme(ctx, prefs.Theme); err != nil {
			return core.Preferences{}, err
		}
	}

	return s.Get(ctx), nil
}

func (s *Store) read(ctx context.Context, key string) (string, bool) {
	data, ok, err := s.kv.Read(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to read preference", zap.String("key", key), zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(string(data))
	return value, value != ""
}
