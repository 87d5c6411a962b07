package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/mcmcgo/internal/config"
	"github.com/vk/mcmcgo/internal/ctxlog"
)

// App encapsulates the application's dependencies, configuration and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	model  *config.Model
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and the model
// declaration already loaded and translated.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) (*App, error) {
	logger := newLogger(appConfig, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, err := loader.Load(ctx, appConfig.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model declaration: %w", err)
	}
	logger.Debug("Model declaration loaded and translated into unified model.")

	return &App{
		outW:   outW,
		logger: logger,
		config: appConfig,
		model:  cfgModel,
	}, nil
}
