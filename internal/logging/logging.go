// Package logging builds the zap loggers used across slidecheck.
package logging

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger, or a console logger when
// development is set, at the given level.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Truncate shortens s to at most width display cells, marking the cut with
// an ellipsis. Wide characters count as two cells.
func Truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

// Text is a zap field holding s truncated to width display cells.
func Text(key, s string, width int) zap.Field {
	return zap.String(key, Truncate(s, width))
}
