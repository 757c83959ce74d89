// Package logger builds the zap logger shared by every component. The logger
// is constructed once in main and passed down explicitly.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a sugared zap logger. Debug mode switches to the development
// config (console encoding, DEBUG level).
func New(debug bool) (*zap.SugaredLogger, error) {
	var (
		zl  *zap.Logger
		err error
	)

	if debug {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("can't initialize zap logger: %w", err)
	}

	return zl.Sugar(), nil
}
