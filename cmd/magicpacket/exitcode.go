package main

import (
	"context"
	"errors"

	"github.com/fgeck/magicpacket/internal/config"
	"github.com/fgeck/magicpacket/internal/magicpacket"
)

// Process exit codes.
const (
	exitOK           = 0
	exitFailure      = 1
	exitInvalidInput = 2
	exitTimeout      = 3
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.DeadlineExceeded):
		return exitTimeout
	case errors.Is(err, magicpacket.ErrMissingValue),
		errors.Is(err, magicpacket.ErrInvalidFormat),
		errors.Is(err, config.ErrInvalidConfig):
		return exitInvalidInput
	default:
		return exitFailure
	}
}
