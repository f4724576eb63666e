package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/magicpacket/internal/config"
	"github.com/fgeck/magicpacket/internal/metrics"
	"github.com/fgeck/magicpacket/internal/services/wol"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runWake(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	log.Info().
		Str("target", cfg.Wake.MACAddress).
		Str("broadcast", cfg.Wake.BroadcastIP).
		Dur("timeout", cfg.Wake.Timeout).
		Msg("configuration loaded")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	collector := metrics.New()
	svc := wol.New(log.Logger, wol.WithRecorder(collector), wol.WithParallelism(cfg.Parallelism))
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close UDP socket")
		}
	}()

	result, err := svc.Wake(ctx, cfg.Wake)

	if cfg.MetricsFile != "" {
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn().Err(err).Str("file", cfg.MetricsFile).Msg("failed to write metrics")
		}
	}

	if err != nil {
		log.Error().Err(err).Str("outcome", string(result.Outcome)).Msg("wake failed")
		return err
	}

	log.Info().
		Int("targets", len(result.Targets)).
		Int("sent", result.DatagramsSent).
		Int("failed", len(result.Failures)).
		Msg("wake completed")
	return nil
}
