package main

import (
	"fmt"

	"github.com/fgeck/magicpacket/internal/config"
	"github.com/fgeck/magicpacket/internal/magicpacket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration without sending anything",
	Long:  `Resolve flags, environment and configuration file, validate the result and print a summary.`,
	Args:  cobra.NoArgs,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	req, err := config.ParseWake(cfg)
	if err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Target: %s\n", req.Target)
	if req.Broadcast.IsValid() {
		fmt.Printf("  Broadcast: %s\n", req.Broadcast)
	} else {
		fmt.Println("  Broadcast: all interfaces")
	}
	if req.Password != nil {
		fmt.Printf("  SecureOn password: (%d bytes)\n", len(req.Password))
	}
	fmt.Printf("  Frame size: %d bytes\n", len(magicpacket.Build(req.Target, req.Password)))
	if cfg.Wake.Timeout > 0 {
		fmt.Printf("  Timeout: %s\n", cfg.Wake.Timeout)
	} else {
		fmt.Println("  Timeout: none")
	}
	if cfg.Parallelism > 1 {
		fmt.Printf("  Parallel destinations: %d\n", cfg.Parallelism)
	}
	if cfg.MetricsFile != "" {
		fmt.Printf("  Metrics file: %s\n", cfg.MetricsFile)
	}

	return nil
}
