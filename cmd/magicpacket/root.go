package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fgeck/magicpacket/internal/config"
	"github.com/fgeck/magicpacket/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile string
	verbose    bool
	quiet      bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "magicpacket",
	Short: "Send Wake-on-LAN magic packets",
	Long: `magicpacket wakes a sleeping machine by broadcasting a Wake-on-LAN
magic packet over UDP (ports 0, 7 and 9).

Without --broadcast the packet is sent to the broadcast address of every
active, non-loopback network interface. Values not given as flags are read
from MAGICPACKET_* environment variables and then from configuration.yaml
or configuration.json in the working directory (or --config).

Exit codes: 0 success, 1 unhandled failure, 2 invalid configuration or
input, 3 timeout.`,
	Args: cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	RunE:         runWake,
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default ./configuration.{yaml,json} if present)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	flags.BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	flags.StringP("target", "t", "", "MAC address of the machine to wake")
	flags.StringP("broadcast", "b", "", "IPv4 broadcast address (default: every interface)")
	flags.StringP("password", "p", "", "SecureOn password, 8 or 12 hex digits")
	flags.Int("timeout", 0, "give up after this many milliseconds (0 waits forever)")
	flags.Int("parallel", 0, "number of broadcast addresses sent to at once")
	flags.String("metrics-file", "", "write Prometheus counters to this textfile after the run")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	})

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(interfacesCmd)
}

func setupLogging() {
	// Set output format
	if jsonOutput {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set log level
	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// loadConfig reads the configuration with cmd's flags taking precedence.
func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	parser := config.NewParser()
	if err := parser.BindFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	if used := parser.ConfigFileUsed(); used != "" {
		log.Debug().Str("file", used).Msg("configuration file loaded")
	}

	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
