// Package config provides configuration file parsing.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/fgeck/magicpacket/internal/magicpacket"
	"github.com/fgeck/magicpacket/internal/models"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultConfigName is the file looked up in the working directory when no
// explicit path is given, with any extension viper supports.
const DefaultConfigName = "configuration"

// ErrInvalidConfig is returned for configuration values that cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Flag names bound to configuration keys.
var flagKeys = map[string]string{
	"target":       "target",
	"broadcast":    "broadcast",
	"password":     "password",
	"timeout":      "timeout",
	"parallel":     "parallel",
	"metrics-file": "metrics_file",
}

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser. Every key can also be set
// through a MAGICPACKET_ prefixed environment variable.
func NewParser() *Parser {
	v := viper.New()
	v.SetEnvPrefix("MAGICPACKET")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &Parser{v: v}
}

// BindFlags makes command line flags take precedence over the file and
// environment. Flags missing from fs are ignored.
func (p *Parser) BindFlags(fs *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := p.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// LoadFile loads configuration from a file path. An empty path looks for
// DefaultConfigName in the working directory, which may be absent.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	if path != "" {
		p.v.SetConfigFile(path)
		if err := p.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return p.parse()
	}

	p.v.SetConfigName(DefaultConfigName)
	p.v.AddConfigPath(".")
	if err := p.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return p.parse()
}

// LoadReader loads YAML configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	p.v.SetConfigType("yaml")
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

// ConfigFileUsed returns the path of the file that was read, if any.
func (p *Parser) ConfigFileUsed() string {
	return p.v.ConfigFileUsed()
}

func (p *Parser) parse() (*models.Config, error) {
	timeoutMS, err := p.nonNegativeInt("timeout")
	if err != nil {
		return nil, err
	}

	parallel, err := p.nonNegativeInt("parallel")
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Wake: models.WakeConfig{
			MACAddress:  strings.TrimSpace(p.v.GetString("target")),
			BroadcastIP: strings.TrimSpace(p.v.GetString("broadcast")),
			Password:    p.expandEnv(p.v.GetString("password")),
			Timeout:     time.Duration(timeoutMS) * time.Millisecond,
		},
		Parallelism: parallel,
		MetricsFile: p.expandEnv(p.v.GetString("metrics_file")),
	}

	return cfg, nil
}

func (p *Parser) nonNegativeInt(key string) (int, error) {
	raw := p.v.Get(key)
	if raw == nil {
		return 0, nil
	}

	n, err := cast.ToIntE(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %v", ErrInvalidConfig, key, raw)
	}

	return n, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// WakeRequest holds the parsed values of a validated configuration.
type WakeRequest struct {
	Target    magicpacket.MAC
	Password  magicpacket.Password
	Broadcast netip.Addr // zero value broadcasts on every interface
}

// ParseWake validates cfg and returns its parsed wake values. Errors wrap
// magicpacket.ErrMissingValue, magicpacket.ErrInvalidFormat or
// ErrInvalidConfig.
func ParseWake(cfg *models.Config) (*WakeRequest, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration is nil", ErrInvalidConfig)
	}

	mac, err := magicpacket.ParseMAC(cfg.Wake.MACAddress)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	pw, err := magicpacket.ParsePassword(cfg.Wake.Password)
	if err != nil {
		return nil, fmt.Errorf("password: %w", err)
	}

	req := &WakeRequest{Target: mac, Password: pw}
	if cfg.Wake.BroadcastIP != "" {
		req.Broadcast, err = magicpacket.ParseBroadcast(cfg.Wake.BroadcastIP)
		if err != nil {
			return nil, fmt.Errorf("broadcast: %w", err)
		}
	}

	if cfg.Wake.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}

	return req, nil
}

// Validate checks that the loaded configuration describes a sendable wake
// request.
func Validate(cfg *models.Config) error {
	_, err := ParseWake(cfg)
	return err
}
