// Package config loads chaincode runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Config controls how the chaincode process runs.
type Config struct {
	// ServerAddress switches to chaincode-as-a-service mode when set.
	ServerAddress string `env:"CHAINCODE_SERVER_ADDRESS"`
	ChaincodeID   string `env:"CHAINCODE_ID"`

	TLSDisabled     bool   `env:"CHAINCODE_TLS_DISABLED" envDefault:"true"`
	TLSKeyFile      string `env:"CHAINCODE_TLS_KEY_FILE"`
	TLSCertFile     string `env:"CHAINCODE_TLS_CERT_FILE"`
	TLSClientCAFile string `env:"CHAINCODE_TLS_CLIENT_CA_FILE"`

	LogSpec        string `env:"BADGE_LOG_SPEC" envDefault:"info"`
	MetricsAddress string `env:"BADGE_METRICS_ADDRESS"`
}

// TLSMaterial is the PEM content referenced by the TLS file settings.
type TLSMaterial struct {
	Key          []byte
	Cert         []byte
	ClientCACert []byte
}

// Load parses and validates the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ServerMode reports whether the chaincode should listen for the peer instead
// of dialing it.
func (c Config) ServerMode() bool {
	return c.ServerAddress != ""
}

// Validate checks setting combinations.
func (c Config) Validate() error {
	if !c.ServerMode() {
		return nil
	}
	if c.ChaincodeID == "" {
		return errors.New("CHAINCODE_ID is required when CHAINCODE_SERVER_ADDRESS is set")
	}
	if !c.TLSDisabled && (c.TLSKeyFile == "" || c.TLSCertFile == "") {
		return errors.New("CHAINCODE_TLS_KEY_FILE and CHAINCODE_TLS_CERT_FILE are required when TLS is enabled")
	}
	return nil
}

// LoadTLSMaterial reads the configured key, certificate and optional client CA.
func (c Config) LoadTLSMaterial() (TLSMaterial, error) {
	var m TLSMaterial
	if c.TLSDisabled {
		return m, nil
	}
	var err error
	if m.Key, err = os.ReadFile(c.TLSKeyFile); err != nil {
		return TLSMaterial{}, fmt.Errorf("read TLS key: %w", err)
	}
	if m.Cert, err = os.ReadFile(c.TLSCertFile); err != nil {
		return TLSMaterial{}, fmt.Errorf("read TLS certificate: %w", err)
	}
	if c.TLSClientCAFile != "" {
		if m.ClientCACert, err = os.ReadFile(c.TLSClientCAFile); err != nil {
			return TLSMaterial{}, fmt.Errorf("read TLS client CA: %w", err)
		}
	}
	return m, nil
}
