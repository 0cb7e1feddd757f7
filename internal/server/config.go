package server

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration.
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Draft  DraftSettings  `hcl:"draft,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
}

// DraftSettings contains draft-engine configuration shared by every session.
type DraftSettings struct {
	// CardDatabase is the path of the JSON card database file.
	CardDatabase string `hcl:"card_database"`
	// ArchiveDir receives one JSON draft log per completed draft. Empty
	// disables archiving.
	ArchiveDir string `hcl:"archive_dir,optional"`
	// GraceSeconds is how long a disconnected seat is held before the owner
	// is told it can be replaced.
	GraceSeconds int `hcl:"grace_seconds,optional"`
	// Oracle selects the bot pick strategy: "greedy" or "random".
	Oracle string `hcl:"oracle,optional"`
	// Seed fixes the server RNG stream; zero seeds from the clock.
	Seed int64 `hcl:"seed,optional"`
}

// DefaultServerConfig returns default server configuration.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
			LogFile:  "packdraft-server.log",
		},
		Draft: DraftSettings{
			CardDatabase: "cards.json",
			GraceSeconds: 60,
			Oracle:       "greedy",
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.LogFile == "" {
		config.Server.LogFile = "packdraft-server.log"
	}
	if config.Draft.CardDatabase == "" {
		config.Draft.CardDatabase = "cards.json"
	}
	if config.Draft.GraceSeconds == 0 {
		config.Draft.GraceSeconds = 60
	}
	if config.Draft.Oracle == "" {
		config.Draft.Oracle = "greedy"
	}

	return &config, nil
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}
	if c.Draft.CardDatabase == "" {
		return fmt.Errorf("card database path must be set")
	}
	if c.Draft.GraceSeconds < 0 {
		return fmt.Errorf("grace window must not be negative")
	}
	switch c.Draft.Oracle {
	case "greedy", "random":
	default:
		return fmt.Errorf("invalid oracle: %s", c.Draft.Oracle)
	}
	return nil
}

// GetServerAddress returns the full server address.
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GraceWindow returns the configured grace window as a duration.
func (c *ServerConfig) GraceWindow() time.Duration {
	return time.Duration(c.Draft.GraceSeconds) * time.Second
}
