// Package config loads dress configuration from defaults, a yaml file,
// a .env file, DRESS_* environment variables and command-line flags.
package config

import (
	"errors"
	"slices"
	"strconv"

	"github.com/leapstack-labs/dress/pkg/adapter"
	"github.com/leapstack-labs/dress/pkg/core"
)

// Output formats accepted by the output key.
const (
	OutputAuto     = "auto"
	OutputTable    = "table"
	OutputMarkdown = "markdown"
	OutputJSON     = "json"
	OutputYAML     = "yaml"
)

var (
	errUnknownOutput = errors.New("must be one of auto, table, markdown, json, yaml")
	errPortRange     = errors.New("must be between 0 and 65535")
)

// OutputFormats lists every accepted output format.
var OutputFormats = []string{OutputAuto, OutputTable, OutputMarkdown, OutputJSON, OutputYAML}

// DatabaseConfig is the database section of dress.yaml.
type DatabaseConfig struct {
	Datasource string            `koanf:"datasource"` // Database/MySQL, Database/PostgreSQL, Database/SQLite3
	Host       string            `koanf:"host"`
	Port       int               `koanf:"port"`
	User       string            `koanf:"user"`
	Password   string            `koanf:"password"`
	Database   string            `koanf:"database"` // database name, or file path for SQLite
	Charset    string            `koanf:"charset"`
	Schema     string            `koanf:"schema"`
	Options    map[string]string `koanf:"options"`
}

// Config holds the resolved configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Verbose  bool           `koanf:"verbose"`
	Output   string         `koanf:"output"`

	// File is the config file that was read, or "" if none.
	File string `koanf:"-"`
}

// Adapter converts the database section into an adapter configuration.
// A missing datasource is a *adapter.ConfigurationError.
func (c *Config) Adapter() (core.AdapterConfig, error) {
	db := c.Database
	if db.Datasource == "" {
		return core.AdapterConfig{}, &adapter.ConfigurationError{Key: "database.datasource"}
	}
	return core.AdapterConfig{
		Type:     db.Datasource,
		Host:     db.Host,
		Port:     db.Port,
		Database: db.Database,
		Username: db.User,
		Password: db.Password,
		Charset:  db.Charset,
		Schema:   db.Schema,
		Options:  db.Options,
	}, nil
}

// Validate checks values that can be verified without a database.
func (c *Config) Validate() error {
	if !slices.Contains(OutputFormats, c.Output) {
		return &adapter.ConfigurationError{Key: "output", Value: c.Output, Err: errUnknownOutput}
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return &adapter.ConfigurationError{Key: "database.port", Value: strconv.Itoa(c.Database.Port), Err: errPortRange}
	}
	return nil
}
