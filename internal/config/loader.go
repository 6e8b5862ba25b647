package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names searched in the working directory, in order.
const (
	ConfigFileName    = "dress.yaml"
	ConfigFileNameAlt = "dress.yml"
)

// EnvFileName is the dotenv file read before environment variables.
const EnvFileName = ".env"

// EnvPrefix prefixes every environment variable read as configuration.
const EnvPrefix = "DRESS_"

// DefaultOutput is the output format used when none is configured.
const DefaultOutput = OutputAuto

// flagKeys maps flag names to config keys. Flags not listed here and not
// matching a top-level key are ignored.
var flagKeys = map[string]string{
	"datasource": "database.datasource",
	"host":       "database.host",
	"port":       "database.port",
	"user":       "database.user",
	"password":   "database.password",
	"database":   "database.database",
	"charset":    "database.charset",
	"schema":     "database.schema",
	"verbose":    "verbose",
	"output":     "output",
}

// findConfigFile returns the config file to use.
// Priority: explicit path > dress.yaml > dress.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load resolves configuration with precedence (lowest to highest):
// defaults, config file, .env, DRESS_* environment variables, flags.
// Only flags that were explicitly set override lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"verbose": false,
		"output":  DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. .env next to the config file (or in the working directory).
	// godotenv never overrides variables already set in the environment.
	if err := loadDotEnv(envFileFor(used)); err != nil {
		return nil, err
	}

	// 4. Environment variables
	// Transform: DRESS_DATABASE_HOST -> database.host
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	expandDatabaseEnvVars(&cfg.Database)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envFileFor(cfgFile string) string {
	if cfgFile == "" {
		return EnvFileName
	}
	return filepath.Join(filepath.Dir(cfgFile), EnvFileName)
}

// loadDotEnv loads path into the process environment. A missing file is not
// an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("error reading %s: %w", path, err)
}

// envKey maps an environment variable name to a config key.
// DRESS_DATABASE_OPTIONS_SSLMODE becomes database.options.sslmode.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	rest, ok := strings.CutPrefix(key, "database_")
	if !ok {
		return key
	}
	if opt, ok := strings.CutPrefix(rest, "options_"); ok {
		return "database.options." + opt
	}
	return "database." + rest
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
// Unset variables are left as-is.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

// expandDatabaseEnvVars expands environment variables in connection fields.
func expandDatabaseEnvVars(db *DatabaseConfig) {
	db.Password = expandEnvVars(db.Password)
	db.User = expandEnvVars(db.User)
	db.Host = expandEnvVars(db.Host)
	db.Database = expandEnvVars(db.Database)
}
