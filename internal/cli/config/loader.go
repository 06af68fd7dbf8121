package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the default config file name.
const ConfigFileName = "erdash.yaml"

// ConfigFileNameAlt is the alternate config file name.
const ConfigFileNameAlt = "erdash.yml"

// maxUpwardSearchLevels limits how far up the directory tree to search for
// a config file.
const maxUpwardSearchLevels = 10

var configFileUsed string

// findConfigFile picks the config file to use.
// Priority: explicit path > erdash.yaml > erdash.yml, searching upward.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load builds the Config from defaults, config file, ERDASH_ environment
// variables, and explicitly set flags, in increasing priority.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"schema":        DefaultSchema,
		"out_dir":       DefaultOutDir,
		"snapshot":      DefaultSnapshot,
		"port":          DefaultPort,
		"watch":         false,
		"workers":       0,
		"verbose":       false,
		"database.host": "localhost",
		"database.port": 5432,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// ERDASH_DATABASE__HOST -> database.host, ERDASH_SCHEMA -> schema
	if err := k.Load(env.Provider("ERDASH_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "ERDASH_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			// db flags map onto the nested database section
			if rest, ok := strings.CutPrefix(key, "db_"); ok {
				return "database." + rest, posflag.FlagVal(flags, f)
			}
			if key == "out" {
				return "out_dir", posflag.FlagVal(flags, f)
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

	if cfg.Database.Schema == "" {
		cfg.Database.Schema = cfg.Schema
	}

	cfg.Database.User = expandEnvVars(cfg.Database.User)
	cfg.Database.Password = expandEnvVars(cfg.Database.Password)
	cfg.Database.Host = expandEnvVars(cfg.Database.Host)
	cfg.Database.Database = expandEnvVars(cfg.Database.Database)

	return &cfg, nil
}

// FileUsed returns the path to the config file in effect, if any.
func FileUsed() string {
	return configFileUsed
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment variable values.
// Unset variables are left as-is so the failure is visible downstream.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}
