// Package config loads the driver configuration: where the compiler jars
// live, where output goes, and how results are archived.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} placeholders in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ErrConfigFileNotFound is returned by Load when the config file does not exist.
var ErrConfigFileNotFound = errors.New("config file not found")

// Config is the top-level dexbench configuration.
type Config struct {
	JavaPath string          `yaml:"java_path"`
	OutDir   string          `yaml:"out_dir"`
	DBPath   string          `yaml:"db_path"`
	Jars     map[string]Jars `yaml:"jars"` // keyed by tool: "d8", "r8"
	Archive  ArchiveConfig   `yaml:"archive"`
}

// Jars locates the two build variants of one tool.
type Jars struct {
	Full string `yaml:"full"`
	Lib  string `yaml:"lib"`
}

// ArchiveConfig configures where search results are persisted.
// When Endpoint is empty, Dir selects a local directory tree.
type ArchiveConfig struct {
	Dir          string `yaml:"dir,omitempty"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	Bucket       string `yaml:"bucket,omitempty"`
	AccessKeyEnv string `yaml:"access_key_env,omitempty"`
	SecretKeyEnv string `yaml:"secret_key_env,omitempty"`
	UseSSL       bool   `yaml:"use_ssl,omitempty"`
}

// Jar resolves the jar path for a tool and build variant.
func (c *Config) Jar(tool, build string) (string, error) {
	jars, ok := c.Jars[tool]
	if !ok {
		return "", fmt.Errorf("no jars configured for tool %q", tool)
	}
	var jar string
	switch build {
	case "full":
		jar = jars.Full
	case "lib":
		jar = jars.Lib
	default:
		return "", fmt.Errorf("unknown tool build %q", build)
	}
	if jar == "" {
		return "", fmt.Errorf("no %s/%s jar configured", tool, build)
	}
	return jar, nil
}

// Load reads and validates a config file. ${VAR} placeholders are
// expanded from the environment before parsing; unset variables expand
// to the empty string.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	expanded := envVarPattern.ReplaceAllStringFunc(string(raw), func(m string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(m)[1])
	})

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the configuration used when no file is given:
// jars under ./build/libs, output under ./build, no archive backend.
func DefaultConfig() *Config {
	return &Config{
		JavaPath: "java",
		OutDir:   "build",
		Jars: map[string]Jars{
			"d8": {Full: "build/libs/d8.jar", Lib: "build/libs/r8lib-d8.jar"},
			"r8": {Full: "build/libs/r8.jar", Lib: "build/libs/r8lib.jar"},
		},
	}
}

// Validate rejects configurations the driver cannot act on.
func (c *Config) Validate() error {
	if c.OutDir == "" {
		return fmt.Errorf("out_dir must not be empty")
	}
	for tool := range c.Jars {
		if tool != "d8" && tool != "r8" {
			return fmt.Errorf("unknown tool %q in jars", tool)
		}
	}
	a := c.Archive
	if a.Endpoint != "" && a.Bucket == "" {
		return fmt.Errorf("archive.bucket is required with archive.endpoint")
	}
	if a.Endpoint != "" && a.Dir != "" {
		return fmt.Errorf("archive.endpoint and archive.dir are mutually exclusive")
	}
	return nil
}
