// Package config stores default connection settings under the tool's
// home directory. Flags always override the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Stock defaults match a fresh BloodHound/Exegol deployment. The default
// password is a well-known value and must be overridden for any
// production database.
const (
	DefaultTarget   = "bolt://localhost:7687"
	DefaultUsername = "neo4j"
	DefaultPassword = "exegol4thewin"
)

const fileName = "config.yaml"

// Config holds the Neo4j connection settings.
type Config struct {
	Target   string `yaml:"target"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns the stock connection settings.
func Default() Config {
	return Config{
		Target:   DefaultTarget,
		Username: DefaultUsername,
		Password: DefaultPassword,
	}
}

// Home returns the config directory, respecting BLOODOWNED_HOME.
func Home() string {
	if h := os.Getenv("BLOODOWNED_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".bloodowned")
	}
	return filepath.Join(home, ".bloodowned")
}

// Init creates the home directory with a default config file.
func Init(home string, force bool) error {
	path := filepath.Join(home, fileName)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(home, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}
	return Default().Save(home)
}

// Load reads the config file under home. A missing file is not an
// error; it yields the defaults. Missing fields are filled from
// defaults so a partial file stays valid.
func Load(home string) (Config, error) {
	data, err := os.ReadFile(filepath.Join(home, fileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("cannot read config at %s: %w", filepath.Join(home, fileName), err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", fileName, err)
	}
	return cfg, nil
}

// Save writes the config file under home. The file holds credentials,
// so it is not group or world readable.
func (c Config) Save(home string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(home, fileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
