package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig represents the structure of ~/.blinkscrape/config.yaml.
type FileConfig struct {
	Credentials struct {
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"credentials"`
	Defaults struct {
		Language string `yaml:"language"`
		DumpDir  string `yaml:"dump_dir"`
		BooksDir string `yaml:"books_dir"`
		Ledger   string `yaml:"ledger"`
	} `yaml:"defaults"`
}

// LoadConfigFile loads configuration from ~/.blinkscrape/config.yaml.
// Returns nil if the file doesn't exist (not an error). Returns error if
// the file exists but cannot be parsed.
func LoadConfigFile() (*FileConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return LoadConfigFileFrom(filepath.Join(homeDir, ".blinkscrape", "config.yaml"))
}

// LoadConfigFileFrom loads a config file from an explicit path with the
// same missing-file semantics as LoadConfigFile.
func LoadConfigFileFrom(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil // File doesn't exist -- not an error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}
