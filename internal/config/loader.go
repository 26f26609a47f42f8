package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"steward/pkg/logging"
)

const (
	userConfigDir  = ".config/steward"
	configFileName = "config.yaml"
)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads configuration from the specified directory. A missing
// config.yaml is not an error; the defaults apply.
func LoadConfig(configPath string) (StewardConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return StewardConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		// config malformed
		return StewardConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}

	if err := config.Validate(); err != nil {
		return StewardConfig{}, fmt.Errorf("invalid config at %s: %w", configFilePath, err)
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}
