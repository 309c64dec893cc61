package conf

import (
	"os"
	"path/filepath"

	"github.com/tphakala/helmetwatch/internal/errors"
)

const (
	appDirName     = "helmetwatch"
	configFileName = "config.yaml"
)

// userConfigDir is where a default config.yaml is created on first run
func userConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New(err).
			Component("conf").
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}
	return filepath.Join(homeDir, ".config", appDirName), nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml in
// order: the working directory, the per-user directory, then /etc. When one
// of them holds a config.yaml only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	userDir, err := userConfigDir()
	if err != nil {
		return nil, err
	}

	configPaths := []string{".", userDir, filepath.Join("/etc", appDirName)}
	for _, dir := range configPaths {
		if fileExists(filepath.Join(dir, configFileName)) {
			return []string{dir}, nil
		}
	}
	return configPaths, nil
}

// FindConfigFile returns the config.yaml viper would load when no --config
// flag is given.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}

	for _, dir := range configPaths {
		if path := filepath.Join(dir, configFileName); fileExists(path) {
			return filepath.Abs(path)
		}
	}

	return "", errors.Newf("%s not found in %v", configFileName, configPaths).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Context("operation", "find-config-file").
		Build()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
