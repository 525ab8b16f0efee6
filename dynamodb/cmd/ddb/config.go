package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const configFilename = "ddb.replicate.yaml"

// FileConfig holds the optional settings of ddb.replicate.yaml. Flags given
// on the command line take precedence.
type FileConfig struct {
	// RemoteRegion is the region of the account tables are copied from.
	RemoteRegion string `yaml:"remoteRegion"`

	// LocalRegion is used when signing requests to an HTTP target.
	LocalRegion string `yaml:"localRegion"`

	// Wait blocks until every created table is ACTIVE.
	Wait bool `yaml:"wait"`

	// WaitTimeout bounds each wait, e.g. "90s".
	WaitTimeout time.Duration `yaml:"waitTimeout"`
}

// LoadFileConfig reads path, or when path is empty searches for
// ddb.replicate.yaml starting from dir and walking up to the filesystem root.
// A file that is not found while searching yields an empty config.
func LoadFileConfig(path, dir string) (FileConfig, error) {
	var cfg FileConfig

	if path == "" {
		path = findConfigFile(dir)
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// findConfigFile searches for ddb.replicate.yaml walking up from dir.
func findConfigFile(dir string) string {
	if dir == "" {
		return ""
	}
	for {
		path := filepath.Join(dir, configFilename)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}
