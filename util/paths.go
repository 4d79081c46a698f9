package util

import (
	"os"
	"path/filepath"
)

// GetDataDir returns the data directory path
func GetDataDir() string {
	if envDir := os.Getenv("CHUNKSTREAM_BLUE_DIR"); envDir != "" {
		return envDir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".chunkstream-blue-data")
}

// DefaultConfigPath returns the default server configuration file location
func DefaultConfigPath() string {
	return filepath.Join(GetDataDir(), "server.yaml")
}
