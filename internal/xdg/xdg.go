// Package xdg provides XDG Base Directory Specification compliant paths
package xdg

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the XDG config directory for dstkit
// Priority: XDG_CONFIG_HOME > ~/.config/dstkit
func ConfigDir() (string, error) {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dstkit"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "dstkit"), nil
}

// DataDir returns the XDG data directory for dstkit
// Priority: XDG_DATA_HOME > ~/.local/share/dstkit
func DataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "dstkit"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".local", "share", "dstkit"), nil
}
