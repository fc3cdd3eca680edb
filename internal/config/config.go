// Package config handles the global dstkit configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/constants"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/xdg"

	"github.com/pelletier/go-toml/v2"
)

// GlobalConfig represents the global dstkit configuration
type GlobalConfig struct {
	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	Supervisor SupervisorConfig `toml:"supervisor"`
	World      WorldConfig      `toml:"world"`
}

type ServerConfig struct {
	Port int `toml:"port"` // HTTP API port (default 8090)
}

type StorageConfig struct {
	InstancesPath string `toml:"instances_path"` // Where cluster directories live
	InstallPath   string `toml:"install_path"`   // DST dedicated server install dir
	SteamCmdPath  string `toml:"steamcmd_path"`  // steamcmd install dir (managed externally)
}

type SupervisorConfig struct {
	StartTimeoutSeconds int `toml:"start_timeout_seconds"` // Liveness wait bound
	StopGraceSeconds    int `toml:"stop_grace_seconds"`    // Graceful shutdown bound
}

type WorldConfig struct {
	PresetsPath string `toml:"presets_path"` // Location of presets.yaml overrides
}

// DefaultGlobalConfig returns the default global configuration
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Server: ServerConfig{
			Port: constants.DefaultHTTPPort,
		},
		Storage: StorageConfig{
			InstancesPath: "~/dstkit/clusters",
			InstallPath:   "~/dstkit/server",
			SteamCmdPath:  "~/dstkit/steamcmd",
		},
		Supervisor: SupervisorConfig{
			StartTimeoutSeconds: int(constants.DefaultStartTimeout / time.Second),
			StopGraceSeconds:    int(constants.DefaultStopGrace / time.Second),
		},
		World: WorldConfig{
			PresetsPath: "", // Will use XDG default
		},
	}
}

// GetConfigDir returns the XDG config directory for dstkit
func GetConfigDir() (string, error) {
	return xdg.ConfigDir()
}

// LoadGlobalConfig loads the global configuration from XDG config directory
func LoadGlobalConfig() (*GlobalConfig, error) {
	configDir, err := xdg.ConfigDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, "config.toml")

	// If config doesn't exist, return defaults with expanded paths
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultGlobalConfig()
		if config.World.PresetsPath == "" {
			config.World.PresetsPath = filepath.Join(configDir, "presets.yaml")
		}
		if err := expandPaths(config); err != nil {
			return nil, err
		}
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config GlobalConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Apply defaults for any missing values
	defaults := DefaultGlobalConfig()
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Storage.InstancesPath == "" {
		config.Storage.InstancesPath = defaults.Storage.InstancesPath
	}
	if config.Storage.InstallPath == "" {
		config.Storage.InstallPath = defaults.Storage.InstallPath
	}
	if config.Storage.SteamCmdPath == "" {
		config.Storage.SteamCmdPath = defaults.Storage.SteamCmdPath
	}
	if config.Supervisor.StartTimeoutSeconds == 0 {
		config.Supervisor.StartTimeoutSeconds = defaults.Supervisor.StartTimeoutSeconds
	}
	if config.Supervisor.StopGraceSeconds == 0 {
		config.Supervisor.StopGraceSeconds = defaults.Supervisor.StopGraceSeconds
	}
	if config.World.PresetsPath == "" {
		config.World.PresetsPath = filepath.Join(configDir, "presets.yaml")
	}

	if err := expandPaths(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveGlobalConfig saves the global configuration to XDG config directory
func SaveGlobalConfig(config *GlobalConfig) error {
	configDir, err := xdg.ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.toml")

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// Save saves the global configuration to the specified path
func (g *GlobalConfig) Save(path string) error {
	data, err := toml.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// StartTimeout returns the supervisor start timeout as a duration
func (g *GlobalConfig) StartTimeout() time.Duration {
	return time.Duration(g.Supervisor.StartTimeoutSeconds) * time.Second
}

// StopGrace returns the supervisor stop grace period as a duration
func (g *GlobalConfig) StopGrace() time.Duration {
	return time.Duration(g.Supervisor.StopGraceSeconds) * time.Second
}

// ServerBinaryPath returns the path of the dedicated server executable,
// preferring the 64-bit build.
func (g *GlobalConfig) ServerBinaryPath() string {
	bin64 := filepath.Join(g.Storage.InstallPath, filepath.FromSlash(constants.ServerBinary64))
	if _, err := os.Stat(bin64); err == nil {
		return bin64
	}
	return filepath.Join(g.Storage.InstallPath, filepath.FromSlash(constants.ServerBinary32))
}

// ValidateGlobalConfig validates the global configuration
func ValidateGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", config.Server.Port)
	}

	if config.Storage.InstancesPath == "" {
		return fmt.Errorf("instances path cannot be empty")
	}
	if config.Storage.InstallPath == "" {
		return fmt.Errorf("install path cannot be empty")
	}

	if config.Supervisor.StartTimeoutSeconds < 0 {
		return fmt.Errorf("invalid start timeout: %d", config.Supervisor.StartTimeoutSeconds)
	}
	if config.Supervisor.StopGraceSeconds < 0 {
		return fmt.Errorf("invalid stop grace: %d", config.Supervisor.StopGraceSeconds)
	}

	return nil
}

// expandPaths expands tilde paths in the configuration
func expandPaths(config *GlobalConfig) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expand := func(p string) string {
		if strings.HasPrefix(p, "~/") {
			return filepath.Join(homeDir, p[2:])
		}
		return p
	}

	config.Storage.InstancesPath = expand(config.Storage.InstancesPath)
	config.Storage.InstallPath = expand(config.Storage.InstallPath)
	config.Storage.SteamCmdPath = expand(config.Storage.SteamCmdPath)
	config.World.PresetsPath = expand(config.World.PresetsPath)

	return nil
}
