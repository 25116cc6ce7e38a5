package workspace

import (
	"strings"
	"time"

	"github.com/temirov/wsm/internal/manifest"
	"github.com/temirov/wsm/internal/orchestrator"
)

const (
	defaultRootConstant            = "."
	defaultPreferredRemoteConstant = "origin"
	defaultBackendTimeoutConstant  = 10 * time.Minute

	rootConfigurationKeyConstant              = "root"
	manifestDirectoryConfigurationKeyConstant = "manifest_directory"
	workersConfigurationKeyConstant           = "workers"
	backendTimeoutConfigurationKeyConstant    = "backend_timeout"
	preferredRemoteConfigurationKeyConstant   = "preferred_remote"
	configurationKeySeparatorConstant         = "."
)

// CommandConfiguration captures configuration values for the workspace commands.
type CommandConfiguration struct {
	Root              string        `mapstructure:"root"`
	ManifestDirectory string        `mapstructure:"manifest_directory"`
	Workers           int           `mapstructure:"workers"`
	BackendTimeout    time.Duration `mapstructure:"backend_timeout"`
	PreferredRemote   string        `mapstructure:"preferred_remote"`
}

// DefaultCommandConfiguration provides baseline configuration values.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Root:              defaultRootConstant,
		ManifestDirectory: manifest.DefaultDirectoryName,
		Workers:           orchestrator.DefaultWorkerCount,
		BackendTimeout:    defaultBackendTimeoutConstant,
		PreferredRemote:   defaultPreferredRemoteConstant,
	}
}

// DefaultConfigurationValues lists the defaults under configurationKey for the configuration loader.
func DefaultConfigurationValues(configurationKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	prefix := configurationKey + configurationKeySeparatorConstant
	return map[string]any{
		prefix + rootConfigurationKeyConstant:              defaults.Root,
		prefix + manifestDirectoryConfigurationKeyConstant: defaults.ManifestDirectory,
		prefix + workersConfigurationKeyConstant:           defaults.Workers,
		prefix + backendTimeoutConfigurationKeyConstant:    defaults.BackendTimeout.String(),
		prefix + preferredRemoteConfigurationKeyConstant:   defaults.PreferredRemote,
	}
}

// sanitize trims values and restores defaults for unusable ones.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.Root = strings.TrimSpace(configuration.Root)
	sanitized.ManifestDirectory = strings.TrimSpace(configuration.ManifestDirectory)
	if len(sanitized.ManifestDirectory) == 0 {
		sanitized.ManifestDirectory = defaults.ManifestDirectory
	}
	if sanitized.Workers <= 0 {
		sanitized.Workers = defaults.Workers
	}
	if sanitized.BackendTimeout < 0 {
		sanitized.BackendTimeout = 0
	}
	sanitized.PreferredRemote = strings.TrimSpace(configuration.PreferredRemote)
	if len(sanitized.PreferredRemote) == 0 {
		sanitized.PreferredRemote = defaults.PreferredRemote
	}

	return sanitized
}
