package workspace

import (
	"go.uber.org/zap"

	"github.com/temirov/wsm/internal/execshell"
	"github.com/temirov/wsm/internal/filesystem"
	"github.com/temirov/wsm/internal/vcs"
)

func resolveLogger(existing *zap.Logger) *zap.Logger {
	if existing != nil {
		return existing
	}
	return zap.NewNop()
}

func resolveFileSystem(existing filesystem.FileSystem) filesystem.FileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

func resolveExecutor(existing CommandExecutor, logger *zap.Logger) (CommandExecutor, error) {
	if existing != nil {
		return existing, nil
	}
	return execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), false)
}

func resolveFetcher(existing ManifestFetcher, executor CommandExecutor) ManifestFetcher {
	if existing != nil {
		return existing
	}
	if curlExecutor, supportsCurl := executor.(CurlExecutor); supportsCurl {
		return NewCurlManifestFetcher(curlExecutor)
	}
	return NewCurlManifestFetcher(commandCurlExecutor{executor: executor})
}

func resolveDiscoverer(existing RepositoryDiscoverer, registry *vcs.Registry, manifestDirectoryName string) RepositoryDiscoverer {
	if existing != nil {
		return existing
	}
	return NewFilesystemRepositoryDiscoverer(registry.IsLikely, manifestDirectoryName)
}
