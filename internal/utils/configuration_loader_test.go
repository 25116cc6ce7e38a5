package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/wsm/internal/utils"
)

const (
	testEnvironmentPrefixConstant                     = "TESTWSM"
	testWorkersKeyConstant                            = "workspace.workers"
	testManifestDirectoryKeyConstant                  = "workspace.manifest_directory"
	testWorkersEnvironmentNameConstant                = "TESTWSM_WORKSPACE_WORKERS"
	testDefaultManifestDirectoryConstant              = ".manifest"
	testConfigFileNameConstant                        = "config.yaml"
	testWorkersContentTemplateConstant                = "workspace:\n  workers: %d\n"
	testConfigurationNameConstant                     = "config"
	testConfigurationTypeConstant                     = "yaml"
	configurationLoaderSubtestNameTemplateConstant    = "%d_%s"
	testUserConfigurationDirectoryNameConstant        = "wsm"
	testXDGConfigHomeDirectoryNameConstant            = "config"
	testCaseDefaultsMessageConstant                   = "defaults are applied"
	testCaseEmbeddedMessageConstant                   = "embedded configuration overrides defaults"
	testCaseFileMessageConstant                       = "config file overrides embedded configuration"
	testCaseEnvironmentMessageConstant                = "environment overrides config file"
	testCaseSearchPathWorkingDirectoryMessageConstant = "searches working directory"
	testCaseSearchPathHomeDirectoryMessageConstant    = "searches user configuration directory"
)

type workspaceConfigurationFixture struct {
	Workspace struct {
		ManifestDirectory string        `mapstructure:"manifest_directory"`
		Workers           int           `mapstructure:"workers"`
		BackendTimeout    time.Duration `mapstructure:"backend_timeout"`
		Backends          []string      `mapstructure:"backends"`
	} `mapstructure:"workspace"`
}

func workspaceDefaults() map[string]any {
	return map[string]any{
		testWorkersKeyConstant:           1,
		testManifestDirectoryKeyConstant: testDefaultManifestDirectoryConstant,
	}
}

func TestConfigurationLoaderLayersWorkspaceSettings(testInstance *testing.T) {
	testCases := []struct {
		name                string
		embeddedWorkers     int
		fileWorkers         int
		environmentWorkers  string
		expectedWorkers     int
		expectedFileApplied bool
	}{
		{
			name:            testCaseDefaultsMessageConstant,
			expectedWorkers: 1,
		},
		{
			name:            testCaseEmbeddedMessageConstant,
			embeddedWorkers: 4,
			expectedWorkers: 4,
		},
		{
			name:                testCaseFileMessageConstant,
			embeddedWorkers:     4,
			fileWorkers:         6,
			expectedWorkers:     6,
			expectedFileApplied: true,
		},
		{
			name:                testCaseEnvironmentMessageConstant,
			embeddedWorkers:     4,
			fileWorkers:         6,
			environmentWorkers:  "12",
			expectedWorkers:     12,
			expectedFileApplied: true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(configurationLoaderSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			configurationDirectory := testInstance.TempDir()
			configurationFilePath := ""
			if testCase.fileWorkers > 0 {
				configurationFilePath = filepath.Join(configurationDirectory, testConfigFileNameConstant)
				configurationContent := fmt.Sprintf(testWorkersContentTemplateConstant, testCase.fileWorkers)
				require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(configurationContent), 0o600))
			}
			if len(testCase.environmentWorkers) > 0 {
				testInstance.Setenv(testWorkersEnvironmentNameConstant, testCase.environmentWorkers)
			}

			configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)
			if testCase.embeddedWorkers > 0 {
				configurationLoader.SetEmbeddedConfiguration([]byte(fmt.Sprintf(testWorkersContentTemplateConstant, testCase.embeddedWorkers)), testConfigurationTypeConstant)
			}

			loadedConfiguration := workspaceConfigurationFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration(configurationFilePath, workspaceDefaults(), &loadedConfiguration)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedWorkers, loadedConfiguration.Workspace.Workers)
			require.Equal(testInstance, testDefaultManifestDirectoryConstant, loadedConfiguration.Workspace.ManifestDirectory)

			if testCase.expectedFileApplied {
				require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
			} else {
				require.Empty(testInstance, metadata.ConfigFileUsed)
			}
		})
	}
}

func TestConfigurationLoaderRejectsMissingExplicitFile(testInstance *testing.T) {
	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)

	loadedConfiguration := workspaceConfigurationFixture{}
	_, loadError := configurationLoader.LoadConfiguration(filepath.Join(testInstance.TempDir(), testConfigFileNameConstant), workspaceDefaults(), &loadedConfiguration)
	require.Error(testInstance, loadError)
}

func TestConfigurationLoaderSearchPaths(testInstance *testing.T) {
	testCases := []struct {
		name                         string
		configurationDirectorySelect func(workingDirectoryPath string, userConfigurationDirectoryPath string) string
	}{
		{
			name: testCaseSearchPathWorkingDirectoryMessageConstant,
			configurationDirectorySelect: func(workingDirectoryPath string, _ string) string {
				return workingDirectoryPath
			},
		},
		{
			name: testCaseSearchPathHomeDirectoryMessageConstant,
			configurationDirectorySelect: func(_ string, userConfigurationDirectoryPath string) string {
				return userConfigurationDirectoryPath
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(configurationLoaderSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			workingDirectoryPath := testInstance.TempDir()
			homeDirectoryPath := testInstance.TempDir()
			testInstance.Setenv("HOME", homeDirectoryPath)
			testInstance.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDirectoryPath, testXDGConfigHomeDirectoryNameConstant))

			userConfigurationBaseDirectoryPath, userConfigurationDirectoryError := os.UserConfigDir()
			require.NoError(testInstance, userConfigurationDirectoryError)
			userConfigurationDirectoryPath := filepath.Join(userConfigurationBaseDirectoryPath, testUserConfigurationDirectoryNameConstant)
			require.NoError(testInstance, os.MkdirAll(userConfigurationDirectoryPath, 0o755))

			configurationFilePath := filepath.Join(testCase.configurationDirectorySelect(workingDirectoryPath, userConfigurationDirectoryPath), testConfigFileNameConstant)
			require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte("workspace:\n  manifest_directory: .workspace\n"), 0o600))

			configurationLoader := utils.NewConfigurationLoader(
				testConfigurationNameConstant,
				testConfigurationTypeConstant,
				testEnvironmentPrefixConstant,
				[]string{workingDirectoryPath, userConfigurationDirectoryPath},
			)

			loadedConfiguration := workspaceConfigurationFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration("", workspaceDefaults(), &loadedConfiguration)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, ".workspace", loadedConfiguration.Workspace.ManifestDirectory)
			require.Equal(testInstance, 1, loadedConfiguration.Workspace.Workers)
			require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}

func TestConfigurationLoaderDecodesTypedValues(testInstance *testing.T) {
	configurationDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(configurationDirectory, testConfigFileNameConstant)
	configurationContent := "workspace:\n  workers: 8\n  backend_timeout: 90s\n  backends: git,hg\n"
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(configurationContent), 0o600))

	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{configurationDirectory})

	loadedConfiguration := workspaceConfigurationFixture{}
	_, loadError := configurationLoader.LoadConfiguration(configurationFilePath, map[string]any{}, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, 8, loadedConfiguration.Workspace.Workers)
	require.Equal(testInstance, 90*time.Second, loadedConfiguration.Workspace.BackendTimeout)
	require.Equal(testInstance, []string{"git", "hg"}, loadedConfiguration.Workspace.Backends)
}
