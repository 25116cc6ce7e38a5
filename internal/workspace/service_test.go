package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/wsm/internal/execshell"
	"github.com/temirov/wsm/internal/faults"
	"github.com/temirov/wsm/internal/manifest"
	"github.com/temirov/wsm/internal/vcs"
	"github.com/temirov/wsm/internal/workspace"
)

const (
	testAPIURLConstant      = "https://example.com/org/api.git"
	testCoreURLConstant     = "https://example.com/org/core.git"
	testDocsURLConstant     = "https://example.com/org/docs.git"
	testAPIPathConstant     = "api"
	testCorePathConstant    = "libs/core"
	testDocsPathConstant    = "docs"
	testMainManifestName    = "main"
	testReleaseManifestName = "release"
)

type stubExecutor struct {
	mutex    sync.Mutex
	commands []execshell.ShellCommand
	results  map[string]execshell.ExecutionResult
	errors   map[string]error
}

func (executor *stubExecutor) Execute(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	executor.commands = append(executor.commands, command)
	directory := command.Details.WorkingDirectory
	if executionError, exists := executor.errors[directory]; exists {
		return execshell.ExecutionResult{}, executionError
	}
	return executor.results[directory], nil
}

type stubFetcher struct {
	content     map[string]string
	requestURLs []string
}

func (fetcher *stubFetcher) Fetch(_ context.Context, manifestURL string) ([]byte, error) {
	fetcher.requestURLs = append(fetcher.requestURLs, manifestURL)
	content, exists := fetcher.content[manifestURL]
	if !exists {
		return nil, os.ErrNotExist
	}
	return []byte(content), nil
}

type testWorkspace struct {
	root     string
	backend  *fakeBackend
	executor *stubExecutor
	fetcher  *stubFetcher
	service  *workspace.Service
}

func newTestWorkspace(testInstance *testing.T) *testWorkspace {
	testInstance.Helper()
	rootDirectory := testInstance.TempDir()
	backend := newFakeBackend()
	registry, registryError := vcs.NewRegistry(zap.NewNop(), backend)
	require.NoError(testInstance, registryError)

	executor := &stubExecutor{results: map[string]execshell.ExecutionResult{}, errors: map[string]error{}}
	fetcher := &stubFetcher{content: map[string]string{}}
	service, serviceError := workspace.NewService(
		workspace.Dependencies{Logger: zap.NewNop(), Registry: registry, Executor: executor, Fetcher: fetcher},
		workspace.Options{RootDirectory: rootDirectory, Workers: 2, ManifestRepositoryBackend: fakeBackendNameConstant},
	)
	require.NoError(testInstance, serviceError)

	return &testWorkspace{root: rootDirectory, backend: backend, executor: executor, fetcher: fetcher, service: service}
}

func (fixture *testWorkspace) directory(repositoryPath string) string {
	return filepath.Join(fixture.root, filepath.FromSlash(repositoryPath))
}

func (fixture *testWorkspace) addRepository(testInstance *testing.T, repositoryPath string, remoteURL string, reference string) {
	testInstance.Helper()
	require.NoError(testInstance, fixture.backend.addRepository(fixture.directory(repositoryPath), remoteURL, reference))
}

// initialized returns a workspace with api and libs/core recorded in the main manifest.
func initialized(testInstance *testing.T) (*testWorkspace, workspace.State) {
	testInstance.Helper()
	fixture := newTestWorkspace(testInstance)
	fixture.addRepository(testInstance, testAPIPathConstant, testAPIURLConstant, "main")
	fixture.addRepository(testInstance, testCorePathConstant, testCoreURLConstant, "develop")

	initResult, initError := fixture.service.Init(context.Background(), workspace.InitSourceWorkspace)
	require.NoError(testInstance, initError)
	return fixture, initResult.State
}

func (fixture *testWorkspace) readManifest(testInstance *testing.T, name string) *manifest.Manifest {
	testInstance.Helper()
	storedManifest, readError := fixture.service.Store().Read(name)
	require.NoError(testInstance, readError)
	return storedManifest
}

func TestNewServiceRequiresRegistryAndRoot(testInstance *testing.T) {
	_, missingRegistryError := workspace.NewService(workspace.Dependencies{}, workspace.Options{RootDirectory: testInstance.TempDir()})
	require.ErrorIs(testInstance, missingRegistryError, workspace.ErrRegistryNotConfigured)

	registry, registryError := vcs.NewRegistry(nil)
	require.NoError(testInstance, registryError)
	_, missingRootError := workspace.NewService(workspace.Dependencies{Registry: registry}, workspace.Options{})
	require.ErrorIs(testInstance, missingRootError, workspace.ErrRootNotConfigured)
}

func TestInitFromWorkspaceRecordsDiscoveredRepositories(testInstance *testing.T) {
	fixture := newTestWorkspace(testInstance)
	fixture.addRepository(testInstance, testAPIPathConstant, testAPIURLConstant, "main")
	fixture.addRepository(testInstance, testCorePathConstant, testCoreURLConstant, "develop")
	fixture.addRepository(testInstance, "api/vendor/nested", "https://example.com/nested.git", "main")
	require.NoError(testInstance, os.MkdirAll(filepath.Join(fixture.root, "notes"), 0o755))

	initResult, initError := fixture.service.Init(context.Background(), workspace.InitSourceWorkspace)
	require.NoError(testInstance, initError)
	require.Equal(testInstance, testMainManifestName, initResult.State.CurrentManifestName)
	require.Equal(testInstance, workspace.OperationInit, initResult.Report.Operation)
	require.Len(testInstance, initResult.Report.Results, 2)

	mainManifest := fixture.readManifest(testInstance, testMainManifestName)
	require.Equal(testInstance, []string{testAPIPathConstant, testCorePathConstant}, mainManifest.Paths())
	coreEntry, _ := mainManifest.Get(testCorePathConstant)
	require.Equal(testInstance, manifest.Entry{Path: testCorePathConstant, URL: testCoreURLConstant, Ref: "develop", VCS: fakeBackendNameConstant}, coreEntry)

	state, stateError := fixture.service.LoadState()
	require.NoError(testInstance, stateError)
	require.Equal(testInstance, testMainManifestName, state.CurrentManifestName)
}

func TestInitRefusesInitializedWorkspaces(testInstance *testing.T) {
	fixture, _ := initialized(testInstance)
	_, initError := fixture.service.Init(context.Background(), workspace.InitSourceWorkspace)
	require.True(testInstance, faults.HasKind(initError, faults.KindWorkspaceAlreadyInitialized))
}

func TestInitRefusesRepositoryRoot(testInstance *testing.T) {
	fixture := newTestWorkspace(testInstance)
	require.NoError(testInstance, fixture.backend.addRepository(fixture.root, testAPIURLConstant, "main"))

	_, initError := fixture.service.Init(context.Background(), workspace.InitSourceWorkspace)
	require.True(testInstance, faults.HasKind(initError, faults.KindWorkspaceAlreadyInitialized))
	require.False(testInstance, fixture.service.Store().Initialized())
}

func TestInitFromManifestRepository(testInstance *testing.T) {
	fixture := newTestWorkspace(testInstance)
	manifestRepositoryURL := "https://example.com/org/manifests.git"
	fixture.backend.clonedFiles[manifestRepositoryURL] = map[string]string{
		"main.yaml":    "api:\n    url: " + testAPIURLConstant + "\n    ref: main\n",
		"release.yaml": "api:\n    url: " + testAPIURLConstant + "\n    ref: v1\n",
		"README.md":    "manifests",
	}

	initResult, initError := fixture.service.Init(context.Background(), manifestRepositoryURL)
	require.NoError(testInstance, initError)
	require.Equal(testInstance, []string{testMainManifestName, testReleaseManifestName}, initResult.Manifests)
	require.Equal(testInstance, testMainManifestName, initResult.State.CurrentManifestName)
	require.Empty(testInstance, initResult.Report.Results)

	releaseManifest := fixture.readManifest(testInstance, testReleaseManifestName)
	releaseEntry, _ := releaseManifest.Get(testAPIPathConstant)
	require.Equal(testInstance, "v1", releaseEntry.Ref)
	require.NoDirExists(testInstance, fixture.directory(testAPIPathConstant))
}

func TestInitFromManifestRepositoryWithoutManifests(testInstance *testing.T) {
	fixture := newTestWorkspace(testInstance)
	_, initError := fixture.service.Init(context.Background(), "https://example.com/org/empty.git")
	require.True(testInstance, faults.HasKind(initError, faults.KindManifestNotFound))
	require.False(testInstance, fixture.service.Store().Initialized())
}

func TestInitFromManifestDocumentClonesRepositories(testInstance *testing.T) {
	fixture := newTestWorkspace(testInstance)
	manifestURL := "https://example.com/manifests/dev.yaml"
	fixture.fetcher.content[manifestURL] = "api:\n    url: " + testAPIURLConstant + "\n    ref: feature\n    vcs: fake\n"

	initResult, initError := fixture.service.Init(context.Background(), manifestURL)
	require.NoError(testInstance, initError)
	require.Equal(testInstance, "dev", initResult.State.CurrentManifestName)
	require.Len(testInstance, initResult.Report.Results, 1)
	require.True(testInstance, initResult.Report.Results[0].Succeeded())

	apiRepository := fixture.backend.snapshot(fixture.directory(testAPIPathConstant))
	require.Equal(testInstance, testAPIURLConstant, apiRepository.remoteURL)
	require.Equal(testInstance, "feature", apiRepository.reference)
}

func TestInitFromManifestDocumentKeepsWorkspaceUsableWhenCheckoutFails(testInstance *testing.T) {
	fixture := newTestWorkspace(testInstance)
	manifestURL := "https://example.com/manifests/team.yaml"
	fixture.fetcher.content[manifestURL] = "api:\n    url: " + testAPIURLConstant + "\n    ref: main\n"

	_, initError := fixture.service.Init(context.Background(), manifestURL)
	require.True(testInstance, faults.HasKind(initError, faults.KindBackendUnavailable))
	require.Empty(testInstance, fixture.backend.clones)

	state, stateError := fixture.service.LoadState()
	require.NoError(testInstance, stateError)
	require.Equal(testInstance, "team", state.CurrentManifestName)

	fixture.addRepository(testInstance, testAPIPathConstant, testAPIURLConstant, "main")
	_, report, checkoutError := fixture.service.Checkout(context.Background(), state, "team")
	require.NoError(testInstance, checkoutError)
	require.Len(testInstance, report.Results, 1)
	require.True(testInstance, report.Results[0].Succeeded())
}

func TestInitFromManifestRepositoryUsesGitBackendByDefault(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	registry, registryError := vcs.NewRegistry(zap.NewNop(), newFakeBackend())
	require.NoError(testInstance, registryError)
	service, serviceError := workspace.NewService(
		workspace.Dependencies{Logger: zap.NewNop(), Registry: registry, Executor: &stubExecutor{}},
		workspace.Options{RootDirectory: rootDirectory},
	)
	require.NoError(testInstance, serviceError)

	_, initError := service.Init(context.Background(), "https://example.com/org/manifests.git")
	require.True(testInstance, faults.HasKind(initError, faults.KindBackendUnavailable))
	require.Contains(testInstance, initError.Error(), "backend git is not registered")
	require.False(testInstance, service.Store().Initialized())
}

func TestManifestNameFromURL(testInstance *testing.T) {
	testCases := []struct {
		name     string
		url      string
		expected string
	}{
		{name: "file", url: "https://example.com/manifests/dev.yaml", expected: "dev"},
		{name: "no_extension", url: "https://example.com/manifests/dev", expected: "dev"},
		{name: "trailing_slash", url: "https://example.com/manifests/", expected: workspace.DefaultManifestName},
		{name: "host_only", url: "https://example.com", expected: workspace.DefaultManifestName},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			name, nameError := workspace.ManifestNameFromURL(testCase.url)
			require.NoError(testInstance, nameError)
			require.Equal(testInstance, testCase.expected, name)
		})
	}
}

func TestCreateSkipsUnidentifiableRepositories(testInstance *testing.T) {
	fixture, state := initialized(testInstance)
	fixture.addRepository(testInstance, testDocsPathConstant, testDocsURLConstant, "main")
	fixture.backend.failIn(fixture.directory(testDocsPathConstant), faults.New(faults.KindBackendOperation, "broken"))

	nextState, report, createError := fixture.service.Create(context.Background(), testReleaseManifestName)
	require.NoError(testInstance, createError)
	require.NotEqual(testInstance, state.CurrentManifestName, nextState.CurrentManifestName)
	require.Equal(testInstance, testReleaseManifestName, nextState.CurrentManifestName)
	require.Len(testInstance, report.Results.Failures(), 1)
	require.Equal(testInstance, testDocsPathConstant, report.Results.Failures()[0].Path)

	releaseManifest := fixture.readManifest(testInstance, testReleaseManifestName)
	require.Equal(testInstance, []string{testAPIPathConstant, testCorePathConstant}, releaseManifest.Paths())
}

func TestCreateRequiresInitializedWorkspace(testInstance *testing.T) {
	fixture := newTestWorkspace(testInstance)
	_, _, createError := fixture.service.Create(context.Background(), testMainManifestName)
	require.True(testInstance, faults.HasKind(createError, faults.KindWorkspaceNotInitialized))
}

func TestAddRecordsRepository(testInstance *testing.T) {
	fixture, state := initialized(testInstance)
	fixture.addRepository(testInstance, testDocsPathConstant, testDocsURLConstant, "main")

	entry, addError := fixture.service.Add(context.Background(), state, fixture.directory(testDocsPathConstant))
	require.NoError(testInstance, addError)
	require.Equal(testInstance, manifest.Entry{Path: testDocsPathConstant, URL: testDocsURLConstant, Ref: "main", VCS: fakeBackendNameConstant}, entry)
	require.True(testInstance, fixture.readManifest(testInstance, testMainManifestName).Has(testDocsPathConstant))

	_, repeatedError := fixture.service.Add(context.Background(), state, testDocsPathConstant)
	require.True(testInstance, faults.HasKind(repeatedError, faults.KindRepositoryAlreadyManaged))
}

func TestAddRejectsPathsOutsideWorkspace(testInstance *testing.T) {
	fixture, state := initialized(testInstance)

	_, outsideError := fixture.service.Add(context.Background(), state, filepath.Dir(fixture.root))
	require.True(testInstance, faults.HasKind(outsideError, faults.KindPathOutsideWorkspace))

	_, rootError := fixture.service.Add(context.Background(), state, fixture.root)
	require.True(testInstance, faults.HasKind(rootError, faults.KindPathOutsideWorkspace))
}

func TestAddRejectsUnknownDirectories(testInstance *testing.T) {
	fixture, state := initialized(testInstance)
	require.NoError(testInstance, os.MkdirAll(fixture.directory("notes"), 0o755))

	_, addError := fixture.service.Add(context.Background(), state, "notes")
	require.True(testInstance, faults.HasKind(addError, faults.KindUnknownRepositoryKind))
}

func TestDeleteManifests(testInstance *testing.T) {
	fixture, state := initialized(testInstance)
	require.NoError(testInstance, fixture.service.Store().Write(testReleaseManifestName, manifest.New(testReleaseManifestName)))

	currentError := fixture.service.Delete(state, testMainManifestName)
	require.True(testInstance, faults.HasKind(currentError, faults.KindCannotDeleteCurrentManifest))

	require.NoError(testInstance, fixture.service.Delete(state, testReleaseManifestName))
	require.False(testInstance, fixture.service.Store().Exists(testReleaseManifestName))

	missingError := fixture.service.Delete(state, testReleaseManifestName)
	require.True(testInstance, faults.HasKind(missingError, faults.KindManifestNotFound))
}

func TestListMarksCurrentManifest(testInstance *testing.T) {
	fixture, state := initialized(testInstance)
	require.NoError(testInstance, fixture.service.Store().Write("feature/login", manifest.New("feature/login")))

	listings, listError := fixture.service.List(state)
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []workspace.ManifestListing{
		{Name: "feature/login"},
		{Name: testMainManifestName, Current: true},
	}, listings)
}
