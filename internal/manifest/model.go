package manifest

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/temirov/wsm/internal/faults"
)

const (
	pathSeparatorConstant              = "/"
	parentDirectorySegmentConstant     = ".."
	currentDirectorySegmentConstant    = "."
	emptyPathMessageConstant           = "repository path is empty"
	absolutePathTemplateConstant       = "repository path %s must be relative to the workspace"
	escapingPathTemplateConstant       = "repository path %s escapes the workspace"
	mappingExpectedTemplateConstant    = "manifest must be a mapping of repository paths, found %s at line %d"
	entryDecodingErrorTemplateConstant = "invalid entry for %s: %w"
	windowsPathSeparatorConstant       = "\\"
)

// Entry describes one repository of a workspace. Empty URL and VCS values mean absent.
type Entry struct {
	// Path is the mapping key and is not serialized inside the entry.
	Path string `yaml:"-"`
	URL  string `yaml:"url,omitempty"`
	Ref  string `yaml:"ref,omitempty"`
	VCS  string `yaml:"vcs,omitempty"`
}

// Manifest is a named set of entries keyed by repository path.
type Manifest struct {
	Name    string
	entries map[string]Entry
	dirty   bool
}

// New constructs an empty manifest.
func New(name string) *Manifest {
	return &Manifest{Name: name, entries: make(map[string]Entry)}
}

// NormalizePath converts a workspace-relative path into its canonical forward-slash form.
func NormalizePath(repositoryPath string) (string, error) {
	slashedPath := strings.ReplaceAll(strings.TrimSpace(repositoryPath), windowsPathSeparatorConstant, pathSeparatorConstant)
	if len(slashedPath) == 0 {
		return "", faults.New(faults.KindPathOutsideWorkspace, emptyPathMessageConstant)
	}
	if strings.HasPrefix(slashedPath, pathSeparatorConstant) || (len(slashedPath) > 1 && slashedPath[1] == ':') {
		return "", faults.Newf(faults.KindPathOutsideWorkspace, absolutePathTemplateConstant, repositoryPath)
	}

	cleanedPath := path.Clean(slashedPath)
	if cleanedPath == currentDirectorySegmentConstant {
		return "", faults.New(faults.KindPathOutsideWorkspace, emptyPathMessageConstant)
	}
	if cleanedPath == parentDirectorySegmentConstant || strings.HasPrefix(cleanedPath, parentDirectorySegmentConstant+pathSeparatorConstant) {
		return "", faults.Newf(faults.KindPathOutsideWorkspace, escapingPathTemplateConstant, repositoryPath)
	}
	return cleanedPath, nil
}

// Len reports the number of entries.
func (manifest *Manifest) Len() int {
	return len(manifest.entries)
}

// Paths lists repository paths in iteration order.
func (manifest *Manifest) Paths() []string {
	paths := make([]string, 0, len(manifest.entries))
	for repositoryPath := range manifest.entries {
		paths = append(paths, repositoryPath)
	}
	sort.Strings(paths)
	return paths
}

// Entries lists entries in iteration order.
func (manifest *Manifest) Entries() []Entry {
	paths := manifest.Paths()
	entries := make([]Entry, 0, len(paths))
	for _, repositoryPath := range paths {
		entries = append(entries, manifest.entries[repositoryPath])
	}
	return entries
}

// Get returns the entry stored under repositoryPath.
func (manifest *Manifest) Get(repositoryPath string) (Entry, bool) {
	entry, exists := manifest.entries[repositoryPath]
	return entry, exists
}

// Has reports whether repositoryPath is managed by the manifest.
func (manifest *Manifest) Has(repositoryPath string) bool {
	_, exists := manifest.entries[repositoryPath]
	return exists
}

// Set inserts or replaces the entry under its normalized path and marks the manifest dirty.
func (manifest *Manifest) Set(entry Entry) error {
	normalizedPath, normalizationError := NormalizePath(entry.Path)
	if normalizationError != nil {
		return normalizationError
	}
	entry.Path = normalizedPath
	manifest.entries[normalizedPath] = entry
	manifest.dirty = true
	return nil
}

// SetVCS records the resolved backend on an existing entry without marking the manifest dirty.
func (manifest *Manifest) SetVCS(repositoryPath string, backendName string) {
	entry, exists := manifest.entries[repositoryPath]
	if !exists {
		return
	}
	entry.VCS = backendName
	manifest.entries[repositoryPath] = entry
}

// Dirty reports whether the manifest changed since it was loaded or last marked clean.
func (manifest *Manifest) Dirty() bool {
	return manifest.dirty
}

// MarkClean clears the dirty flag.
func (manifest *Manifest) MarkClean() {
	manifest.dirty = false
}

// Clone copies the manifest under a new name.
func (manifest *Manifest) Clone(name string) *Manifest {
	duplicate := New(name)
	for repositoryPath, entry := range manifest.entries {
		duplicate.entries[repositoryPath] = entry
	}
	return duplicate
}

// MarshalYAML serializes the manifest as a mapping of path to entry.
func (manifest *Manifest) MarshalYAML() (any, error) {
	mappingNode := &yaml.Node{Kind: yaml.MappingNode}
	for _, entry := range manifest.Entries() {
		valueNode := &yaml.Node{}
		if encodeError := valueNode.Encode(entry); encodeError != nil {
			return nil, encodeError
		}
		mappingNode.Content = append(mappingNode.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: entry.Path}, valueNode)
	}
	return mappingNode, nil
}

// UnmarshalYAML decodes a mapping of path to entry. Null entries decode to empty entries.
func (manifest *Manifest) UnmarshalYAML(value *yaml.Node) error {
	manifest.entries = make(map[string]Entry)
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf(mappingExpectedTemplateConstant, value.ShortTag(), value.Line)
	}

	for index := 0; index+1 < len(value.Content); index += 2 {
		keyNode := value.Content[index]
		entry := Entry{}
		if decodeError := value.Content[index+1].Decode(&entry); decodeError != nil {
			return fmt.Errorf(entryDecodingErrorTemplateConstant, keyNode.Value, decodeError)
		}
		normalizedPath, normalizationError := NormalizePath(keyNode.Value)
		if normalizationError != nil {
			return fmt.Errorf(entryDecodingErrorTemplateConstant, keyNode.Value, normalizationError)
		}
		entry.Path = normalizedPath
		manifest.entries[normalizedPath] = entry
	}
	return nil
}
