package reconcile

import "github.com/temirov/wsm/internal/manifest"

// Result describes how source repositories map onto the current workspace.
type Result struct {
	// Mapping maps every source path to the current path it merges into.
	Mapping map[string]string
	// Matched lists source paths that were found under a different current path by URL.
	Matched []string
	// Inserted lists source paths added to the current manifest.
	Inserted []string
}

// Reconcile maps every source entry onto current. Entries present under the same
// path map to themselves. Absent entries are matched to the first current entry,
// in current iteration order, with exactly the same URL; empty URLs never match.
// Unmatched entries are inserted into current, which marks it dirty.
//
// URLs are compared verbatim, so the same remote spelled differently
// (scheme, credentials, trailing .git) is treated as a different repository.
func Reconcile(current *manifest.Manifest, source *manifest.Manifest) (Result, error) {
	result := Result{
		Mapping:  make(map[string]string, source.Len()),
		Matched:  make([]string, 0),
		Inserted: make([]string, 0),
	}
	currentEntries := current.Entries()

	for _, sourceEntry := range source.Entries() {
		if current.Has(sourceEntry.Path) {
			result.Mapping[sourceEntry.Path] = sourceEntry.Path
			continue
		}

		if matchedPath, matched := findByURL(currentEntries, sourceEntry.URL); matched {
			result.Mapping[sourceEntry.Path] = matchedPath
			result.Matched = append(result.Matched, sourceEntry.Path)
			continue
		}

		if insertionError := current.Set(sourceEntry); insertionError != nil {
			return Result{}, insertionError
		}
		result.Mapping[sourceEntry.Path] = sourceEntry.Path
		result.Inserted = append(result.Inserted, sourceEntry.Path)
	}

	return result, nil
}

func findByURL(candidates []manifest.Entry, remoteURL string) (string, bool) {
	if len(remoteURL) == 0 {
		return "", false
	}
	for _, candidate := range candidates {
		if candidate.URL == remoteURL {
			return candidate.Path, true
		}
	}
	return "", false
}
