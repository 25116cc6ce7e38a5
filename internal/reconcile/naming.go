package reconcile

import "strings"

// CascadePrefix marks a name that extends the current ref instead of replacing it.
const CascadePrefix = "+"

// IsCascading reports whether name starts with CascadePrefix.
func IsCascading(name string) bool {
	return strings.HasPrefix(name, CascadePrefix)
}

// ResolveName expands a cascading name against currentRef; "+hotfix" on "main"
// becomes "main+hotfix". Literal names are returned unchanged.
func ResolveName(requestedName string, currentRef string) string {
	if !IsCascading(requestedName) {
		return requestedName
	}
	return currentRef + requestedName
}

// ManifestName derives the manifest name recorded for a new branch: cascading names
// extend the current manifest name, literal names are used as is.
func ManifestName(requestedName string, currentManifestName string) string {
	return ResolveName(requestedName, currentManifestName)
}
