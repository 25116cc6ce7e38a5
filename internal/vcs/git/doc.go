// Package git implements the vcs.Backend contract by invoking the git binary
// through execshell.
package git
