// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines the abstractions wsm uses to run git,
// curl, and arbitrary user commands inside managed repositories in a testable
// manner.
package execshell
