// Package ui renders workspace reports for the console: a markdown document with
// one section per repository and a coloured one-line summary.
package ui
