// Package cli constructs the wsm command-line interface, wiring the Cobra
// command hierarchy, the Viper-backed configuration loader with embedded
// defaults, and the zap loggers shared by the workspace commands.
package cli
