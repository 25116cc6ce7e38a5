// Package orchestrator applies an action to every repository of a manifest on a
// bounded worker pool, isolating failures so that one repository never aborts
// the batch. Results come back in manifest order regardless of completion order.
package orchestrator
