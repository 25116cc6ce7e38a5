// Package faults defines the error kinds shared by the workspace engine.
//
// Every failure that must survive a batch boundary is expressed as an *Error
// carrying a Kind together with the repository path, remote URL and raw
// diagnostic output that produced it. Callers classify failures with KindOf
// and HasKind instead of matching message text.
package faults
