// Package diagnostics builds point-in-time resource snapshots for the
// monitoring and recovery subsystems.
//
// The Snapshotter queries the operating system (open file descriptors and
// their limits), the logging collaborator (file-backed handler count), and
// the process supervisor (active, long-running and timed-out children), and
// folds the result into one immutable metrics snapshot plus a coarse
// healthy/warning/critical classification.
//
// Every metric source is best-effort: an unavailable source reports a
// sentinel value and the snapshot continues. The coarse classification is an
// always-on sanity check and is intentionally independent of the
// configurable threshold engine in the monitor package.
package diagnostics
