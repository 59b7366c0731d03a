// Package preflight diagnoses whether an index can be created, written and
// served from this machine. It backs the `searchbridge doctor` command.
//
// Required checks failing make the run fail; the rest are warnings.
package preflight
