// Package scaffold generates record, repository and service source files
// from an index mapping.
package scaffold
