// Package memory is an in-process query.Store.
//
// Documents live in per-index collections keyed by id. Queries support the
// must, must_not, should and filter boolean contexts, the operators
// = != < <= > >= like in, dotted paths into nested maps and multi-key
// ordering. Inserting an existing id reports an error result with the
// message "duplicate key". With WithSoftDelete, Delete flags the document
// and reports "updated", matching stores that never remove documents.
package memory
