// Package repository implements CRUD, query and pagination operations for
// entity records on top of a query.Store.
//
// A repository is bound to one index, derived from the record type unless
// WithIndex overrides it:
//
//	repo := repository.New[*User](store)            // index "users"
//	user, err := repo.Find(ctx, "u1")               // nil, nil when missing
//	users, err := repo.Search(ctx, query.NewParams("status", "active"))
//	page, err := repo.Paginate(ctx, params, 1, 20)  // page.Data holds maps
//
// Writes validate first and report failures as structured go-errors values:
// IsValidationFailed, IsCreateFailed, IsUpdateFailed and IsStoreFailed tell
// them apart. Find, First and Search never report a missing record as an
// error; RequireFound converts one into RecordNotFound for callers that need
// it.
//
// Delete treats updated and noop results as success because stores
// configured for soft deletes flag the document instead of removing it.
package repository
