// Package entity maps loosely typed wire documents onto typed Go records.
//
// # Records
//
// A record is any struct that embeds Base. Base contributes the identifier
// (serialized as "id"), the validation state, the hidden property set and the
// validator chain:
//
//	type Address struct {
//		entity.Base
//		Street string `json:"street"`
//	}
//
//	type User struct {
//		entity.Base
//		Name      string    `json:"name"`
//		Email     string    `json:"email"`
//		Address   *Address  `json:"address"`
//		CreatedAt time.Time `json:"created_at"`
//	}
//
// # Hydration
//
// Hydrate merges a snake_case map into a record. Keys are matched against json
// tags, then the snake_case and camelCase spellings of the Go field names.
// Unknown keys are ignored. Nested struct and record fields are built from
// maps; a scalar received for a nested record becomes that record's id.
// Time fields accept time.Time values or strings in RFC 3339, the configured
// layout, "2006-01-02 15:04:05" or "2006-01-02".
//
//	u := &User{}
//	err := entity.Hydrate(u, map[string]any{
//		"name":    "Ada",
//		"address": map[string]any{"id": "a1", "street": "Main St"},
//	})
//
// A Hydrator built with a Factory routes nested record maps through that
// factory. Relations registers explicit builders per (owner, property).
//
// # Serialization
//
// ToMap exports the readable, non hidden properties keyed by wire name.
// By default every falsy value is dropped from the result, matching the
// documents produced by existing consumers; WithKeepZeroValues keeps explicit
// zeros and drops only nil values.
//
// # Validation
//
// Validators are attached with AddValidator or registered per record type in
// a Registry and run by Validate. Errors returns the messages of the last run.
//
// # Errors
//
// Errors are *goerrors.Error values from github.com/goliatone/go-errors. Use
// IsInvalidEntity and IsPropertyNotFound to classify them.
package entity
