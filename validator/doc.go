// Package validator provides entity.Validator implementations.
//
// Most validators wrap ozzo-validation rules:
//
//	user.AddValidator("email", validator.Required())
//	user.AddValidator("email", validator.Email())
//	user.AddValidator("role", validator.In("admin", "editor"))
//
// Unique consults a UniqueLookup, which repository.Repository implements,
// and OnCreate/OnUpdate restrict any validator to one entity state.
package validator
