package entity

import (
	"maps"
	"slices"
	"sort"
)

// State controls which validators are relevant for a record.
type State int

const (
	// Create is the default state of a record that has not been persisted.
	Create State = iota
	// Update marks a record that is being modified after it was persisted.
	Update
)

func (s State) String() string {
	if s == Update {
		return "update"
	}
	return "create"
}

// PlaceholderID is stored in place of a boolean value received for the id field.
const PlaceholderID = "_"

// DefaultHidden lists the bookkeeping properties never exported by ToMap.
var DefaultHidden = []string{
	"entity_state",
	"errors",
	"validators",
	"logger",
	"timestamps",
	"soft_deletes",
}

// Record is implemented by every type that embeds Base.
type Record interface {
	GetID() string
	SetID(id string)
	EntityState() State
	SetEntityState(state State)
	Hide(properties ...string)
	Show(properties ...string)
	Hidden() []string
	IsHidden(property string) bool
	AddValidator(property string, validator Validator)
	Errors() map[string][]string

	base() *Base
}

var _ Record = (*Base)(nil)

// Base carries the identity, state, visibility and validation bookkeeping
// shared by all records. Embed it by value:
//
//	type User struct {
//		entity.Base
//		Name  string `json:"name"`
//		Email string `json:"email"`
//	}
type Base struct {
	ID string `json:"id"`

	state      State
	hidden     map[string]struct{}
	validators []validatorEntry
	merged     map[*Registry]int
	errors     map[string][]string
}

func (b *Base) base() *Base { return b }

// GetID returns the record identifier, empty when the store has not assigned one.
func (b *Base) GetID() string { return b.ID }

// SetID assigns the record identifier.
func (b *Base) SetID(id string) { b.ID = id }

// EntityState reports whether the record is being created or updated.
func (b *Base) EntityState() State { return b.state }

// SetEntityState switches the validation context.
func (b *Base) SetEntityState(state State) { b.state = state }

// Hide excludes properties from the serialized representation. Names are
// normalized to their snake_case wire spelling.
func (b *Base) Hide(properties ...string) {
	b.ensureHidden()
	for _, p := range properties {
		b.hidden[toSnake(p)] = struct{}{}
	}
}

// Show removes properties from the hidden set.
func (b *Base) Show(properties ...string) {
	b.ensureHidden()
	for _, p := range properties {
		delete(b.hidden, toSnake(p))
	}
}

// Hidden returns the hidden wire names in sorted order.
func (b *Base) Hidden() []string {
	b.ensureHidden()
	out := make([]string, 0, len(b.hidden))
	for name := range b.hidden {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsHidden reports whether the wire name is excluded from serialization.
func (b *Base) IsHidden(property string) bool {
	if b.hidden == nil {
		return slices.Contains(DefaultHidden, property)
	}
	_, ok := b.hidden[property]
	return ok
}

// AddValidator appends a validator to the property's chain. Validators for
// the same property run in registration order.
func (b *Base) AddValidator(property string, validator Validator) {
	if validator == nil {
		return
	}
	for i := range b.validators {
		if b.validators[i].property == property {
			b.validators[i].validators = append(b.validators[i].validators, validator)
			return
		}
	}
	b.validators = append(b.validators, validatorEntry{
		property:   property,
		validators: []Validator{validator},
	})
}

// Errors returns the messages collected by the last validation pass.
func (b *Base) Errors() map[string][]string {
	out := make(map[string][]string, len(b.errors))
	for k, v := range b.errors {
		out[k] = slices.Clone(v)
	}
	return out
}

func (b *Base) ensureHidden() {
	if b.hidden != nil {
		return
	}
	b.hidden = make(map[string]struct{}, len(DefaultHidden))
	for _, name := range DefaultHidden {
		b.hidden[name] = struct{}{}
	}
}

// detach replaces every reference type held by the bookkeeping state with a
// private copy so a cloned record never aliases its source.
func (b *Base) detach() {
	if b.hidden != nil {
		b.hidden = maps.Clone(b.hidden)
	}
	if b.merged != nil {
		b.merged = maps.Clone(b.merged)
	}
	if b.errors != nil {
		b.errors = b.Errors()
	}
	if b.validators != nil {
		entries := make([]validatorEntry, len(b.validators))
		for i, entry := range b.validators {
			entries[i] = validatorEntry{
				property:   entry.property,
				validators: cloneValidators(entry.validators),
			}
		}
		b.validators = entries
	}
}
