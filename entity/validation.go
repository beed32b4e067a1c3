package entity

import (
	"context"
	"reflect"
	"slices"

	"github.com/puzpuzpuz/xsync/v3"
)

// Validator checks a single property value. Validators are configured with
// the record state, the property name and the record identifier before each
// call to Validate; messages produced by a failing run are drained through
// ConsumeErrors.
type Validator interface {
	SetContext(state State)
	SetProperty(name string)
	SetIdentifier(id string)
	Validate(ctx context.Context, value any) bool
	ConsumeErrors(property string) []string
}

// Cloner is implemented by validators that keep per-run state and must not
// be shared between records.
type Cloner interface {
	Clone() Validator
}

type validatorEntry struct {
	property   string
	validators []Validator
}

func cloneValidators(in []Validator) []Validator {
	out := make([]Validator, len(in))
	for i, v := range in {
		if c, ok := v.(Cloner); ok {
			out[i] = c.Clone()
			continue
		}
		out[i] = v
	}
	return out
}

// Batch is an ordered group of property validators registered together.
type Batch struct {
	entries []validatorEntry
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Add appends validators for property, keeping registration order.
func (b *Batch) Add(property string, validators ...Validator) *Batch {
	for i := range b.entries {
		if b.entries[i].property == property {
			b.entries[i].validators = append(b.entries[i].validators, validators...)
			return b
		}
	}
	b.entries = append(b.entries, validatorEntry{property: property, validators: slices.Clone(validators)})
	return b
}

// Properties lists the properties covered by the batch in order.
func (b *Batch) Properties() []string {
	out := make([]string, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.property
	}
	return out
}

// Registry holds validator batches registered from outside a record, keyed
// by the concrete record type.
type Registry struct {
	batches *xsync.MapOf[reflect.Type, []*Batch]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{batches: xsync.NewMapOf[reflect.Type, []*Batch]()}
}

// Register appends a batch for the owner type. owner may be a value, a
// pointer or a reflect.Type.
func (r *Registry) Register(owner any, batch *Batch) {
	if batch == nil {
		return
	}
	r.batches.Compute(ownerType(owner), func(old []*Batch, _ bool) ([]*Batch, bool) {
		return append(slices.Clone(old), batch), false
	})
}

// Batches returns the batches registered for the owner type.
func (r *Registry) Batches(owner any) []*Batch {
	if r == nil {
		return nil
	}
	batches, _ := r.batches.Load(ownerType(owner))
	return batches
}

// merge appends batches registered since the last merge to the record's
// local chain. Each batch is merged once per record.
func (b *Base) merge(reg *Registry, batches []*Batch) {
	if b.merged == nil {
		b.merged = make(map[*Registry]int)
	}
	done := b.merged[reg]
	if done >= len(batches) {
		return
	}
	for _, batch := range batches[done:] {
		for _, entry := range batch.entries {
			b.validators = append(b.validators, validatorEntry{
				property:   entry.property,
				validators: cloneValidators(entry.validators),
			})
		}
	}
	b.merged[reg] = len(batches)
}

// Validate runs the validator chain of r and reports whether it passed.
// Errors from the previous run are discarded first. When a property appears
// in more than one batch only the first batch encountered is run. Within a
// property every validator runs and the last failing one owns the error slot.
func Validate(ctx context.Context, r Record, reg *Registry) bool {
	b := r.base()
	b.errors = make(map[string][]string)
	if reg != nil {
		b.merge(reg, reg.Batches(r))
	}

	visited := make(map[string]struct{}, len(b.validators))
	for _, entry := range b.validators {
		if _, seen := visited[entry.property]; seen {
			continue
		}
		visited[entry.property] = struct{}{}

		value, _ := Get(r, entry.property)
		for _, v := range entry.validators {
			v.SetContext(b.state)
			v.SetProperty(entry.property)
			v.SetIdentifier(b.ID)
			if !v.Validate(ctx, value) {
				msgs := v.ConsumeErrors(entry.property)
				if msgs == nil {
					msgs = []string{}
				}
				b.errors[entry.property] = msgs
			}
		}
	}

	return len(b.errors) == 0
}
