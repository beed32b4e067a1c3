package validator

import (
	"context"

	"github.com/goliatone/go-entity-repository/entity"
)

// Scoped runs the wrapped validator only while the record is in one state.
type Scoped struct {
	state entity.State
	inner entity.Validator

	current entity.State
}

var (
	_ entity.Validator = (*Scoped)(nil)
	_ entity.Cloner    = (*Scoped)(nil)
)

// OnCreate runs v only for records about to be created.
func OnCreate(v entity.Validator) *Scoped {
	return &Scoped{state: entity.Create, inner: v}
}

// OnUpdate runs v only for records about to be updated.
func OnUpdate(v entity.Validator) *Scoped {
	return &Scoped{state: entity.Update, inner: v}
}

func (s *Scoped) SetContext(state entity.State) {
	s.current = state
	s.inner.SetContext(state)
}

func (s *Scoped) SetProperty(property string)     { s.inner.SetProperty(property) }
func (s *Scoped) SetIdentifier(identifier string) { s.inner.SetIdentifier(identifier) }

func (s *Scoped) Validate(ctx context.Context, value any) bool {
	if s.current != s.state {
		return true
	}
	return s.inner.Validate(ctx, value)
}

func (s *Scoped) ConsumeErrors(property string) []string {
	return s.inner.ConsumeErrors(property)
}

// Clone implements entity.Cloner.
func (s *Scoped) Clone() entity.Validator {
	inner := s.inner
	if c, ok := inner.(entity.Cloner); ok {
		inner = c.Clone()
	}
	return &Scoped{state: s.state, inner: inner}
}
