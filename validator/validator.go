package validator

import (
	"context"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/goliatone/go-entity-repository/entity"
)

// base carries the configuration every validator receives before a run
// and the messages it collected, keyed by property.
type base struct {
	state      entity.State
	property   string
	identifier string
	errors     map[string][]string
}

func (b *base) SetContext(state entity.State)   { b.state = state }
func (b *base) SetProperty(property string)     { b.property = property }
func (b *base) SetIdentifier(identifier string) { b.identifier = identifier }

func (b *base) fail(message string) bool {
	if b.errors == nil {
		b.errors = make(map[string][]string)
	}
	b.errors[b.property] = append(b.errors[b.property], message)
	return false
}

// ConsumeErrors returns the messages collected for property and forgets them.
func (b *base) ConsumeErrors(property string) []string {
	msgs := b.errors[property]
	delete(b.errors, property)
	return msgs
}

// RuleValidator adapts ozzo-validation rules to the entity.Validator contract.
type RuleValidator struct {
	base
	rules []validation.Rule
}

var (
	_ entity.Validator = (*RuleValidator)(nil)
	_ entity.Cloner    = (*RuleValidator)(nil)
)

// Rules builds a validator that applies the rules in order and reports the
// first failure.
func Rules(rules ...validation.Rule) *RuleValidator {
	return &RuleValidator{rules: rules}
}

// Required rejects nil and empty values.
func Required() *RuleValidator {
	return Rules(validation.Required)
}

// Length bounds the length of strings, slices and maps. Zero max means no
// upper bound. Empty values pass; combine with Required to reject them.
func Length(min, max int) *RuleValidator {
	return Rules(validation.Length(min, max))
}

// Email checks the value is a well formed email address. The domain is not
// resolved.
func Email() *RuleValidator {
	return Rules(is.EmailFormat)
}

// Match checks the value against re.
func Match(re *regexp.Regexp) *RuleValidator {
	return Rules(validation.Match(re))
}

// In checks the value is one of values.
func In(values ...any) *RuleValidator {
	return Rules(validation.In(values...))
}

// Validate implements entity.Validator.
func (v *RuleValidator) Validate(ctx context.Context, value any) bool {
	if err := validation.ValidateWithContext(ctx, value, v.rules...); err != nil {
		return v.fail(err.Error())
	}
	return true
}

// Clone implements entity.Cloner.
func (v *RuleValidator) Clone() entity.Validator {
	return &RuleValidator{rules: v.rules}
}
