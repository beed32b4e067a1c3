package scaffold

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-openapi/inflect"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-entity-repository/repository"
)

// Property is one field of an index mapping.
type Property struct {
	Type       string              `yaml:"type"`
	Properties map[string]Property `yaml:"properties"`
}

// Mapping is an index mapping document:
//
//	{"mappings": {"properties": {"title": {"type": "text"}}}}
//
// A bare {"properties": {...}} document is accepted too.
type Mapping struct {
	Mappings struct {
		Properties map[string]Property `yaml:"properties"`
	} `yaml:"mappings"`
	Properties map[string]Property `yaml:"properties"`
}

// ParseMapping decodes a JSON or YAML mapping.
func ParseMapping(data []byte) (Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, goerrors.Wrap(err, goerrors.CategoryBadInput, "parse mapping")
	}
	if len(m.Mappings.Properties) == 0 && len(m.Properties) == 0 {
		return m, goerrors.New("mapping declares no properties", goerrors.CategoryBadInput).
			WithTextCode("EMPTY_MAPPING")
	}
	return m, nil
}

func (m Mapping) properties() map[string]Property {
	if len(m.Mappings.Properties) > 0 {
		return m.Mappings.Properties
	}
	return m.Properties
}

// Kind classifies a field's Go type.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
	KindAny
	KindObject
	KindNested
)

// Field is a struct field derived from a mapping property.
type Field struct {
	Name string
	Wire string
	Kind Kind
	// Struct names the generated type of object and nested fields.
	Struct string
}

// Struct is a generated record type.
type Struct struct {
	Name   string
	Fields []Field
}

// Model is everything rendered for one record type.
type Model struct {
	Name  string
	Index string
	// Structs holds the record type first, then the nested types it uses.
	Structs []Struct
}

var kinds = map[string]Kind{
	"keyword":      KindString,
	"text":         KindString,
	"string":       KindString,
	"integer":      KindInt,
	"long":         KindInt,
	"short":        KindInt,
	"byte":         KindInt,
	"float":        KindFloat,
	"double":       KindFloat,
	"half_float":   KindFloat,
	"scaled_float": KindFloat,
	"boolean":      KindBool,
	"date":         KindTime,
	"object":       KindObject,
	"nested":       KindNested,
}

// BuildModel derives the record type name from name and walks the
// mapping. Fields are sorted by wire name; "id" is left to entity.Base.
func BuildModel(name string, m Mapping) (*Model, error) {
	typeName := inflect.Camelize(name)
	if typeName == "" {
		return nil, goerrors.New("record name is required", goerrors.CategoryBadInput).
			WithTextCode("MISSING_NAME")
	}
	model := &Model{
		Name:  typeName,
		Index: repository.IndexName(typeName),
	}
	model.add(typeName, m.properties())
	return model, nil
}

func (m *Model) add(name string, props map[string]Property) {
	idx := len(m.Structs)
	m.Structs = append(m.Structs, Struct{Name: name})

	wires := make([]string, 0, len(props))
	for wire := range props {
		wires = append(wires, wire)
	}
	sort.Strings(wires)

	var fields []Field
	for _, wire := range wires {
		if wire == "id" {
			continue
		}
		p := props[wire]
		f := Field{Name: goName(wire), Wire: wire, Kind: kindOf(p)}
		switch f.Kind {
		case KindObject:
			f.Struct = name + goName(wire)
			m.add(f.Struct, p.Properties)
		case KindNested:
			f.Struct = name + goName(inflect.Singularize(wire))
			m.add(f.Struct, p.Properties)
		}
		fields = append(fields, f)
	}
	m.Structs[idx].Fields = fields
}

func kindOf(p Property) Kind {
	if p.Type == "" && len(p.Properties) > 0 {
		return KindObject
	}
	if k, ok := kinds[strings.ToLower(p.Type)]; ok {
		return k
	}
	return KindAny
}

func goName(wire string) string {
	name := inflect.Camelize(strings.ReplaceAll(wire, ".", "_"))
	if name == "" || !isLetter(name[0]) {
		return fmt.Sprintf("F%s", name)
	}
	return name
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
