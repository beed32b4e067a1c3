package repository

import (
	"reflect"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/goliatone/go-entity-repository/entity"
)

var indexSuffixes = []string{"Repository", "Entity"}

// IndexName derives an index name from a type name: a trailing
// "Repository" or "Entity" is stripped and the rest is snake_cased and
// pluralized, so "UserProfileRepository" becomes "user_profiles".
func IndexName(typeName string) string {
	if i := strings.LastIndex(typeName, "."); i >= 0 {
		typeName = typeName[i+1:]
	}
	typeName = strings.TrimLeft(typeName, "*")
	for _, suffix := range indexSuffixes {
		if trimmed := strings.TrimSuffix(typeName, suffix); trimmed != "" {
			typeName = trimmed
		}
	}
	return inflection.Plural(entity.SnakeCase(typeName))
}

func indexFor[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return IndexName(t.Name())
}
