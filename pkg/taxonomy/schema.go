package taxonomy

import (
	"reflect"

	"github.com/cellannotation/cas/pkg/common"

	"github.com/invopop/jsonschema"
)

// GenerateSchema creates a JSON Schema from the given Go type using
// reflection. Definitions are inlined.
func GenerateSchema(value any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	v := reflect.New(t).Interface()
	return reflector.Reflect(v)
}

// AnnotationSchema returns the JSON Schema of a single annotation record.
func AnnotationSchema() *jsonschema.Schema {
	return GenerateSchema(common.Annotation{})
}

// DocumentSchema returns the JSON Schema of a full taxonomy document.
func DocumentSchema() *jsonschema.Schema {
	return GenerateSchema(common.Taxonomy{})
}
