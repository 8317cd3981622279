package processing

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates a JSON schema for structured outputs
func GenerateSchema[T any]() interface{} {
	// Structured Outputs uses a subset of JSON schema
	// These flags are necessary to comply with the subset
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

// videoScriptSchema is the cached schema handed to the text model.
var videoScriptSchema = GenerateSchema[VideoScript]()

// schemaText renders a schema for inclusion in a prompt.
func schemaText(schema interface{}) string {
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
