package wildlens

import (
	"encoding/json"
	"strings"

	"github.com/zoobzio/sentinel"
)

// schemaFor builds a JSON Schema for a Go type using sentinel metadata.
// The schema is embedded into the instruction prompt so the model knows the
// exact response shape to produce.
func schemaFor[T any]() string {
	metadata := sentinel.Inspect[T]()

	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           schemaProperties(metadata.Fields),
		"required":             schemaRequired(metadata.Fields),
		"additionalProperties": false,
	}

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(jsonBytes)
}

// schemaProperties converts field metadata to JSON Schema properties.
func schemaProperties(fields []sentinel.FieldMetadata) map[string]interface{} {
	properties := make(map[string]interface{})

	for _, field := range fields {
		name := jsonFieldName(field)
		if name == "-" {
			continue
		}

		prop := map[string]interface{}{
			"type": jsonType(field.Type),
		}
		if desc, ok := field.Tags["desc"]; ok {
			prop["description"] = desc
		}
		properties[name] = prop
	}

	return properties
}

// schemaRequired lists the fields without omitempty in their json tag.
func schemaRequired(fields []sentinel.FieldMetadata) []string {
	var required []string
	for _, field := range fields {
		name := jsonFieldName(field)
		if name == "-" {
			continue
		}
		if jsonTag, ok := field.Tags["json"]; !ok || !strings.Contains(jsonTag, "omitempty") {
			required = append(required, name)
		}
	}
	return required
}

// jsonFieldName extracts the JSON field name from metadata, falling back
// to the lower-camel form of the Go name.
func jsonFieldName(field sentinel.FieldMetadata) string {
	if jsonTag, ok := field.Tags["json"]; ok {
		parts := strings.Split(jsonTag, ",")
		if len(parts) > 0 && parts[0] != "" {
			return parts[0]
		}
	}
	return strings.ToLower(field.Name[:1]) + field.Name[1:]
}

// jsonType maps a Go type name to a JSON Schema type.
func jsonType(goType string) string {
	goType = strings.TrimPrefix(goType, "*")
	switch {
	case strings.HasPrefix(goType, "string"):
		return "string"
	case strings.HasPrefix(goType, "int"), strings.HasPrefix(goType, "uint"):
		return "integer"
	case strings.HasPrefix(goType, "float"):
		return "number"
	case strings.HasPrefix(goType, "bool"):
		return "boolean"
	case strings.HasPrefix(goType, "[]"):
		return "array"
	case strings.HasPrefix(goType, "map["):
		return "object"
	default:
		return "object"
	}
}
