// Package validation enforces the plugin manifest schema.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// manifestSchema is the JSON Schema every plugin.json must satisfy.
// Name and version are required; main and dependencies are optional.
const manifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "version"],
  "properties": {
    "name": {
      "type": "string",
      "minLength": 1
    },
    "version": {
      "type": "string",
      "minLength": 1
    },
    "main": {
      "type": "string"
    },
    "dependencies": {
      "type": "object",
      "additionalProperties": {
        "type": "string"
      }
    }
  }
}`

// ManifestValidator validates raw manifest bytes against the schema before
// they are decoded into domain types.
type ManifestValidator struct {
	schema *jsonschema.Schema
}

// NewManifestValidator compiles the embedded manifest schema.
func NewManifestValidator() (*ManifestValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("manifest.schema.json", strings.NewReader(manifestSchema)); err != nil {
		return nil, fmt.Errorf("failed to add manifest schema: %w", err)
	}
	schema, err := compiler.Compile("manifest.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile manifest schema: %w", err)
	}
	return &ManifestValidator{schema: schema}, nil
}

// Validate checks raw manifest JSON against the schema.
func (v *ManifestValidator) Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("manifest is not valid JSON: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("manifest violates schema: %w", err)
	}
	return nil
}
