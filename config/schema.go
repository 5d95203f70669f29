package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of a rig file. Rig files may be written as JSON too since
// JSON documents are valid YAML.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&RigConfig{})
}

// SchemaJSON returns Schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}
