// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package config

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the generated config schema.
const SchemaID = "https://fraudguard.dev/schemas/config.schema.json"

var durationType = reflect.TypeOf(time.Duration(0))

// compiledSchema compiles the config schema once.
var compiledSchema = sync.OnceValues(func() (*jschema.Schema, error) {
	schemaBytes, err := GenerateSchema()
	if err != nil {
		return nil, err
	}

	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, oops.Code(CodeSchema).Wrapf(err, "parse schema JSON")
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("config.schema.json", schemaData); err != nil {
		return nil, oops.Code(CodeSchema).Wrapf(err, "add schema resource")
	}
	sch, err := c.Compile("config.schema.json")
	if err != nil {
		return nil, oops.Code(CodeSchema).Wrapf(err, "compile schema")
	}
	return sch, nil
})

// GenerateSchema generates a JSON Schema from the Config struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == durationType {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
					Description: "Go duration string, for example 10s or 24h",
				}
			}
			return nil
		},
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "FraudGuard Server Configuration"
	schema.Description = "Schema for fraudguard YAML config files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code(CodeSchema).Wrapf(err, "marshal schema")
	}
	return data, nil
}

// ValidateSchema validates YAML config data against the generated schema.
// Empty data is a valid, empty config.
func ValidateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code(CodeSchema).Wrapf(err, "invalid YAML")
	}
	if doc == nil {
		return nil
	}

	// yaml.v3 decodes into Go types; a JSON round-trip yields the types the
	// validator expects.
	raw, err := json.Marshal(doc)
	if err != nil {
		return oops.Code(CodeSchema).Wrapf(err, "convert YAML to JSON")
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.Code(CodeSchema).Wrapf(err, "decode JSON")
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		return oops.Code(CodeSchema).Wrapf(err, "schema validation failed")
	}
	return nil
}
