package content

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed schema/unit.schema.json
var unitSchemaJSON []byte

const unitSchemaURL = "schema://palabras/unit.schema.json"

var (
	unitSchemaOnce sync.Once
	unitSchema     *jsonschema.Schema
	unitSchemaErr  error
)

func compiledUnitSchema() (*jsonschema.Schema, error) {
	unitSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(unitSchemaJSON))
		if err != nil {
			unitSchemaErr = fmt.Errorf("parse unit schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(unitSchemaURL, doc); err != nil {
			unitSchemaErr = fmt.Errorf("add unit schema: %w", err)
			return
		}
		unitSchema, unitSchemaErr = c.Compile(unitSchemaURL)
	})
	return unitSchema, unitSchemaErr
}

// parseDocument decodes a unit file into the generic JSON value model the
// schema validator works on. YAML goes through JSON so numbers and maps
// take the same shape in both formats.
func parseDocument(data []byte, isYAML bool) (any, error) {
	if !isYAML {
		return jsonschema.UnmarshalJSON(bytes.NewReader(data))
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}

// ValidateUnit checks a unit file's contents against the unit schema.
// Syntax errors are returned as is; schema violations wrap
// ErrInvalidUnit.
func ValidateUnit(data []byte, isYAML bool) error {
	doc, err := parseDocument(data, isYAML)
	if err != nil {
		return err
	}
	schema, err := compiledUnitSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUnit, err)
	}
	return nil
}
