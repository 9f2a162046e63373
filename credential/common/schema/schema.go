// Package schema validates the structure of DID documents, credentials and
// presentations against embedded JSON Schemas.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Validator validates documents against one compiled schema.
type Validator struct {
	name   string
	schema *gojsonschema.Schema
}

// Validators for each artifact type.
var (
	DIDDocument  = mustLoad("did_document.json")
	Credential   = mustLoad("credential.json")
	Presentation = mustLoad("presentation.json")
)

func mustLoad(name string) *Validator {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("schema: read %s: %v", name, err))
	}

	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		panic(fmt.Sprintf("schema: compile %s: %v", name, err))
	}

	return &Validator{name: strings.TrimSuffix(name, ".json"), schema: s}
}

// Validate checks doc against the schema.
//
// doc may be raw JSON ([]byte or json.RawMessage) or a decoded Go value.
// The returned error describes the first violation.
func (v *Validator) Validate(doc any) error {
	var loader gojsonschema.JSONLoader
	switch d := doc.(type) {
	case nil:
		return fmt.Errorf("document is nil")
	case json.RawMessage:
		loader = gojsonschema.NewBytesLoader(d)
	case []byte:
		loader = gojsonschema.NewBytesLoader(d)
	default:
		loader = gojsonschema.NewGoLoader(d)
	}

	res, err := v.schema.Validate(loader)
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", v.name, err)
	}
	if res.Valid() {
		return nil
	}

	return fmt.Errorf("%s", describe(res.Errors()[0]))
}

func describe(e gojsonschema.ResultError) string {
	if e.Type() == "required" {
		if prop, ok := e.Details()["property"]; ok {
			field := fmt.Sprint(prop)
			if parent := e.Field(); parent != "(root)" {
				field = parent + "." + field
			}
			return "Missing required field: " + field
		}
	}
	if e.Field() == "(root)" {
		return e.Description()
	}

	return e.Field() + ": " + e.Description()
}
