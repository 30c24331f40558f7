package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var schemaFiles = map[string]string{
	TypeHello: "schemas/hello.schema.json",
	TypeInput: "schemas/input.schema.json",
	TypeFrame: "schemas/frame.schema.json",
}

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() {
	schemas = map[string]*jsonschema.Schema{}
	for typ, name := range schemaFiles {
		raw, err := schemaFS.ReadFile(name)
		if err != nil {
			schemasErr = err
			return
		}
		s, err := jsonschema.CompileString(name, string(raw))
		if err != nil {
			schemasErr = fmt.Errorf("compile %s: %w", name, err)
			return
		}
		schemas[typ] = s
	}
}

// Validate checks raw against the schema registered for typ. Types without a
// schema pass.
func Validate(typ string, raw []byte) error {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	s, ok := schemas[typ]
	if !ok {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.Validate(v)
}
