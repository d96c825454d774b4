package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// descriptorSchema guards against hand-edited or truncated descriptor files.
const descriptorSchema = `{
  "type": "object",
  "required": ["id", "created_at", "status", "meta", "files"],
  "properties": {
    "id": {"type": "string", "pattern": "^[0-9]{8}T[0-9]{6}Z_[0-9a-f]{12}$"},
    "created_at": {"type": "string", "format": "date-time"},
    "updated_at": {"type": "string", "format": "date-time"},
    "status": {"enum": ["pending", "done", "error"]},
    "meta": {
      "type": "object",
      "required": ["company_nip"],
      "properties": {
        "company_nip": {"type": "string"},
        "purpose": {"type": "integer"}
      }
    },
    "files": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["original_name", "stored_name", "extension"],
        "properties": {
          "original_name": {"type": "string"},
          "stored_name": {"type": "string", "pattern": "^file-[0-9]+\\.[a-z0-9]+$"},
          "extension": {"type": "string"}
        }
      }
    },
    "result_file": {"type": "string"},
    "report_file": {"type": "string"},
    "diagnostic_file": {"type": "string"},
    "record_count": {"type": "integer", "minimum": 0},
    "error": {"type": "string"}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func descriptorValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource("job_descriptor.json", bytes.NewReader([]byte(descriptorSchema))); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("job_descriptor.json")
	})
	return compiledSchema, schemaErr
}

// validateDescriptor checks raw descriptor JSON before it is decoded.
func validateDescriptor(data []byte) error {
	schema, err := descriptorValidator()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal descriptor: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("descriptor does not match schema: %w", err)
	}
	return nil
}
