// Package argschema validates a source factory's named/positional
// argument map against a small JSON Schema before the factory builds its
// operator, the way the teacher's core/types parameter-schema validator
// checks decorator parameters before a decorator is constructed.
package argschema

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema wraps a compiled JSON Schema for one source factory's arguments.
type Schema struct {
	compiled *jsonschema.Schema
	name     string
}

// Compile builds a Schema from a JSON Schema document. name identifies
// the schema in error messages (typically the factory name, e.g.
// "files").
func Compile(name, schemaJSON string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	url := name + ".json"
	if err := compiler.AddResource(url, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("argschema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("argschema %s: %w", name, err)
	}
	return &Schema{compiled: compiled, name: name}, nil
}

// MustCompile is Compile, panicking on error; used for the package-level
// schemas each source factory registers at init time.
func MustCompile(name, schemaJSON string) *Schema {
	s, err := Compile(name, schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks args (a JSON-like map of string/float64/bool/nil)
// against the schema, returning a descriptive error naming this
// factory's surface syntax on failure.
func (s *Schema) Validate(args map[string]any) error {
	if err := s.compiled.Validate(args); err != nil {
		return fmt.Errorf("%s(...): invalid arguments: %w", s.name, err)
	}
	return nil
}
