package completion

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled JSON schema together with its source text, which is also
// shown to the model.
type Schema struct {
	name     string
	source   string
	compiled *jsonschema.Schema
}

func CompileSchema(name, source string) (*Schema, error) {
	compiled, err := jsonschema.CompileString(name+".json", source)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, source: source, compiled: compiled}, nil
}

func MustCompileSchema(name, source string) *Schema {
	s, err := CompileSchema(name, source)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string {
	if s == nil {
		return "none"
	}
	return s.name
}

func (s *Schema) Source() string { return s.source }

// Validate checks that raw is a JSON document accepted by the schema.
func (s *Schema) Validate(raw []byte) error {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("output is not JSON: %w", err)
	}
	return s.compiled.Validate(doc)
}

const claimDescriptionProperties = `
    "objectDescription": {"type": "string", "minLength": 1},
    "damageDescription": {"type": "string", "minLength": 1},
    "locationOfIncident": {"type": "string", "minLength": 1},
    "involvedParties": {"type": "string", "minLength": 1}`

var (
	// ClaimDescriptionSchema is the output of the intake step.
	ClaimDescriptionSchema = MustCompileSchema("claim_description", `{
  "type": "object",
  "properties": {`+claimDescriptionProperties+`
  },
  "required": ["objectDescription", "damageDescription", "locationOfIncident", "involvedParties"],
  "additionalProperties": false
}`)

	CompletenessSchema = MustCompileSchema("completeness", `{
  "type": "object",
  "properties": {
    "complete": {"enum": ["complete", "incomplete"]},
    "requestForInfo": {"type": "string"}
  },
  "required": ["complete", "requestForInfo"],
  "additionalProperties": false
}`)

	InterviewSchema = MustCompileSchema("interview_response", `{
  "type": "object",
  "properties": {
    "status": {"enum": ["complete", "incomplete"]},
    "refinedDescription": {
      "type": "object",
      "properties": {`+claimDescriptionProperties+`
      },
      "required": ["objectDescription", "damageDescription", "locationOfIncident", "involvedParties"],
      "additionalProperties": false
    },
    "message": {"type": "string"}
  },
  "required": ["status", "refinedDescription", "message"],
  "additionalProperties": false
}`)
)
