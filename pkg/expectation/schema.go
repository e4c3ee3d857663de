package expectation

import (
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// wireSchema is the structural contract of the expectation wire format.
// Unknown keys at any level and matcher objects that do not carry exactly
// one tagged operation are rejected here, before the Go-side checks run.
const wireSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "id": {"type": "string"},
    "priority": {"type": "integer"},
    "scenarioName": {"type": ["string", "null"]},
    "scenarioStateIs": {"type": ["string", "null"]},
    "newScenarioState": {"type": ["string", "null"]},
    "request": {"$ref": "#/$defs/request"},
    "response": {"$ref": "#/$defs/response"},
    "proxyTo": {"type": ["string", "null"]}
  },
  "$defs": {
    "matcher": {
      "oneOf": [
        {"type": "string"},
        {
          "type": "object",
          "minProperties": 1,
          "maxProperties": 1,
          "additionalProperties": false,
          "properties": {
            "isEqualTo": {"type": "string"},
            "isSameString": {"type": "string"},
            "matches": {"type": "string"},
            "contains": {"type": "string"}
          }
        }
      ]
    },
    "request": {
      "type": ["object", "null"],
      "additionalProperties": false,
      "properties": {
        "method": {"$ref": "#/$defs/matcher"},
        "url": {"$ref": "#/$defs/matcher"},
        "body": {"$ref": "#/$defs/matcher"},
        "headers": {
          "type": "object",
          "additionalProperties": {"$ref": "#/$defs/matcher"}
        },
        "formFields": {
          "type": "object",
          "additionalProperties": {"$ref": "#/$defs/matcher"}
        }
      }
    },
    "response": {
      "type": ["object", "null"],
      "additionalProperties": false,
      "properties": {
        "statusCode": {"type": "integer", "minimum": 100, "maximum": 599},
        "body": {"type": "string"},
        "bodyFileName": {"type": "string"},
        "headers": {
          "type": "object",
          "additionalProperties": {"type": "string"}
        },
        "delayMillis": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

var (
	schemaOnce    sync.Once
	schemaFull    *jsonschema.Schema
	schemaPattern *jsonschema.Schema
	schemaErr     error
)

// schemas compiles the wire schema lazily. The pattern schema is the
// request fragment compiled standalone so journal searches validate the
// same way expectation patterns do.
func schemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if schemaErr = c.AddResource("expectation.json", strings.NewReader(wireSchema)); schemaErr != nil {
			return
		}
		if schemaFull, schemaErr = c.Compile("expectation.json"); schemaErr != nil {
			return
		}
		schemaPattern, schemaErr = c.Compile("expectation.json#/$defs/request")
	})
	return schemaFull, schemaPattern, schemaErr
}
