// Package structured decodes model JSON responses against a JSON schema.
//
// Decode distinguishes three failures: the text is not JSON at all
// (domain.KindMalformedJSON), it is JSON of the wrong shape (domain.KindShapeMismatch),
// and the caller's own invariant checks, which run after a successful decode.
package structured

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/gomtr72/question-generator/internal/domain"
)

// Schema is a named JSON schema definition.
type Schema struct {
	Name       string
	Definition map[string]any
}

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// Decode parses raw model output into dst after validating it against schema.
// Markdown code fences around the payload are tolerated.
func Decode(stage domain.Stage, raw string, schema *Schema, dst any) error {
	payload := StripFences(raw)
	if payload == "" {
		return &domain.SynthesisError{
			Stage:   stage,
			Kind:    domain.KindMalformedJSON,
			Message: "empty response",
		}
	}

	var parsed any
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return &domain.SynthesisError{
			Stage:   stage,
			Kind:    domain.KindMalformedJSON,
			Message: "response is not valid JSON",
			Err:     err,
		}
	}

	if schema != nil {
		compiled, err := compile(schema)
		if err != nil {
			return fmt.Errorf("structured: compile schema %q: %w", schema.Name, err)
		}
		if err := compiled.Validate(parsed); err != nil {
			return &domain.SynthesisError{
				Stage:   stage,
				Kind:    domain.KindShapeMismatch,
				Message: "response does not match " + schema.Name,
				Err:     err,
			}
		}
	}

	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return &domain.SynthesisError{
			Stage:   stage,
			Kind:    domain.KindShapeMismatch,
			Message: "response does not fit target type",
			Err:     err,
		}
	}
	return nil
}

// StripFences removes a surrounding ``` or ```json fence and whitespace.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language tag line
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func compile(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a generic JSON value, not Go maps with typed slices.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}
	var def any
	if err := json.Unmarshal(defBytes, &def); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
