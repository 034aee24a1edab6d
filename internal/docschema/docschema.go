// Package docschema validates decoded YAML documents against JSON Schemas.
package docschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Schema is a compiled JSON Schema, safe for concurrent use.
type Schema struct {
	name string
	raw  []byte

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// New wraps a JSON Schema document. Compilation happens on first use.
func New(name string, raw []byte) *Schema {
	return &Schema{name: name, raw: raw}
}

func (s *Schema) compile() (*jsonschema.Schema, error) {
	s.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		// Documents are self-contained; refuse to fetch anything.
		compiler.LoadURL = func(url string) (io.ReadCloser, error) {
			return nil, fmt.Errorf("remote $ref not allowed: %s", url)
		}

		url := "schema://" + resourceName(s.name) + ".json"
		if err := compiler.AddResource(url, bytes.NewReader(s.raw)); err != nil {
			s.err = fmt.Errorf("load schema %s: %w", s.name, err)
			return
		}
		s.compiled, s.err = compiler.Compile(url)
		if s.err != nil {
			s.err = fmt.Errorf("compile schema %s: %w", s.name, s.err)
		}
	})
	return s.compiled, s.err
}

// resourceName maps a document label to a host-safe name: "prototype catalog"
// becomes "prototype-catalog".
func resourceName(label string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, label)
	if name == "" {
		return "document"
	}
	return name
}

// ValidateYAML decodes data as YAML and validates it.
func (s *Schema) ValidateYAML(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return s.Validate(doc)
}

// Validate checks a decoded document. YAML-decoded values are normalized to
// their JSON equivalents first.
func (s *Schema) Validate(doc any) error {
	compiled, err := s.compile()
	if err != nil {
		return err
	}

	normalized, err := toJSONValue(doc)
	if err != nil {
		return err
	}

	if err := compiled.Validate(normalized); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return &Error{Document: s.name, Problems: leafProblems(verr)}
		}
		return err
	}
	return nil
}

// Error lists every schema violation found in a document.
type Error struct {
	Document string
	Problems []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Document, strings.Join(e.Problems, "; "))
}

func leafProblems(verr *jsonschema.ValidationError) []string {
	var out []string
	var walk func(v *jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if len(v.Causes) == 0 {
			loc := v.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, loc+": "+v.Message)
			return
		}
		for _, c := range v.Causes {
			walk(c)
		}
	}
	walk(verr)
	sort.Strings(out)
	return out
}

func toJSONValue(doc any) (any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	return out, nil
}
