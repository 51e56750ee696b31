// Package spec parses report specifications: ordered variable definitions
// plus a final template reference, serialized as YAML by plugins.
package spec

import (
	"gopkg.in/yaml.v3"

	"github.com/ledgewood/folio/errors"
)

// VariableType governs how a model response is coerced before it enters the
// generation context.
type VariableType string

const (
	// TypeText uses the response verbatim, trimmed.
	TypeText VariableType = "text"
	// TypeStringList parses the response as a JSON array, stripping an
	// optional code fence first; malformed responses fall back to a
	// single-element list.
	TypeStringList VariableType = "string_list"
	// TypeMarkdown is structured text, used verbatim like TypeText but
	// signals renderers the value is markdown.
	TypeMarkdown VariableType = "markdown"
)

// Valid reports whether t is one of the declared variable types.
func (t VariableType) Valid() bool {
	switch t {
	case TypeText, TypeStringList, TypeMarkdown:
		return true
	}
	return false
}

// Variable is one declared generation step. Inputs are dotted-path
// references rooted at "bundle" or "ctx"; they name values bound into the
// prompt context but do not restrict visibility of earlier variables.
type Variable struct {
	Name       string       `yaml:"name" json:"name"`
	Type       VariableType `yaml:"type" json:"type"`
	PromptFile string       `yaml:"prompt_file" json:"prompt_file"`
	Inputs     []string     `yaml:"inputs,omitempty" json:"inputs,omitempty"`
}

// Specification is the declarative recipe for one report: variables are
// generated strictly in declared order, then TemplateFile renders the body.
type Specification struct {
	ID           string     `yaml:"id" json:"id"`
	TemplateFile string     `yaml:"template_file" json:"template_file"`
	Variables    []Variable `yaml:"variables" json:"variables"`
}

// Parse deserializes and validates a YAML specification document.
// Malformed YAML, an empty document, or structural problems (missing names,
// unknown types, no template reference) all surface as parse errors.
func Parse(data []byte) (*Specification, error) {
	var s Specification
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.WrapParse(err, "failed to parse specification document")
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// ParseString is a convenience wrapper over Parse.
func ParseString(doc string) (*Specification, error) {
	return Parse([]byte(doc))
}

func (s *Specification) validate() error {
	if s.ID == "" && s.TemplateFile == "" && len(s.Variables) == 0 {
		return errors.NewParseError("specification document is empty")
	}
	if s.ID == "" {
		return errors.NewParseError("specification id is required")
	}
	if s.TemplateFile == "" {
		return errors.NewParseError("specification %q has no template_file", s.ID)
	}
	if len(s.Variables) == 0 {
		return errors.NewParseError("specification %q declares no variables", s.ID)
	}

	for i, v := range s.Variables {
		if v.Name == "" {
			return errors.NewParseError("specification %q variable %d has no name", s.ID, i)
		}
		if !v.Type.Valid() {
			return errors.NewParseError("specification %q variable %q has unknown type %q",
				s.ID, v.Name, v.Type)
		}
		if v.PromptFile == "" {
			return errors.NewParseError("specification %q variable %q has no prompt_file", s.ID, v.Name)
		}
	}

	return nil
}

// VariableNames returns the declared variable names in execution order.
func (s *Specification) VariableNames() []string {
	names := make([]string, len(s.Variables))
	for i, v := range s.Variables {
		names[i] = v.Name
	}
	return names
}
