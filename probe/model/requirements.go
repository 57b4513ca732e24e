package model

import (
	"encoding/json"
	"slices"

	"github.com/Laisky/errors/v2"
)

// Metadata describes the operation a requirements model was built from.
type Metadata struct {
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	SchemaName  string   `json:"schema_name,omitempty"`
	// Responses lists the status codes the operation documents, e.g. ["200", "422"].
	Responses []string `json:"responses,omitempty"`
}

// RequirementsModel is the normalized input contract of one endpoint.
//
// It is built once per analysis and treated as read-only afterwards.
// Every field name lives in exactly one of RequiredFields and OptionalFields.
type RequirementsModel struct {
	EndpointType   string               `json:"endpoint_type"`
	RequiredFields map[string]FieldSpec `json:"required_fields"`
	OptionalFields map[string]FieldSpec `json:"optional_fields"`
	Metadata       Metadata             `json:"metadata"`

	// order keeps schema declaration order so field listings and generated
	// test names are reproducible.
	order []string
}

// NewRequirementsModel splits fields into required/optional buckets, preserving their order.
func NewRequirementsModel(endpointType string, meta Metadata, fields []FieldSpec) (*RequirementsModel, error) {
	m := &RequirementsModel{
		EndpointType:   endpointType,
		RequiredFields: make(map[string]FieldSpec),
		OptionalFields: make(map[string]FieldSpec),
		Metadata:       meta,
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, errors.New("field without name")
		}
		if _, dup := m.Field(f.Name); dup {
			return nil, errors.Errorf("duplicate field %q", f.Name)
		}
		if f.Required {
			m.RequiredFields[f.Name] = f
		} else {
			m.OptionalFields[f.Name] = f
		}
		m.order = append(m.order, f.Name)
	}
	return m, nil
}

// Field looks a field up in either bucket.
func (m *RequirementsModel) Field(name string) (FieldSpec, bool) {
	if f, ok := m.RequiredFields[name]; ok {
		return f, true
	}
	f, ok := m.OptionalFields[name]
	return f, ok
}

// FieldNames lists required fields first, then optional ones, each in declaration order.
func (m *RequirementsModel) FieldNames() []string {
	names := make([]string, 0, len(m.RequiredFields)+len(m.OptionalFields))
	names = append(names, m.orderedNames(m.RequiredFields)...)
	names = append(names, m.orderedNames(m.OptionalFields)...)
	return names
}

// RequiredNames lists required fields in declaration order.
func (m *RequirementsModel) RequiredNames() []string {
	return m.orderedNames(m.RequiredFields)
}

// OptionalNames lists optional fields in declaration order.
func (m *RequirementsModel) OptionalNames() []string {
	return m.orderedNames(m.OptionalFields)
}

func (m *RequirementsModel) orderedNames(bucket map[string]FieldSpec) []string {
	names := make([]string, 0, len(bucket))
	seen := make(map[string]bool, len(bucket))
	for _, name := range m.order {
		if _, ok := bucket[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	// fields added without order information (e.g. decoded from JSON) sort by name
	var rest []string
	for name := range bucket {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}

func (m *RequirementsModel) UnmarshalJSON(data []byte) error {
	type plain RequirementsModel
	var aux plain
	if err := json.Unmarshal(data, &aux); err != nil {
		return errors.Wrap(err, "unmarshal requirements model")
	}
	*m = RequirementsModel(aux)
	if m.RequiredFields == nil {
		m.RequiredFields = make(map[string]FieldSpec)
	}
	if m.OptionalFields == nil {
		m.OptionalFields = make(map[string]FieldSpec)
	}
	for name, f := range m.RequiredFields {
		f.Name, f.Required = name, true
		m.RequiredFields[name] = f
	}
	for name, f := range m.OptionalFields {
		f.Name, f.Required = name, false
		m.OptionalFields[name] = f
	}
	return nil
}
