package schema

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"
)

// Document is the subset of an OpenAPI description this package reads.
type Document struct {
	Paths      map[string]PathItem `json:"paths"`
	Components struct {
		Schemas map[string]*Schema `json:"schemas"`
	} `json:"components"`
}

// PathItem maps lower-case HTTP verbs to raw operations. Operations are decoded
// lazily because path items also carry non-operation keys such as "parameters".
type PathItem map[string]json.RawMessage

// Operation is one verb of a path item.
type Operation struct {
	Summary     string                     `json:"summary"`
	Description string                     `json:"description"`
	OperationID string                     `json:"operationId"`
	Tags        []string                   `json:"tags"`
	RequestBody *RequestBody               `json:"requestBody"`
	Responses   map[string]json.RawMessage `json:"responses"`
}

type RequestBody struct {
	Required bool                 `json:"required"`
	Content  map[string]MediaType `json:"content"`
}

type MediaType struct {
	Schema *Schema `json:"schema"`
}

// Schema is a JSON schema node.
type Schema struct {
	Ref         string          `json:"$ref"`
	Type        TypeList        `json:"type"`
	Format      string          `json:"format"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Default     json.RawMessage `json:"default"`
	Enum        []any           `json:"enum"`
	Properties  Properties      `json:"properties"`
	Required    []string        `json:"required"`
	Items       *Schema         `json:"items"`
	AnyOf       []*Schema       `json:"anyOf"`
	OneOf       []*Schema       `json:"oneOf"`
	AllOf       []*Schema       `json:"allOf"`
	Nullable    bool            `json:"nullable"`
}

// HasDefault reports whether the node declares a default, including an explicit null.
func (s *Schema) HasDefault() bool {
	return s != nil && len(bytes.TrimSpace(s.Default)) > 0
}

// Alternatives returns the anyOf/oneOf branches.
func (s *Schema) Alternatives() []*Schema {
	if len(s.AnyOf) > 0 {
		return s.AnyOf
	}
	return s.OneOf
}

// TypeList accepts both "type": "string" and the OpenAPI 3.1 form "type": ["string", "null"].
type TypeList []string

func (t *TypeList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = TypeList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.Wrap(err, "schema type must be a string or list of strings")
	}
	*t = many
	return nil
}

// Properties keeps object properties in document order.
type Properties struct {
	Names  []string
	Values map[string]*Schema
}

func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "read properties")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Errorf("properties must be an object, got %v", tok)
	}

	p.Names = nil
	p.Values = make(map[string]*Schema)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "read property name")
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.Errorf("property name must be a string, got %v", keyTok)
		}

		var child Schema
		if err := dec.Decode(&child); err != nil {
			return errors.Wrapf(err, "decode property %q", key)
		}
		if _, dup := p.Values[key]; !dup {
			p.Names = append(p.Names, key)
		}
		p.Values[key] = &child
	}
	if _, err := dec.Token(); err != nil {
		return errors.Wrap(err, "read properties end")
	}
	return nil
}

func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range p.Names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		val, err := json.Marshal(p.Values[name])
		if err != nil {
			return nil, errors.Wrapf(err, "marshal property %q", name)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseDocument decodes a schema description document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode schema document")
	}
	return &doc, nil
}

// Operation decodes the operation for verb on path, if any.
func (d *Document) Operation(path, verb string) (*Operation, bool, error) {
	item, ok := d.lookupPath(path)
	if !ok {
		return nil, false, nil
	}
	raw, ok := item[strings.ToLower(verb)]
	if !ok {
		return nil, false, nil
	}
	var op Operation
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, false, errors.Wrapf(err, "decode %s %s", strings.ToUpper(verb), path)
	}
	return &op, true, nil
}

func (d *Document) lookupPath(path string) (PathItem, bool) {
	if item, ok := d.Paths[path]; ok {
		return item, true
	}
	if alt := strings.TrimSuffix(path, "/"); alt != path {
		item, ok := d.Paths[alt]
		return item, ok
	}
	item, ok := d.Paths[path+"/"]
	return item, ok
}

// refPrefix is the only reference form resolved: local component schemas.
const refPrefix = "#/components/schemas/"

// maxRefDepth bounds reference chains so self-referencing schemas terminate.
const maxRefDepth = 16

// Resolve follows $ref (and single-branch allOf) until it reaches a concrete node.
// It returns the node and the name of the last component schema visited.
func (d *Document) Resolve(s *Schema) (*Schema, string, error) {
	name := ""
	for range maxRefDepth {
		switch {
		case s == nil:
			return nil, name, errors.New("nil schema")
		case s.Ref != "":
			if !strings.HasPrefix(s.Ref, refPrefix) {
				return nil, name, errors.Errorf("unsupported reference %q", s.Ref)
			}
			name = unescapePointer(strings.TrimPrefix(s.Ref, refPrefix))
			target, ok := d.Components.Schemas[name]
			if !ok || target == nil {
				return nil, name, errors.Errorf("referenced schema %q not found", name)
			}
			s = target
		case len(s.AllOf) == 1 && len(s.Type) == 0 && len(s.Properties.Names) == 0:
			inner := *s.AllOf[0]
			if inner.Title == "" {
				inner.Title = s.Title
			}
			if !inner.HasDefault() && s.HasDefault() {
				inner.Default = s.Default
			}
			s = &inner
		default:
			return s, name, nil
		}
	}
	return nil, name, errors.Errorf("reference chain deeper than %d", maxRefDepth)
}

func unescapePointer(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}
