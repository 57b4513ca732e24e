package schema

import (
	"bytes"
	"encoding/json"
	"slices"
	"sort"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/contract-tester/probe/model"
)

const jsonMediaType = "application/json"

// Extraction is the request contract located for one endpoint.
type Extraction struct {
	// Path is the document path key the endpoint matched.
	Path       string
	Operation  *Operation
	SchemaName string
	// Fields follow the property order of the request schema.
	Fields []model.FieldSpec
}

// Metadata summarizes the operation for the requirements model.
func (e *Extraction) Metadata() model.Metadata {
	meta := model.Metadata{
		Summary:     e.Operation.Summary,
		Description: e.Operation.Description,
		Tags:        slices.Clone(e.Operation.Tags),
		SchemaName:  e.SchemaName,
	}
	for code := range e.Operation.Responses {
		meta.Responses = append(meta.Responses, code)
	}
	sort.Strings(meta.Responses)
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	return meta
}

// Extract locates the POST request schema of endpoint in doc.
// A missing path, operation, request schema or reference is model.ErrSchemaNotFound.
func Extract(doc *Document, endpoint string) (*Extraction, error) {
	path, err := OperationPath(endpoint)
	if err != nil {
		return nil, err
	}

	op, ok, err := doc.Operation(path, "post")
	if err != nil {
		return nil, errors.Wrapf(model.ErrSchemaNotFound, "%s", err.Error())
	}
	if !ok {
		return nil, errors.Wrapf(model.ErrSchemaNotFound, "no POST operation for %s", path)
	}
	if op.RequestBody == nil {
		return nil, errors.Wrapf(model.ErrSchemaNotFound, "POST %s has no request body", path)
	}
	media, ok := op.RequestBody.Content[jsonMediaType]
	if !ok || media.Schema == nil {
		return nil, errors.Wrapf(model.ErrSchemaNotFound, "POST %s has no %s request schema", path, jsonMediaType)
	}

	resolved, name, err := doc.Resolve(media.Schema)
	if err != nil {
		return nil, errors.Wrapf(model.ErrSchemaNotFound, "POST %s: %s", path, err.Error())
	}

	required := make(map[string]bool, len(resolved.Required))
	for _, n := range resolved.Required {
		required[n] = true
	}

	fields := make([]model.FieldSpec, 0, len(resolved.Properties.Names))
	for _, propName := range resolved.Properties.Names {
		field, err := doc.fieldSpec(propName, resolved.Properties.Values[propName], required[propName])
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", propName)
		}
		fields = append(fields, field)
	}

	return &Extraction{
		Path:       path,
		Operation:  op,
		SchemaName: name,
		Fields:     fields,
	}, nil
}

func (d *Document) fieldSpec(name string, prop *Schema, required bool) (model.FieldSpec, error) {
	node := prop
	// a property that cannot be resolved is still tested, as a string
	if resolved, _, err := d.Resolve(prop); err == nil {
		node = resolved
	}

	field := model.FieldSpec{
		Name:        name,
		Required:    required,
		Description: node.Title,
		Format:      node.Format,
	}
	if field.Description == "" {
		field.Description = node.Description
	}

	if alts := node.Alternatives(); len(alts) > 0 {
		kinds := make([]model.Kind, 0, len(alts))
		for _, alt := range alts {
			resolvedAlt := alt
			if r, _, err := d.Resolve(alt); err == nil {
				resolvedAlt = r
			}
			kinds = append(kinds, nodeKinds(resolvedAlt)...)
			if resolvedAlt.Format != "" {
				field.Format = resolvedAlt.Format
			}
		}
		field.Type = model.Union(dedupKinds(kinds)...)
	} else {
		kinds := nodeKinds(node)
		if node.Nullable && !slices.Contains(kinds, model.KindNull) {
			kinds = append(kinds, model.KindNull)
		}
		field.Type = model.Union(kinds...)
	}

	if prop.HasDefault() || node.HasDefault() {
		raw := prop.Default
		if !prop.HasDefault() {
			raw = node.Default
		}
		def, err := decodeValue(raw)
		if err != nil {
			return field, errors.Wrap(err, "decode default")
		}
		field.HasDefault = true
		field.Default = def
	}

	field.Example = ExampleFor(field)
	return field, nil
}

// nodeKinds maps a schema node's declared types onto kinds. A node without a
// type is an object when it has properties, a string otherwise.
func nodeKinds(s *Schema) []model.Kind {
	if len(s.Type) == 0 {
		if len(s.Properties.Names) > 0 {
			return []model.Kind{model.KindObject}
		}
		return []model.Kind{model.KindString}
	}
	kinds := make([]model.Kind, 0, len(s.Type))
	for _, t := range s.Type {
		kinds = append(kinds, model.ParseKind(t))
	}
	return kinds
}

func dedupKinds(kinds []model.Kind) []model.Kind {
	out := make([]model.Kind, 0, len(kinds))
	for _, k := range kinds {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

// decodeValue decodes a raw JSON value keeping integers as int64.
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.WithStack(err)
	}
	return model.NormalizeNumbers(v), nil
}
