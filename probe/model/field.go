package model

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/Laisky/errors/v2"
)

// Kind is a JSON schema primitive type.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindNull    Kind = "null"
)

// ParseKind maps a schema type name onto a Kind. Unknown names resolve to KindString.
func ParseKind(name string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case KindString, KindInteger, KindNumber, KindBoolean, KindObject, KindArray, KindNull:
		return k
	default:
		return KindString
	}
}

// FieldType is either a single Kind or a union of alternative kinds (anyOf / oneOf).
//
// The zero value is not valid; use Scalar or Union.
type FieldType struct {
	kinds []Kind
}

// Scalar returns a single-kind type.
func Scalar(k Kind) FieldType {
	return FieldType{kinds: []Kind{k}}
}

// Union returns a union over kinds. A union of one kind collapses to Scalar.
// An empty union resolves to string.
func Union(kinds ...Kind) FieldType {
	if len(kinds) == 0 {
		return Scalar(KindString)
	}
	return FieldType{kinds: slices.Clone(kinds)}
}

// IsUnion reports whether the type declares more than one alternative.
func (t FieldType) IsUnion() bool {
	return len(t.kinds) > 1
}

// Kinds returns the declared alternatives in declaration order.
func (t FieldType) Kinds() []Kind {
	if len(t.kinds) == 0 {
		return []Kind{KindString}
	}
	return slices.Clone(t.kinds)
}

// Primary is the kind of a scalar type or the first non-null alternative of a union.
func (t FieldType) Primary() Kind {
	for _, k := range t.Kinds() {
		if k != KindNull {
			return k
		}
	}
	return t.Kinds()[0]
}

// Is reports whether t is exactly the scalar kind k.
func (t FieldType) Is(k Kind) bool {
	return !t.IsUnion() && t.Primary() == k
}

// Accepts reports whether k is one of the alternatives of t.
func (t FieldType) Accepts(k Kind) bool {
	return slices.Contains(t.Kinds(), k)
}

func (t FieldType) String() string {
	if !t.IsUnion() {
		return string(t.Primary())
	}
	parts := make([]string, 0, len(t.kinds))
	for _, k := range t.kinds {
		parts = append(parts, string(k))
	}
	return strings.Join(parts, "|")
}

// MarshalJSON renders a scalar as "string" and a union as ["string","null"].
func (t FieldType) MarshalJSON() ([]byte, error) {
	if !t.IsUnion() {
		return json.Marshal(string(t.Primary()))
	}
	return json.Marshal(t.kinds)
}

func (t *FieldType) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = Scalar(ParseKind(single))
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.Wrap(err, "field type must be a string or a list of strings")
	}
	kinds := make([]Kind, 0, len(many))
	for _, name := range many {
		kinds = append(kinds, ParseKind(name))
	}
	*t = Union(kinds...)
	return nil
}

// MarshalYAML lets plan files carry field types in the same shape as JSON.
func (t FieldType) MarshalYAML() (any, error) {
	if !t.IsUnion() {
		return string(t.Primary()), nil
	}
	out := make([]string, 0, len(t.kinds))
	for _, k := range t.kinds {
		out = append(out, string(k))
	}
	return out, nil
}

// FieldSpec describes one input field of the endpoint under test.
type FieldSpec struct {
	Name        string    `json:"-"`
	Type        FieldType `json:"type"`
	Format      string    `json:"format,omitempty"`
	Required    bool      `json:"required"`
	Description string    `json:"description"`
	// HasDefault distinguishes an explicit null/zero default from no default.
	HasDefault bool `json:"-"`
	Default    any  `json:"-"`
	// Example is always set once the field has been built by the schema extractor.
	Example any `json:"example"`
}

func (f FieldSpec) MarshalJSON() ([]byte, error) {
	type plain FieldSpec
	if !f.HasDefault {
		return json.Marshal(plain(f))
	}
	return json.Marshal(struct {
		plain
		Default any `json:"default"`
	}{plain(f), f.Default})
}

func (f *FieldSpec) UnmarshalJSON(data []byte) error {
	type plain FieldSpec
	var aux struct {
		plain
		Default json.RawMessage `json:"default"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return errors.Wrap(err, "unmarshal field spec")
	}
	*f = FieldSpec(aux.plain)
	if len(aux.Default) > 0 {
		f.HasDefault = true
		if err := json.Unmarshal(aux.Default, &f.Default); err != nil {
			return errors.Wrap(err, "unmarshal field default")
		}
	}
	return nil
}

// NameContains reports whether the lower-cased field name contains sub.
func (f FieldSpec) NameContains(sub string) bool {
	return strings.Contains(strings.ToLower(f.Name), sub)
}
