package schema

import (
	"strings"

	"github.com/songquanpeng/contract-tester/probe/model"
)

// exampleRule synthesizes the example value of the fields it matches.
type exampleRule struct {
	name    string
	matches func(f model.FieldSpec) bool
	example func(f model.FieldSpec) any
}

// exampleRules are tried in order; the first match wins.
var exampleRules = []exampleRule{
	{
		name:    "email",
		matches: func(f model.FieldSpec) bool { return strings.EqualFold(f.Name, "email") },
		example: func(model.FieldSpec) any { return "user@gmail.com" },
	},
	{
		name:    "password",
		matches: func(f model.FieldSpec) bool { return f.NameContains("password") },
		example: func(model.FieldSpec) any { return "StrongPassword123!" },
	},
	{
		name:    "boolean",
		matches: func(f model.FieldSpec) bool { return f.Type.Is(model.KindBoolean) },
		example: func(f model.FieldSpec) any {
			if b, ok := f.Default.(bool); f.HasDefault && ok {
				return b
			}
			return true
		},
	},
	{
		name:    "string",
		matches: func(f model.FieldSpec) bool { return f.Type.Is(model.KindString) },
		example: func(f model.FieldSpec) any { return "Sample " + f.Name },
	},
	// the remaining rules keep the example non-null for every other type
	{
		name:    "integer",
		matches: func(f model.FieldSpec) bool { return f.Type.Primary() == model.KindInteger },
		example: defaultOr(int64(1)),
	},
	{
		name:    "number",
		matches: func(f model.FieldSpec) bool { return f.Type.Primary() == model.KindNumber },
		example: defaultOr(1.0),
	},
	{
		name:    "object",
		matches: func(f model.FieldSpec) bool { return f.Type.Primary() == model.KindObject },
		example: defaultOr(map[string]any{}),
	},
	{
		name:    "array",
		matches: func(f model.FieldSpec) bool { return f.Type.Primary() == model.KindArray },
		example: defaultOr([]any{}),
	},
	{
		name:    "boolean-union",
		matches: func(f model.FieldSpec) bool { return f.Type.Primary() == model.KindBoolean },
		example: defaultOr(true),
	},
}

func defaultOr(fallback any) func(model.FieldSpec) any {
	return func(f model.FieldSpec) any {
		if f.HasDefault && f.Default != nil {
			return f.Default
		}
		return fallback
	}
}

// ExampleFor returns the synthesized example of f. It is never nil.
func ExampleFor(f model.FieldSpec) any {
	for _, rule := range exampleRules {
		if rule.matches(f) {
			return rule.example(f)
		}
	}
	return "Sample " + f.Name
}
