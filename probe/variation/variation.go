// Package variation produces the candidate values tried for each field under test.
package variation

import (
	"fmt"
	"hash/fnv"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/songquanpeng/contract-tester/probe/model"
)

// Class tells what a value is meant to probe.
type Class string

const (
	ClassValid    Class = "valid"
	ClassBoundary Class = "boundary"
	ClassInvalid  Class = "invalid"
)

// Value is one candidate value of a field.
type Value struct {
	Value any   `json:"value" yaml:"value"`
	Class Class `json:"class" yaml:"class"`
}

// String renders the value the way test names show it.
func (v Value) String() string {
	return Format(v.Value)
}

// Format renders a candidate value for test names.
func Format(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

// Set maps field names to their ordered candidate values.
type Set map[string][]Value

// Fields lists the names in order that contribute at least one value.
func (s Set) Fields(order []string) []string {
	out := make([]string, 0, len(order))
	for _, name := range order {
		if len(s[name]) > 0 {
			out = append(out, name)
		}
	}
	return out
}

// Generator applies the rule table to fields.
type Generator struct {
	rules  []Rule
	random *gofakeit.Faker
}

type Option func(*Generator)

// WithSeed makes the randomized picks reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		if seed != 0 {
			g.random = gofakeit.New(seed)
		}
	}
}

// WithRules replaces the default rule table.
func WithRules(rules []Rule) Option {
	return func(g *Generator) {
		g.rules = rules
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rules:  DefaultRules(),
		random: gofakeit.New(0),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the candidate values of f from the first matching rule.
// Fields no rule matches get no values.
func (g *Generator) Generate(f model.FieldSpec) []Value {
	for _, rule := range g.rules {
		if rule.Match(f) {
			return rule.Generate(Sources{Fixed: fixedFaker(f.Name), Random: g.random}, f)
		}
	}
	return nil
}

// Rule returns the name of the rule f matches, or "".
func (g *Generator) Rule(f model.FieldSpec) string {
	for _, rule := range g.rules {
		if rule.Match(f) {
			return rule.Name
		}
	}
	return ""
}

// Set builds the variation set of the selected fields of m.
// Unknown field names are skipped.
func (g *Generator) Set(m *model.RequirementsModel, fields []string) Set {
	set := make(Set, len(fields))
	for _, name := range fields {
		f, ok := m.Field(name)
		if !ok {
			continue
		}
		set[name] = g.Generate(f)
	}
	return set
}

// fixedFaker is seeded from the field name, so the non-random entries of a
// field are the same on every call.
func fixedFaker(name string) *gofakeit.Faker {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	seed := h.Sum64()
	if seed == 0 {
		seed = 1
	}
	return gofakeit.New(seed)
}
