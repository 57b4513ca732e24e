// Package plan loads YAML test plans: which fields to test, expected-status
// overrides and hand-written extra cases.
package plan

import (
	"os"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/songquanpeng/contract-tester/probe/combination"
	"github.com/songquanpeng/contract-tester/probe/model"
	"github.com/songquanpeng/contract-tester/probe/variation"
)

// Plan is a test plan file.
//
//	endpoint: https://api.example.com/api/signup
//	fields: [email, password]      # or "all", or 1-based indices
//	seed: 42
//	oracle: false
//	expectations:
//	  classes: {invalid: 422}
//	  fields:
//	    email:
//	      values: {"invalid.email": 422}
//	cases:
//	  - name: duplicate signup
//	    method: POST
//	    data: {email: taken@example.com}
//	    expected_status_code: 409
type Plan struct {
	Endpoint     string       `yaml:"endpoint" json:"endpoint"`
	Fields       Selection    `yaml:"fields" json:"fields"`
	Seed         uint64       `yaml:"seed" json:"seed"`
	Oracle       *bool        `yaml:"oracle" json:"oracle,omitempty"`
	Expectations Expectations `yaml:"expectations" json:"expectations"`
	Cases        []Case       `yaml:"cases" json:"cases" validate:"dive"`
}

// Selection is a list of field names or indices. A bare "all" selects every field.
type Selection []string

func (s *Selection) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var single string
		if err := node.Decode(&single); err != nil {
			return errors.Wrap(err, "decode field selection")
		}
		*s = splitSelection(single)
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return errors.Wrap(err, "field selection must be a string or a list")
	}
	*s = list
	return nil
}

func splitSelection(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseSelection splits a comma or space separated selection, e.g. "email,2" or "all".
func ParseSelection(raw string) Selection {
	return splitSelection(raw)
}

// Case is a hand-written test case. Data is merged over the default body.
type Case struct {
	Name               string         `yaml:"name" json:"name" validate:"required"`
	Method             string         `yaml:"method" json:"method" validate:"required"`
	Data               map[string]any `yaml:"data" json:"data"`
	ExpectedStatusCode int            `yaml:"expected_status_code" json:"expected_status_code" validate:"gte=100,lte=599"`
	ExpectedBehavior   string         `yaml:"expected_behavior" json:"expected_behavior"`
}

// TestCases turns the plan cases into complete test cases.
func (p *Plan) TestCases(defaultBody model.Body) []*model.TestCase {
	out := make([]*model.TestCase, 0, len(p.Cases))
	for _, c := range p.Cases {
		behavior := c.ExpectedBehavior
		if behavior == "" {
			behavior = "Plan case"
		}
		out = append(out, &model.TestCase{
			Name:               c.Name,
			Method:             c.Method,
			Data:               defaultBody.With(c.Data),
			ExpectedStatusCode: c.ExpectedStatusCode,
			ExpectedBehavior:   behavior,
			Source:             model.SourcePlan,
			Fields:             model.Body(c.Data).Keys(),
		})
	}
	return out
}

// Expectations override the expected status of single-field cases.
// The most specific match wins: field value, field class, field, class.
type Expectations struct {
	Classes map[variation.Class]int     `yaml:"classes" json:"classes,omitempty"`
	Fields  map[string]FieldExpectation `yaml:"fields" json:"fields,omitempty"`
}

type FieldExpectation struct {
	Status  int                     `yaml:"status" json:"status,omitempty"`
	Classes map[variation.Class]int `yaml:"classes" json:"classes,omitempty"`
	// Values is keyed by the value as it appears in test names.
	Values map[string]int `yaml:"values" json:"values,omitempty"`
}

// Policy returns an expectation policy that falls back to the empty-string heuristic.
func (e Expectations) Policy() combination.ExpectationPolicy {
	return policy{exp: e, fallback: combination.EmptyStringPolicy{}}
}

type policy struct {
	exp      Expectations
	fallback combination.ExpectationPolicy
}

func (p policy) Expect(field string, v variation.Value) int {
	if fe, ok := p.exp.Fields[field]; ok {
		if code, ok := fe.Values[v.String()]; ok {
			return code
		}
		if code, ok := fe.Classes[v.Class]; ok {
			return code
		}
		if fe.Status != 0 {
			return fe.Status
		}
	}
	if code, ok := p.exp.Classes[v.Class]; ok {
		return code
	}
	return p.fallback.Expect(field, v)
}

// Load reads and validates a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read plan %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML plan.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "decode plan")
	}
	if err := validator.New().Struct(&p); err != nil {
		return nil, errors.Wrap(err, "invalid plan")
	}
	if err := p.Expectations.check(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (e Expectations) check() error {
	checkCode := func(where string, code int) error {
		if code < 100 || code > 599 {
			return errors.Errorf("invalid plan: %s expects status %d", where, code)
		}
		return nil
	}
	for class, code := range e.Classes {
		if err := checkCode("class "+string(class), code); err != nil {
			return err
		}
	}
	for field, fe := range e.Fields {
		if fe.Status != 0 {
			if err := checkCode("field "+field, fe.Status); err != nil {
				return err
			}
		}
		for class, code := range fe.Classes {
			if err := checkCode("field "+field+" class "+string(class), code); err != nil {
				return err
			}
		}
		for value, code := range fe.Values {
			if err := checkCode("field "+field+" value "+value, code); err != nil {
				return err
			}
		}
	}
	return nil
}
