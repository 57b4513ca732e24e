package model

// Rule is one validation rule suggested for a field or object.
type Rule struct {
	RuleType           string `json:"rule_type" yaml:"rule_type" validate:"required"`
	Description        string `json:"description" yaml:"description"`
	ValidationCriteria string `json:"validation_criteria" yaml:"validation_criteria"`
	ExamplePass        any    `json:"example_pass,omitempty" yaml:"example_pass,omitempty"`
	ExampleFail        any    `json:"example_fail,omitempty" yaml:"example_fail,omitempty"`
}

// ObjectRules groups rules that span several fields.
type ObjectRules struct {
	Rules []Rule `json:"rules" yaml:"rules" validate:"dive"`
}

// RuleSet is the validation-rule structure produced by the advisory oracle.
// It is informational only and never changes expected status codes.
type RuleSet struct {
	FieldValidations  map[string][]Rule      `json:"field_validations" yaml:"field_validations" validate:"dive,dive"`
	ObjectValidations map[string]ObjectRules `json:"object_validations" yaml:"object_validations" validate:"dive"`
}

// Empty reports whether the set holds no rules at all.
func (r *RuleSet) Empty() bool {
	if r == nil {
		return true
	}
	for _, rules := range r.FieldValidations {
		if len(rules) > 0 {
			return false
		}
	}
	for _, obj := range r.ObjectValidations {
		if len(obj.Rules) > 0 {
			return false
		}
	}
	return true
}
