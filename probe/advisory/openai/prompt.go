package openai

// rulesPrompt takes the requirements model as JSON.
const rulesPrompt = `You are a data validation expert. Based on the following API requirements and sample data:

%s

Generate a comprehensive set of validation rules. Consider:
1. Data type validations
2. Format validations (especially for fields like email, phone, etc.)
3. Required field checks
4. Length/size restrictions based on sample data
5. Pattern matching for formatted strings
6. Nested object validations
7. Business logic validations
8. Common security considerations

Return only a JSON object with this structure:
{
  "field_validations": {
    "field_name": [
      {
        "rule_type": "type of validation",
        "description": "description of the rule",
        "validation_criteria": "specific criteria to check",
        "example_pass": "example of valid data",
        "example_fail": "example of invalid data"
      }
    ]
  },
  "object_validations": {
    "object_name": {
      "rules": [
        {
          "rule_type": "type of validation",
          "description": "description of the rule",
          "validation_criteria": "specific criteria to check",
          "example_pass": "example of valid data",
          "example_fail": "example of invalid data"
        }
      ]
    }
  }
}
`

// scenariosPrompt takes requirements, validation rules, selected fields and the default body.
const scenariosPrompt = `You are a senior QA engineer specialized in API testing. Analyze these fields and their relationships:

Requirements:
%s

Validation Rules:
%s

Selected Fields:
%s

Default Body:
%s

Provide additional test scenarios considering:
1. Business logic relationships between fields
2. Field dependencies and constraints
3. Security considerations
4. Edge cases and boundary conditions
5. Common user behavior patterns
6. Potential security vulnerabilities

Return only a JSON array of additional test scenarios in this format:
[
  {
    "name": "Descriptive test name",
    "method": "POST",
    "data": {"field": "value"},
    "expected_status_code": 400,
    "expected_behavior": "Detailed expected behavior"
  }
]
Focus on realistic user scenarios and security implications.
`
