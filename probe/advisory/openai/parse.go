package openai

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/invopop/jsonschema"

	"github.com/songquanpeng/contract-tester/probe/model"
)

// scenarioReply is the shape requested when structured output is on.
// Chat models only accept an object at the root, so scenarios are wrapped.
type scenarioReply struct {
	Scenarios []scenarioSchema `json:"scenarios" jsonschema:"description=Additional test scenarios"`
}

type scenarioSchema struct {
	Name               string         `json:"name" jsonschema:"description=Descriptive test name"`
	Method             string         `json:"method" jsonschema:"enum=GET,enum=POST,enum=PUT,enum=DELETE"`
	Data               map[string]any `json:"data" jsonschema:"description=Request body field values"`
	ExpectedStatusCode int            `json:"expected_status_code" jsonschema:"minimum=100,maximum=599"`
	ExpectedBehavior   string         `json:"expected_behavior" jsonschema:"description=Detailed expected behavior"`
}

func reflectSchema(v any) any {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return r.Reflect(v)
}

func rulesSchema() any {
	return reflectSchema(&model.RuleSet{})
}

func scenariosSchema() any {
	return reflectSchema(&scenarioReply{})
}

// cleanJSON strips markdown fences and chatter around the first JSON value.
func cleanJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if nl := strings.IndexByte(content, '\n'); nl >= 0 {
			content = content[nl+1:]
		} else {
			content = strings.TrimPrefix(content, "```")
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	start := strings.IndexAny(content, "[{")
	if start < 0 {
		return content
	}
	closer := "}"
	if content[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(content, closer)
	if end < start {
		return content[start:]
	}
	return content[start : end+1]
}

func decode(content string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(cleanJSON(content))))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.Wrapf(model.ErrOracle, "unparseable reply: %v", err)
	}
	return nil
}

func parseRules(content string) (*model.RuleSet, error) {
	var rules model.RuleSet
	if err := decode(content, &rules); err != nil {
		return nil, err
	}
	if rules.FieldValidations == nil {
		rules.FieldValidations = map[string][]model.Rule{}
	}
	if rules.ObjectValidations == nil {
		rules.ObjectValidations = map[string]model.ObjectRules{}
	}
	for _, rs := range rules.FieldValidations {
		for i := range rs {
			normalizeRule(&rs[i])
		}
	}
	for _, obj := range rules.ObjectValidations {
		for i := range obj.Rules {
			normalizeRule(&obj.Rules[i])
		}
	}
	return &rules, nil
}

func normalizeRule(r *model.Rule) {
	r.ExamplePass = model.NormalizeNumbers(r.ExamplePass)
	r.ExampleFail = model.NormalizeNumbers(r.ExampleFail)
}

// rawScenario tolerates the loose typing of model replies.
type rawScenario struct {
	Name               string          `json:"name"`
	Method             string          `json:"method"`
	Data               map[string]any  `json:"data"`
	ExpectedStatusCode json.RawMessage `json:"expected_status_code"`
	ExpectedBehavior   string          `json:"expected_behavior"`
}

func parseScenarios(content string) ([]*model.TestCase, error) {
	var raw json.RawMessage
	if err := decode(content, &raw); err != nil {
		return nil, err
	}

	var list []rawScenario
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, errors.Wrapf(model.ErrOracle, "unparseable reply: %v", err)
		}
		inner, ok := wrapped["scenarios"]
		if !ok {
			inner, ok = wrapped["test_cases"]
		}
		if !ok {
			return nil, errors.Wrap(model.ErrOracle, "reply object has no scenarios")
		}
		trimmed = inner
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&list); err != nil {
		return nil, errors.Wrapf(model.ErrOracle, "scenarios must be a list: %v", err)
	}

	cases := make([]*model.TestCase, 0, len(list))
	for _, s := range list {
		data := model.Body{}
		for k, v := range s.Data {
			data[k] = model.NormalizeNumbers(v)
		}
		cases = append(cases, &model.TestCase{
			Name:               strings.TrimSpace(s.Name),
			Method:             strings.ToUpper(strings.TrimSpace(s.Method)),
			Data:               data,
			ExpectedStatusCode: parseStatus(s.ExpectedStatusCode),
			ExpectedBehavior:   s.ExpectedBehavior,
		})
	}
	return cases, nil
}

// parseStatus accepts 400, "400" and "400 Bad Request". Anything else is 0.
func parseStatus(raw json.RawMessage) int {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	end := 0
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	code, err := strconv.Atoi(text[:end])
	if err != nil {
		return 0
	}
	return code
}
