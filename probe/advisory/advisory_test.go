package advisory

import (
	"context"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/contract-tester/probe/model"
)

type fakeOracle struct {
	rules     *model.RuleSet
	rulesErr  error
	scenarios []*model.TestCase
	scenErr   error
	seen      ScenarioContext
}

func (f *fakeOracle) SuggestRules(context.Context, *model.RequirementsModel) (*model.RuleSet, error) {
	return f.rules, f.rulesErr
}

func (f *fakeOracle) SuggestScenarios(_ context.Context, sc ScenarioContext) ([]*model.TestCase, error) {
	f.seen = sc
	return f.scenarios, f.scenErr
}

func defaultBody() model.Body {
	return model.Body{"email": "user@gmail.com", "password": "StrongPassword123!", "name": ""}
}

func TestScenariosReconciled(t *testing.T) {
	oracle := &fakeOracle{scenarios: []*model.TestCase{
		{
			Name:               "SQL injection in email",
			Method:             "post",
			Data:               model.Body{"email": "' OR 1=1 --", "unknown": 1},
			ExpectedStatusCode: 422,
			ExpectedBehavior:   "rejected",
		},
		{
			Name:               "name only",
			Method:             "POST",
			Data:               model.Body{"name": "Bob", "password": "ignored"},
			ExpectedStatusCode: 200,
		},
	}}

	sc := ScenarioContext{SelectedFields: []string{"email", "name"}, DefaultBody: defaultBody()}
	cases, degradations := NewMerger(oracle).Scenarios(context.Background(), sc)
	require.Empty(t, degradations)
	require.Len(t, cases, 2)

	first := cases[0]
	require.Equal(t, model.SourceAdvisory, first.Source)
	require.Equal(t, []string{"email"}, first.Fields)
	require.Equal(t, model.Body{
		"email":    "' OR 1=1 --",
		"password": "StrongPassword123!",
		"name":     "",
	}, first.Data)

	second := cases[1]
	require.Equal(t, "Bob", second.Data["name"])
	require.Equal(t, "StrongPassword123!", second.Data["password"])
	require.True(t, second.Data.Covers(defaultBody()))
}

func TestScenariosInvalidDropped(t *testing.T) {
	oracle := &fakeOracle{scenarios: []*model.TestCase{
		{Name: "", Method: "POST", ExpectedStatusCode: 200},
		{Name: "bad status", Method: "POST", ExpectedStatusCode: 42},
		nil,
		{Name: "ok", Method: "POST", ExpectedStatusCode: 400},
	}}
	cases, degradations := NewMerger(oracle).Scenarios(context.Background(),
		ScenarioContext{DefaultBody: defaultBody()})
	require.Len(t, cases, 1)
	require.Len(t, degradations, 1)
	require.Equal(t, 3, degradations[0].Dropped)
	require.Equal(t, StageScenarios, degradations[0].Stage)
}

func TestOracleFailureDegrades(t *testing.T) {
	oracle := &fakeOracle{
		rulesErr: errors.New("boom"),
		scenErr:  errors.Wrap(model.ErrOracle, "unparseable reply"),
	}
	m := NewMerger(oracle)

	rules, degradations := m.Rules(context.Background(), nil)
	require.NotNil(t, rules)
	require.True(t, rules.Empty())
	require.Len(t, degradations, 1)
	require.Contains(t, degradations[0].Error, "boom")
	require.Contains(t, degradations[0].Error, model.ErrOracle.Error())

	cases, degradations := m.Scenarios(context.Background(), ScenarioContext{})
	require.Empty(t, cases)
	require.Contains(t, degradations[0].Error, "unparseable reply")
}

func TestNoOracle(t *testing.T) {
	m := NewMerger(nil)
	require.False(t, m.Enabled())

	rules, degradations := m.Rules(context.Background(), nil)
	require.True(t, rules.Empty())
	require.Len(t, degradations, 1)

	cases, degradations := m.Scenarios(context.Background(), ScenarioContext{})
	require.Nil(t, cases)
	require.Len(t, degradations, 1)
}

func TestRulesValidated(t *testing.T) {
	oracle := &fakeOracle{rules: &model.RuleSet{
		FieldValidations: map[string][]model.Rule{
			"email": {
				{RuleType: "format", Description: "must be an email"},
				{Description: "missing type"},
			},
		},
		ObjectValidations: map[string]model.ObjectRules{
			"body": {Rules: []model.Rule{{RuleType: "required_fields"}}},
		},
	}}

	rules, degradations := NewMerger(oracle).Rules(context.Background(), nil)
	require.Len(t, rules.FieldValidations["email"], 1)
	require.Len(t, rules.ObjectValidations["body"].Rules, 1)
	require.Len(t, degradations, 1)
	require.Equal(t, 1, degradations[0].Dropped)
}
