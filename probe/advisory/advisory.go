// Package advisory merges rule and scenario suggestions from an external oracle
// into a run. Oracle failures never abort a run; they are recorded as degradations.
package advisory

import (
	"context"
	"fmt"
	"slices"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/go-playground/validator/v10"

	"github.com/songquanpeng/contract-tester/probe/model"
)

const (
	StageRules     = "validation_rules"
	StageScenarios = "scenarios"
)

// ScenarioContext is what the oracle sees when asked for extra scenarios.
type ScenarioContext struct {
	Requirements   *model.RequirementsModel `json:"requirements"`
	Rules          *model.RuleSet           `json:"validation_rules"`
	SelectedFields []string                 `json:"selected_fields"`
	DefaultBody    model.Body               `json:"default_body"`
}

// Oracle suggests validation rules and extra test scenarios.
// Its output is untrusted.
type Oracle interface {
	SuggestRules(ctx context.Context, m *model.RequirementsModel) (*model.RuleSet, error)
	SuggestScenarios(ctx context.Context, sc ScenarioContext) ([]*model.TestCase, error)
}

// Merger validates oracle output and reconciles scenarios with the default body.
type Merger struct {
	oracle   Oracle
	validate *validator.Validate
}

// NewMerger wraps oracle. A nil oracle makes every call degrade.
func NewMerger(oracle Oracle) *Merger {
	return &Merger{
		oracle:   oracle,
		validate: validator.New(),
	}
}

// Enabled reports whether an oracle is configured.
func (m *Merger) Enabled() bool {
	return m != nil && m.oracle != nil
}

// Rules asks for validation rules. The returned set is never nil.
func (m *Merger) Rules(ctx context.Context, req *model.RequirementsModel) (*model.RuleSet, []model.Degradation) {
	empty := &model.RuleSet{
		FieldValidations:  map[string][]model.Rule{},
		ObjectValidations: map[string]model.ObjectRules{},
	}
	if !m.Enabled() {
		return empty, []model.Degradation{{Stage: StageRules, Error: "oracle not configured"}}
	}

	logger := gmw.GetLogger(ctx).Named("advisory")
	rules, err := m.oracle.SuggestRules(ctx, req)
	if err == nil && rules == nil {
		err = errors.Wrap(model.ErrOracle, "empty rule set")
	}
	if err != nil {
		logger.Warn("validation rules unavailable", zap.Error(err))
		return empty, []model.Degradation{{Stage: StageRules, Error: oracleError(err)}}
	}

	clean, dropped := m.cleanRules(rules)
	if dropped > 0 {
		logger.Warn("dropped invalid validation rules", zap.Int("dropped", dropped))
		return clean, []model.Degradation{{
			Stage:   StageRules,
			Error:   "rules failed validation",
			Dropped: dropped,
		}}
	}
	return clean, nil
}

func (m *Merger) cleanRules(rules *model.RuleSet) (*model.RuleSet, int) {
	clean := &model.RuleSet{
		FieldValidations:  make(map[string][]model.Rule, len(rules.FieldValidations)),
		ObjectValidations: make(map[string]model.ObjectRules, len(rules.ObjectValidations)),
	}
	dropped := 0
	keep := func(in []model.Rule) []model.Rule {
		out := make([]model.Rule, 0, len(in))
		for _, r := range in {
			if err := m.validate.Struct(r); err != nil {
				dropped++
				continue
			}
			out = append(out, r)
		}
		return out
	}
	for name, rs := range rules.FieldValidations {
		clean.FieldValidations[name] = keep(rs)
	}
	for name, obj := range rules.ObjectValidations {
		clean.ObjectValidations[name] = model.ObjectRules{Rules: keep(obj.Rules)}
	}
	return clean, dropped
}

// Scenarios asks for extra test cases and reconciles each with the default body.
// Invalid suggestions are dropped and counted.
func (m *Merger) Scenarios(ctx context.Context, sc ScenarioContext) ([]*model.TestCase, []model.Degradation) {
	if !m.Enabled() {
		return nil, []model.Degradation{{Stage: StageScenarios, Error: "oracle not configured"}}
	}

	logger := gmw.GetLogger(ctx).Named("advisory")
	suggested, err := m.oracle.SuggestScenarios(ctx, sc)
	if err != nil {
		logger.Warn("scenarios unavailable", zap.Error(err))
		return nil, []model.Degradation{{Stage: StageScenarios, Error: oracleError(err)}}
	}

	var (
		cases   []*model.TestCase
		dropped int
		lastErr error
	)
	for _, c := range suggested {
		if c == nil {
			dropped++
			continue
		}
		if err := m.validate.Struct(c); err != nil {
			dropped++
			lastErr = err
			logger.Debug("dropped invalid scenario", zap.String("name", c.Name), zap.Error(err))
			continue
		}
		cases = append(cases, Reconcile(sc.DefaultBody, sc.SelectedFields, c))
	}

	logger.Info("scenarios merged", zap.Int("accepted", len(cases)), zap.Int("dropped", dropped))
	if dropped > 0 {
		msg := "scenarios failed validation"
		if lastErr != nil {
			msg = fmt.Sprintf("%s: %v", msg, lastErr)
		}
		return cases, []model.Degradation{{Stage: StageScenarios, Error: msg, Dropped: dropped}}
	}
	return cases, nil
}

// Reconcile turns a suggested case into a complete one: the default body with
// the selected fields the suggestion sets. Execution results are cleared.
func Reconcile(defaultBody model.Body, selected []string, c *model.TestCase) *model.TestCase {
	overrides := map[string]any{}
	var fields []string
	for _, name := range selected {
		if v, ok := c.Data[name]; ok {
			overrides[name] = v
			fields = append(fields, name)
		}
	}
	return &model.TestCase{
		Name:               c.Name,
		Method:             c.Method,
		Data:               defaultBody.With(overrides),
		ExpectedStatusCode: c.ExpectedStatusCode,
		ExpectedBehavior:   c.ExpectedBehavior,
		Source:             model.SourceAdvisory,
		Fields:             slices.Clip(fields),
	}
}

func oracleError(err error) string {
	if !errors.Is(err, model.ErrOracle) {
		err = errors.Wrap(model.ErrOracle, err.Error())
	}
	return err.Error()
}
