// Package pipeline runs a complete contract test: analysis, generation,
// advisory merge, execution and reporting.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"

	"github.com/songquanpeng/contract-tester/common/config"
	"github.com/songquanpeng/contract-tester/common/random"
	"github.com/songquanpeng/contract-tester/probe/advisory"
	"github.com/songquanpeng/contract-tester/probe/advisory/openai"
	"github.com/songquanpeng/contract-tester/probe/body"
	"github.com/songquanpeng/contract-tester/probe/combination"
	"github.com/songquanpeng/contract-tester/probe/executor"
	"github.com/songquanpeng/contract-tester/probe/model"
	"github.com/songquanpeng/contract-tester/probe/plan"
	"github.com/songquanpeng/contract-tester/probe/report"
	"github.com/songquanpeng/contract-tester/probe/requirements"
	"github.com/songquanpeng/contract-tester/probe/schema"
	"github.com/songquanpeng/contract-tester/probe/variation"
)

const StageExecution = "execution"

// Result is the document a run produces.
type Result struct {
	Endpoint             string                   `json:"endpoint"`
	SelectedFields       []string                 `json:"selected_fields"`
	DefaultBody          model.Body               `json:"default_body"`
	RequirementsAnalysis *model.RequirementsModel `json:"requirements_analysis"`
	ValidationRules      *model.RuleSet           `json:"validation_rules"`
	TestReport           *model.TestReport        `json:"test_report"`
	// GeneratedCases counts every case built for the run, executed or not.
	GeneratedCases int                 `json:"generated_cases"`
	Degradations   []model.Degradation `json:"degradations"`
}

// Options tune one run.
type Options struct {
	// Fields is a selection as accepted by SelectFields.
	Fields []string
	// Seed makes random picks reproducible. Zero draws fresh randomness.
	Seed uint64
	// DisableOracle skips the advisory stage.
	DisableOracle bool
	Plan          *plan.Plan
	// Observer is told about every executed case.
	Observer executor.Observer
}

// Pipeline wires the stages together. It is safe for concurrent runs.
type Pipeline struct {
	analyzer     *requirements.Analyzer
	merger       *advisory.Merger
	executorOpts []executor.Option
}

type Option func(*Pipeline)

func WithAnalyzer(a *requirements.Analyzer) Option {
	return func(p *Pipeline) { p.analyzer = a }
}

// WithOracle sets the advisory oracle. A nil oracle disables the stage.
func WithOracle(o advisory.Oracle) Option {
	return func(p *Pipeline) { p.merger = advisory.NewMerger(o) }
}

func WithExecutorOptions(opts ...executor.Option) Option {
	return func(p *Pipeline) { p.executorOpts = append(p.executorOpts, opts...) }
}

func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		analyzer: requirements.NewAnalyzer(nil),
		merger:   advisory.NewMerger(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig wires the schema document cache and the oracle from the
// environment configuration.
func NewFromConfig(opts ...Option) *Pipeline {
	fetcher := schema.NewFetcher(schema.WithCache(schema.NewDocumentCache(config.SchemaCacheTTL)))
	base := []Option{
		WithAnalyzer(requirements.NewAnalyzer(fetcher)),
		WithOracle(openai.FromConfig()),
	}
	return New(append(base, opts...)...)
}

// Analyze returns the requirements model of endpoint.
func (p *Pipeline) Analyze(ctx context.Context, endpoint string) (*model.RequirementsModel, error) {
	return p.analyzer.Analyze(ctx, endpoint)
}

// Generation is everything built before execution.
type Generation struct {
	Result *Result
	Cases  []*model.TestCase
}

// Generate analyzes endpoint and builds its test cases without executing them.
// Analysis and default-body failures stop here; oracle failures only degrade.
func (p *Pipeline) Generate(ctx context.Context, endpoint string, opts Options) (*Generation, error) {
	logger := gmw.GetLogger(ctx).Named("pipeline").With(zap.String("endpoint", endpoint))

	req, err := p.analyzer.Analyze(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	selected, err := SelectFields(req, opts.Fields)
	if err != nil {
		return nil, err
	}

	defaultBody, err := body.Default(req)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Endpoint:             endpoint,
		SelectedFields:       selected,
		DefaultBody:          defaultBody,
		RequirementsAnalysis: req,
		Degradations:         []model.Degradation{},
	}

	merger := p.merger
	if opts.DisableOracle {
		merger = advisory.NewMerger(nil)
	}
	rules, degraded := merger.Rules(ctx, req)
	res.ValidationRules = rules
	res.Degradations = append(res.Degradations, degraded...)

	genOpts := []variation.Option{}
	builderOpts := []combination.Option{
		combination.WithSamples(config.CombinationSamples),
		combination.WithMaxArity(config.CombinationMaxArity),
	}
	if opts.Seed != 0 {
		genOpts = append(genOpts, variation.WithSeed(opts.Seed))
		builderOpts = append(builderOpts, combination.WithRandom(random.NewSeededSource(opts.Seed)))
	}
	if opts.Plan != nil {
		builderOpts = append(builderOpts, combination.WithExpectation(opts.Plan.Expectations.Policy()))
	}

	set := variation.NewGenerator(genOpts...).Set(req, selected)
	for _, name := range selected {
		if len(set[name]) == 0 {
			logger.Info("field has no variations", zap.String("field", name))
		}
	}
	cases := combination.NewBuilder(builderOpts...).Build(defaultBody, selected, set)

	extra, degraded := merger.Scenarios(ctx, advisory.ScenarioContext{
		Requirements:   req,
		Rules:          rules,
		SelectedFields: selected,
		DefaultBody:    defaultBody,
	})
	res.Degradations = append(res.Degradations, degraded...)
	cases = append(cases, extra...)

	if opts.Plan != nil {
		cases = append(cases, opts.Plan.TestCases(defaultBody)...)
	}
	res.GeneratedCases = len(cases)

	logger.Info("test cases generated",
		zap.Strings("fields", selected),
		zap.Int("cases", len(cases)),
		zap.Int("advisory", len(extra)),
		zap.Int("degradations", len(res.Degradations)))
	return &Generation{Result: res, Cases: cases}, nil
}

// Run generates, executes and reports. A cancelled run still returns a result
// covering the executed prefix, with the cancellation recorded as a degradation.
func (p *Pipeline) Run(ctx context.Context, endpoint string, opts Options) (*Result, error) {
	gen, err := p.Generate(ctx, endpoint, opts)
	if err != nil {
		return nil, err
	}

	execOpts := append([]executor.Option{}, p.executorOpts...)
	if opts.Observer != nil {
		execOpts = append(execOpts, executor.WithObserver(opts.Observer))
	}
	executed, err := executor.New(execOpts...).Run(ctx, endpoint, gen.Cases)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		gen.Result.Degradations = append(gen.Result.Degradations, model.Degradation{
			Stage:   StageExecution,
			Error:   fmt.Sprintf("run cancelled: %d of %d cases not executed", len(gen.Cases)-len(executed), len(gen.Cases)),
			Dropped: len(gen.Cases) - len(executed),
		})
	}

	gen.Result.TestReport = report.Aggregate(executed, time.Now())
	return gen.Result, nil
}

// ApplyPlan fills options the caller left unset from p.
func (o Options) ApplyPlan(p *plan.Plan) Options {
	if p == nil {
		return o
	}
	o.Plan = p
	if len(o.Fields) == 0 {
		o.Fields = p.Fields
	}
	if o.Seed == 0 {
		o.Seed = p.Seed
	}
	if p.Oracle != nil && !*p.Oracle {
		o.DisableOracle = true
	}
	return o
}
