// Package combination expands field variations into concrete test cases.
package combination

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/songquanpeng/contract-tester/common/config"
	"github.com/songquanpeng/contract-tester/common/random"
	"github.com/songquanpeng/contract-tester/probe/model"
	"github.com/songquanpeng/contract-tester/probe/variation"
)

// ExpectationPolicy decides the expected status of a single-field case.
type ExpectationPolicy interface {
	Expect(field string, v variation.Value) int
}

// EmptyStringPolicy expects 400 for an empty string and 200 for anything else.
type EmptyStringPolicy struct{}

func (EmptyStringPolicy) Expect(_ string, v variation.Value) int {
	if s, ok := v.Value.(string); ok && s == "" {
		return http.StatusBadRequest
	}
	return http.StatusOK
}

// Builder runs the single-field and combination passes.
type Builder struct {
	method   string
	samples  int
	maxArity int
	random   random.Source
	expect   ExpectationPolicy
}

type Option func(*Builder)

// WithSamples sets how many cases each field subset yields.
func WithSamples(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.samples = n
		}
	}
}

// WithMaxArity bounds the largest field subset.
func WithMaxArity(n int) Option {
	return func(b *Builder) {
		b.maxArity = n
	}
}

// WithRandom sets the source of the per-field picks of the combination pass.
func WithRandom(src random.Source) Option {
	return func(b *Builder) {
		if src != nil {
			b.random = src
		}
	}
}

func WithExpectation(p ExpectationPolicy) Option {
	return func(b *Builder) {
		if p != nil {
			b.expect = p
		}
	}
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		method:   http.MethodPost,
		samples:  config.CombinationSamples,
		maxArity: config.CombinationMaxArity,
		random:   random.CryptoSource{},
		expect:   EmptyStringPolicy{},
	}
	if b.samples <= 0 {
		b.samples = 3
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build concatenates both passes. Fields without variations are left out.
func (b *Builder) Build(defaultBody model.Body, fields []string, set variation.Set) []*model.TestCase {
	fields = set.Fields(fields)
	cases := b.SingleField(defaultBody, fields, set)
	return append(cases, b.Combinations(defaultBody, fields, set)...)
}

// SingleField emits one case per field and value, overriding only that field.
func (b *Builder) SingleField(defaultBody model.Body, fields []string, set variation.Set) []*model.TestCase {
	var cases []*model.TestCase
	for _, field := range fields {
		for _, v := range set[field] {
			cases = append(cases, &model.TestCase{
				Name:               fmt.Sprintf("Test %s with value: %s", field, v),
				Method:             b.method,
				Data:               defaultBody.With(map[string]any{field: v.Value}),
				ExpectedStatusCode: b.expect.Expect(field, v),
				ExpectedBehavior:   fmt.Sprintf("Testing %s with specific value", field),
				Source:             model.SourceSingleField,
				Fields:             []string{field},
			})
		}
	}
	return cases
}

// Combinations emits, for every subset of 2..maxArity fields, a fixed number
// of cases that override each field of the subset with a random variation.
func (b *Builder) Combinations(defaultBody model.Body, fields []string, set variation.Set) []*model.TestCase {
	var cases []*model.TestCase
	for size := 2; size <= min(b.maxArity, len(fields)); size++ {
		for _, subset := range Subsets(fields, size) {
			for range b.samples {
				overrides := make(map[string]any, len(subset))
				for _, field := range subset {
					overrides[field] = random.Choice(b.random, set[field]).Value
				}
				cases = append(cases, &model.TestCase{
					Name:               "Test combination of " + strings.Join(subset, ", "),
					Method:             b.method,
					Data:               defaultBody.With(overrides),
					ExpectedStatusCode: http.StatusOK,
					ExpectedBehavior:   "Testing multiple field combinations",
					Source:             model.SourceCombination,
					Fields:             append([]string(nil), subset...),
				})
			}
		}
	}
	return cases
}

// Subsets lists the size-k subsets of items in lexicographic index order.
func Subsets(items []string, k int) [][]string {
	if k <= 0 || k > len(items) {
		return nil
	}
	var out [][]string
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		subset := make([]string, k)
		for i, j := range idx {
			subset[i] = items[j]
		}
		out = append(out, subset)

		i := k - 1
		for i >= 0 && idx[i] == len(items)-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// CombinationCount is the number of cases Combinations emits for k fields.
func CombinationCount(k, maxArity, samples int) int {
	total := 0
	for size := 2; size <= min(maxArity, k); size++ {
		total += binomial(k, size)
	}
	return total * samples
}

func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	r := 1
	for i := 1; i <= k; i++ {
		r = r * (n - k + i) / i
	}
	return r
}
