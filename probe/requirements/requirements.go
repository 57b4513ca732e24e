// Package requirements turns an endpoint's published schema into a RequirementsModel.
package requirements

import (
	"context"
	"path"
	"strings"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"

	"github.com/songquanpeng/contract-tester/probe/model"
	"github.com/songquanpeng/contract-tester/probe/schema"
)

// Analyzer fetches and normalizes endpoint contracts.
type Analyzer struct {
	fetcher *schema.Fetcher
}

func NewAnalyzer(fetcher *schema.Fetcher) *Analyzer {
	if fetcher == nil {
		fetcher = schema.NewFetcher()
	}
	return &Analyzer{fetcher: fetcher}
}

// Analyze builds the requirements model of endpoint.
//
// When the endpoint cannot be analyzed it returns a nil model with an error
// for which model.IsAnalysisUnavailable is true.
func (a *Analyzer) Analyze(ctx context.Context, endpoint string) (*model.RequirementsModel, error) {
	logger := gmw.GetLogger(ctx).Named("requirements").With(zap.String("endpoint", endpoint))

	doc, err := a.fetcher.Fetch(ctx, endpoint)
	if err != nil {
		logger.Warn("analysis unavailable", zap.Error(err))
		return nil, err
	}

	ex, err := schema.Extract(doc, endpoint)
	if err != nil {
		logger.Warn("analysis unavailable", zap.Error(err))
		return nil, err
	}

	m, err := Build(endpoint, ex)
	if err != nil {
		return nil, err
	}
	logger.Info("endpoint analyzed",
		zap.String("endpoint_type", m.EndpointType),
		zap.Int("required", len(m.RequiredFields)),
		zap.Int("optional", len(m.OptionalFields)))
	return m, nil
}

// Build is the pure transformation from an extraction to a requirements model.
func Build(endpoint string, ex *schema.Extraction) (*model.RequirementsModel, error) {
	meta := ex.Metadata()
	m, err := model.NewRequirementsModel(EndpointType(endpoint, meta), meta, ex.Fields)
	if err != nil {
		return nil, errors.Wrap(err, "build requirements model")
	}
	return m, nil
}

// EndpointType classifies the resource: the first operation tag, else the
// request schema name, else the last path segment of the endpoint.
func EndpointType(endpoint string, meta model.Metadata) string {
	for _, tag := range meta.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			return tag
		}
	}
	if meta.SchemaName != "" {
		return meta.SchemaName
	}
	p := endpoint
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return path.Base(strings.TrimRight(p, "/"))
}
