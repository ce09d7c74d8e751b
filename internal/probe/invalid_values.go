package probe

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/nba-endpoint-analyzer/internal/catalog"
	"github.com/vitebski/nba-endpoint-analyzer/internal/connector"
	"github.com/vitebski/nba-endpoint-analyzer/internal/parser"
	"github.com/vitebski/nba-endpoint-analyzer/pkg/models"
)

// UnknownErrorValue is sent for parameters missing from the catalog
const UnknownErrorValue = "a"

// InvalidValuesProbe sends a known-bad value for every parameter and mines
// the validation errors for value patterns
type InvalidValuesProbe struct {
	Transport connector.Transport
	Parser    *parser.ResponseParser
	Catalog   *catalog.ParameterCatalog
	Logger    *logrus.Logger
}

// NewInvalidValuesProbe creates a new invalid values probe
func NewInvalidValuesProbe(transport connector.Transport, p *parser.ResponseParser, c *catalog.ParameterCatalog, logger *logrus.Logger) *InvalidValuesProbe {
	return &InvalidValuesProbe{Transport: transport, Parser: p, Catalog: c, Logger: logger}
}

// Discover returns only the patterns the server reported
func (p *InvalidValuesProbe) Discover(ctx context.Context, endpointName string, allParameters []string) (models.PatternMap, error) {
	params := models.NewParameters()
	for _, param := range allParameters {
		value, ok := p.Catalog.LookupErrorTriggerValue(param)
		if !ok {
			p.Logger.Warningf("%s: %s not found in parameter catalog - invalid test", endpointName, param)
			value = UnknownErrorValue
		}
		params.Set(param, value)
	}

	resp, err := p.Transport.SendRequest(ctx, endpointName, params)
	if err != nil {
		return nil, err
	}

	return p.Parser.ExtractParameterPatterns(resp.RawBody()), nil
}

// Execute returns the discovered patterns with every requested parameter
// present; parameters the server said nothing about map to nil
func (p *InvalidValuesProbe) Execute(ctx context.Context, endpointName string, allParameters []string) (models.PatternMap, error) {
	patterns, err := p.Discover(ctx, endpointName, allParameters)
	if err != nil {
		return nil, err
	}
	return BackFill(patterns, allParameters), nil
}

// BackFill copies patterns and adds a nil entry for every missing parameter
func BackFill(patterns models.PatternMap, allParameters []string) models.PatternMap {
	out := patterns.Clone()
	for _, param := range allParameters {
		if _, ok := out[param]; !ok {
			out[param] = nil
		}
	}
	return out
}
