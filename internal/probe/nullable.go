package probe

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/nba-endpoint-analyzer/internal/catalog"
	"github.com/vitebski/nba-endpoint-analyzer/internal/connector"
	"github.com/vitebski/nba-endpoint-analyzer/internal/parser"
	"github.com/vitebski/nba-endpoint-analyzer/pkg/models"
)

// Phrases that mean the empty-value request was rejected as a whole
var nullableFailurePhrases = []string{
	"An error has occurred.",
	"A value is required",
}

// NullableParametersProbe sends every parameter empty and keeps the ones the
// server did not reject
type NullableParametersProbe struct {
	Transport connector.Transport
	Parser    *parser.ResponseParser
	Tables    *catalog.Tables
	Logger    *logrus.Logger
}

// NewNullableParametersProbe creates a new nullable parameters probe
func NewNullableParametersProbe(transport connector.Transport, p *parser.ResponseParser, tables *catalog.Tables, logger *logrus.Logger) *NullableParametersProbe {
	return &NullableParametersProbe{Transport: transport, Parser: p, Tables: tables, Logger: logger}
}

// Execute returns the nullable parameters of the endpoint, deduplicated.
// Skipped endpoints and rejected requests yield an empty list.
func (p *NullableParametersProbe) Execute(ctx context.Context, endpointName string, allParameters []string) ([]string, error) {
	if p.Tables.SkipNullable(endpointName) {
		p.Logger.Debugf("%s: skipping nullable probe", endpointName)
		return []string{}, nil
	}

	params := models.NewParameters()
	for _, param := range allParameters {
		if p.Tables.IsNonNullable(param) {
			continue
		}
		params.Set(param, "")
	}

	resp, err := p.Transport.SendRequest(ctx, endpointName, params)
	if err != nil {
		return nil, err
	}

	body := resp.RawBody()
	for _, phrase := range nullableFailurePhrases {
		if strings.Contains(body, phrase) {
			p.Logger.Warningf("%s: nullable parameters test failed", endpointName)
			return []string{}, nil
		}
	}

	required := p.Parser.ExtractRequiredParameters(body, endpointName)

	nullable := []string{}
	for _, param := range params.Names() {
		if !models.Contains(required, param) {
			nullable = append(nullable, param)
		}
	}

	// The echoed parameter listing marks accepted empty values too
	echoed := resp.Parameters()
	for _, param := range models.SortedKeys(echoed) {
		if connector.IsEmptyValue(echoed[param]) {
			nullable = append(nullable, param)
		}
	}

	return models.Dedupe(nullable), nil
}
