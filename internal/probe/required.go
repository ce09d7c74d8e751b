// Package probe holds the three request strategies used to infer an
// endpoint's parameter contract. Each probe issues at most one request.
package probe

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/nba-endpoint-analyzer/internal/connector"
	"github.com/vitebski/nba-endpoint-analyzer/internal/parser"
	"github.com/vitebski/nba-endpoint-analyzer/pkg/models"
)

// DeprecatedMarker is the page title the API serves for retired endpoints
const DeprecatedMarker = "<title>NBA.com/Stats  | 404 Page Not Found </title>"

// IsDeprecated reports whether a body is the retired-endpoint page
func IsDeprecated(body string) bool {
	return strings.Contains(body, DeprecatedMarker)
}

// RequiredParametersProbe sends a request without parameters and reads back
// which ones the server complains about
type RequiredParametersProbe struct {
	Transport connector.Transport
	Parser    *parser.ResponseParser
	Logger    *logrus.Logger
}

// NewRequiredParametersProbe creates a new required parameters probe
func NewRequiredParametersProbe(transport connector.Transport, p *parser.ResponseParser, logger *logrus.Logger) *RequiredParametersProbe {
	return &RequiredParametersProbe{Transport: transport, Parser: p, Logger: logger}
}

// Execute returns the endpoint status and its required parameter names
func (p *RequiredParametersProbe) Execute(ctx context.Context, endpointName string) (models.Status, []string, error) {
	resp, err := p.Transport.SendRequest(ctx, endpointName, models.NewParameters())
	if err != nil {
		return models.StatusPending, nil, err
	}

	if IsDeprecated(resp.RawBody()) {
		p.Logger.Infof("%s: endpoint is deprecated", endpointName)
		return models.StatusDeprecated, []string{}, nil
	}

	return models.StatusSuccess, p.Parser.ExtractRequiredParameters(resp.RawBody(), endpointName), nil
}
