package analyzer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/nba-endpoint-analyzer/internal/catalog"
	"github.com/vitebski/nba-endpoint-analyzer/internal/connector"
	"github.com/vitebski/nba-endpoint-analyzer/internal/parser"
	"github.com/vitebski/nba-endpoint-analyzer/internal/probe"
	"github.com/vitebski/nba-endpoint-analyzer/internal/store"
	"github.com/vitebski/nba-endpoint-analyzer/pkg/models"
)

// MissingValue is sent for a required parameter with no known default
const MissingValue = "0"

// Options configures the network behaviour of an analysis
type Options struct {
	RetryAttempts int
	PauseTime     time.Duration
	Timeout       time.Duration
}

// DefaultOptions returns the standard retry policy
func DefaultOptions() Options {
	return Options{
		RetryAttempts: connector.DefaultRetryAttempts,
		PauseTime:     connector.DefaultRetryPause,
		Timeout:       connector.DefaultTimeout,
	}
}

// EndpointAnalyzer infers the parameter contract of one endpoint by probing it
type EndpointAnalyzer struct {
	EndpointName string
	Transport    connector.Transport
	Store        *store.ParameterStore
	Catalog      *catalog.ParameterCatalog
	Parser       *parser.ResponseParser
	Options      Options
	Logger       *logrus.Logger

	required *probe.RequiredParametersProbe
	nullable *probe.NullableParametersProbe
	invalid  *probe.InvalidValuesProbe
}

// NewEndpointAnalyzer creates an analyzer; every request goes through the retry policy in opts
func NewEndpointAnalyzer(endpointName string, transport connector.Transport, ps *store.ParameterStore, c *catalog.ParameterCatalog, opts Options, logger *logrus.Logger) *EndpointAnalyzer {
	retrying := connector.NewRetryingTransport(transport, opts.RetryAttempts, opts.PauseTime, opts.Timeout, logger)
	p := parser.NewResponseParser(logger)

	return &EndpointAnalyzer{
		EndpointName: endpointName,
		Transport:    retrying,
		Store:        ps,
		Catalog:      c,
		Parser:       p,
		Options:      opts,
		Logger:       logger,
		required:     probe.NewRequiredParametersProbe(retrying, p, logger),
		nullable:     probe.NewNullableParametersProbe(retrying, p, ps.Tables, logger),
		invalid:      probe.NewInvalidValuesProbe(retrying, p, c, logger),
	}
}

// stepUpdate is what one analysis step contributes to the result
type stepUpdate struct {
	status     models.Status
	parameters []string
	required   []string
	nullable   []string
	patterns   models.PatternMap
	dataSets   map[string][]string
}

// apply folds the update into the schema
func (u stepUpdate) apply(s *models.EndpointSchema) {
	s.Status = s.Status.Merge(u.status)
	if u.required != nil {
		s.RequiredParameters = models.Dedupe(u.required)
	}
	if len(u.parameters) > 0 {
		s.Parameters = models.Dedupe(append(s.Parameters, u.parameters...))
	}
	if len(u.nullable) > 0 {
		s.NullableParameters = models.Dedupe(append(s.NullableParameters, u.nullable...))
	}
	if u.patterns != nil {
		s.ParameterPatterns = u.patterns.Clone()
	}
	if u.dataSets != nil {
		s.DataSets = u.dataSets
	}
}

type step struct {
	name string
	run  func(ctx context.Context, current *models.EndpointSchema) (stepUpdate, error)
}

// Analyze runs the probe sequence and returns the inferred schema. Only
// exhausted retries are returned as errors; inconsistencies mark the
// result invalid.
func (ea *EndpointAnalyzer) Analyze(ctx context.Context) (*models.EndpointSchema, error) {
	result := models.NewEndpointSchema(ea.EndpointName)

	steps := []step{
		{"required parameters", ea.testRequiredParameters},
		{"minimal requirements", ea.testMinimalRequirements},
		{"nullable parameters", ea.testNullableParameters},
		{"invalid values", ea.testInvalidValues},
	}

	for _, s := range steps {
		update, err := s.run(ctx, result)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", ea.EndpointName, s.name, err)
		}
		update.apply(result)

		// Deprecated endpoints have nothing further to learn
		if result.Status == models.StatusDeprecated {
			return result, nil
		}
	}

	ea.cleanParameters(result)

	sort.Strings(result.Parameters)
	sort.Strings(result.RequiredParameters)
	sort.Strings(result.NullableParameters)

	ea.Logger.Infof("%s: analysis finished with status %s (%d parameters, %d required, %d nullable)",
		ea.EndpointName, result.Status, len(result.Parameters), len(result.RequiredParameters), len(result.NullableParameters))
	return result, nil
}

// testRequiredParameters sends no parameters to learn the required ones
func (ea *EndpointAnalyzer) testRequiredParameters(ctx context.Context, _ *models.EndpointSchema) (stepUpdate, error) {
	status, required, err := ea.required.Execute(ctx, ea.EndpointName)
	if err != nil {
		return stepUpdate{}, err
	}
	return stepUpdate{status: status, required: required}, nil
}

// testMinimalRequirements sends only the required parameters with known-good values
func (ea *EndpointAnalyzer) testMinimalRequirements(ctx context.Context, current *models.EndpointSchema) (stepUpdate, error) {
	update := stepUpdate{}
	stored := ea.Store.GetRequiredParameters(ea.EndpointName)

	params := models.NewParameters()
	for _, param := range current.RequiredParameters {
		if value, ok := stored[param]; ok {
			params.Set(param, value)
			continue
		}
		if value, ok := ea.Catalog.LookupDefaultValue(param); ok {
			params.Set(param, value)
			continue
		}
		ea.Logger.Warningf("%s: property %q not in parameter catalog", ea.EndpointName, param)
		update.status = models.StatusInvalid
		params.Set(param, MissingValue)
	}

	resp, err := ea.Transport.SendRequest(ctx, ea.EndpointName, params)
	if err != nil {
		return stepUpdate{}, err
	}

	if !resp.IsValidJSON() {
		ea.Logger.Warningf("%s: failed to pass minimal values test", ea.EndpointName)
		update.status = models.StatusInvalid
		return update, nil
	}

	update.dataSets = resp.DataSets()
	update.parameters = append(params.Names(), models.SortedKeys(resp.Parameters())...)
	return update, nil
}

// testNullableParameters finds parameters that accept an empty value. The
// parameter list is left alone; cleanup merges nullable names into it.
func (ea *EndpointAnalyzer) testNullableParameters(ctx context.Context, current *models.EndpointSchema) (stepUpdate, error) {
	nullable, err := ea.nullable.Execute(ctx, ea.EndpointName, current.Parameters)
	if err != nil {
		return stepUpdate{}, err
	}
	return stepUpdate{nullable: nullable}, nil
}

// testInvalidValues collects the value patterns reported for bad input
func (ea *EndpointAnalyzer) testInvalidValues(ctx context.Context, current *models.EndpointSchema) (stepUpdate, error) {
	patterns, err := ea.invalid.Discover(ctx, ea.EndpointName, current.Parameters)
	if err != nil {
		return stepUpdate{}, err
	}

	update := stepUpdate{patterns: patterns}
	if len(patterns) != len(current.Parameters) {
		ea.Logger.Warningf("%s: length of patterns does not equal all parameters: %v %v",
			ea.EndpointName, models.SortedKeys(patterns), current.Parameters)
		update.status = models.StatusInvalid
	}
	return update, nil
}

// cleanParameters applies the known renames and nullability corrections
func (ea *EndpointAnalyzer) cleanParameters(result *models.EndpointSchema) {
	for _, r := range ea.Store.GetParameterRenames(ea.EndpointName) {
		result.Parameters = renameIn(result.Parameters, r)
		result.RequiredParameters = renameIn(result.RequiredParameters, r)
		result.NullableParameters = renameIn(result.NullableParameters, r)

		if pattern, ok := result.ParameterPatterns[r.From]; ok {
			delete(result.ParameterPatterns, r.From)
			if _, exists := result.ParameterPatterns[r.To]; !exists || pattern != nil {
				result.ParameterPatterns[r.To] = pattern
			}
		}
	}

	removed := ea.Store.GetRemoveNullableParameters(ea.EndpointName)
	nullable := []string{}
	for _, param := range result.NullableParameters {
		if models.Contains(removed, param) || models.Contains(result.RequiredParameters, param) {
			continue
		}
		nullable = append(nullable, param)
	}
	result.NullableParameters = nullable

	result.Parameters = models.Dedupe(append(append(result.Parameters, result.RequiredParameters...), result.NullableParameters...))
}

func renameIn(names []string, r catalog.Rename) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == r.From {
			name = r.To
		}
		out = append(out, name)
	}
	return models.Dedupe(out)
}
