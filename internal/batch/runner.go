package batch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/nba-endpoint-analyzer/internal/analyzer"
	"github.com/vitebski/nba-endpoint-analyzer/internal/catalog"
	"github.com/vitebski/nba-endpoint-analyzer/internal/connector"
	"github.com/vitebski/nba-endpoint-analyzer/internal/discovery"
	"github.com/vitebski/nba-endpoint-analyzer/internal/store"
	"github.com/vitebski/nba-endpoint-analyzer/pkg/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Archiver receives finished analyses
type Archiver interface {
	Record(runID string, schema *models.EndpointSchema) error
	RecordBatch(runID string, schemas []*models.EndpointSchema) (int64, error)
}

// BatchRunner analyzes many endpoints and keeps the parameter store current
type BatchRunner struct {
	Transport     connector.Transport
	Store         *store.ParameterStore
	Catalog       *catalog.ParameterCatalog
	Archive       Archiver
	Options       analyzer.Options
	Pause         time.Duration
	Workers       int
	SkipValidated bool
	RunID         string

	Results         map[string]*models.EndpointSchema
	FailedEndpoints map[string]error
	Logger          *logrus.Logger

	mu sync.Mutex
}

// NewBatchRunner creates a new batch runner with a fresh run id
func NewBatchRunner(
	transport connector.Transport,
	ps *store.ParameterStore,
	c *catalog.ParameterCatalog,
	opts analyzer.Options,
	logger *logrus.Logger,
) *BatchRunner {
	return &BatchRunner{
		Transport:       transport,
		Store:           ps,
		Catalog:         c,
		Options:         opts,
		Workers:         1,
		RunID:           uuid.NewString(),
		Results:         make(map[string]*models.EndpointSchema),
		FailedEndpoints: make(map[string]error),
		Logger:          logger,
	}
}

func (br *BatchRunner) log() *logrus.Entry {
	return br.Logger.WithField("run_id", br.RunID)
}

// analyze runs one endpoint and writes the result through to the store
func (br *BatchRunner) analyze(ctx context.Context, name string) (*models.EndpointSchema, error) {
	ea := analyzer.NewEndpointAnalyzer(name, br.Transport, br.Store, br.Catalog, br.Options, br.Logger)

	result, err := ea.Analyze(ctx)
	if err != nil {
		return nil, err
	}

	if err := br.Store.UpdateFromAnalysis(name, result); err != nil {
		br.log().Warningf("Could not update parameter store for %s: %v", name, err)
	}
	return result, nil
}

// AnalyzeEndpoint analyzes a single endpoint, updates the store and archives the result
func (br *BatchRunner) AnalyzeEndpoint(ctx context.Context, name string) (*models.EndpointSchema, error) {
	br.log().Infof("Analyzing %s...", name)

	result, err := br.analyze(ctx, name)
	if err != nil {
		br.log().Errorf("Error analyzing %s: %v", name, err)
		return nil, err
	}

	if br.Archive != nil {
		if err := br.Archive.Record(br.RunID, result); err != nil {
			br.log().Warningf("Could not archive %s: %v", name, err)
		}
	}
	return result, nil
}

// cached returns the stored result for an endpoint already analyzed successfully
func (br *BatchRunner) cached(name string) (*models.EndpointSchema, bool) {
	if !br.SkipValidated {
		return nil, false
	}
	record, ok := br.Store.Record(name)
	if !ok || (record.Status != models.StatusSuccess && record.Status != models.StatusDeprecated) {
		return nil, false
	}
	return SchemaFromRecord(name, record), true
}

// Run analyzes the endpoints with at most Workers in flight. Starts are
// spaced by Pause. Per-endpoint failures are recorded, not returned.
func (br *BatchRunner) Run(ctx context.Context, endpoints []discovery.Endpoint) models.BatchSummary {
	limit := rate.Inf
	if br.Pause > 0 {
		limit = rate.Every(br.Pause)
	}
	limiter := rate.NewLimiter(limit, 1)

	workers := br.Workers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)

	var fresh []*models.EndpointSchema

	br.log().Infof("Analyzing %d endpoints with %d worker(s)", len(endpoints), workers)

	for _, ep := range endpoints {
		name := ep.Name

		if result, ok := br.cached(name); ok {
			br.log().Infof("Using cached results for %s", name)
			br.mu.Lock()
			br.Results[name] = result
			br.mu.Unlock()
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			br.log().Warningf("Batch interrupted before %s: %v", name, err)
			break
		}

		g.Go(func() error {
			br.log().Infof("Analyzing %s...", name)
			result, err := br.analyze(ctx, name)

			br.mu.Lock()
			defer br.mu.Unlock()
			if err != nil {
				br.log().Errorf("Error analyzing %s: %v", name, err)
				br.FailedEndpoints[name] = err
				return nil
			}
			br.log().Infof("%s status: %s", name, result.Status)
			br.Results[name] = result
			fresh = append(fresh, result)
			return nil
		})
	}

	// Workers never return errors
	_ = g.Wait()

	if br.Archive != nil && len(fresh) > 0 {
		sort.Slice(fresh, func(i, j int) bool { return fresh[i].Endpoint < fresh[j].Endpoint })
		if _, err := br.Archive.RecordBatch(br.RunID, fresh); err != nil {
			br.log().Warningf("Could not archive batch results: %v", err)
		}
	}

	return br.Summary(len(endpoints))
}

// Summary counts the results by status
func (br *BatchRunner) Summary(total int) models.BatchSummary {
	br.mu.Lock()
	defer br.mu.Unlock()

	summary := models.BatchSummary{Total: total, Failed: []string{}}
	for _, result := range br.Results {
		switch result.Status {
		case models.StatusSuccess:
			summary.Success++
		case models.StatusDeprecated:
			summary.Deprecated++
		case models.StatusInvalid:
			summary.Invalid++
		}
	}
	summary.Failed = models.SortedKeys(br.FailedEndpoints)
	return summary
}

// SchemaFromRecord rebuilds a schema from a stored record
func SchemaFromRecord(name string, record models.StoreRecord) *models.EndpointSchema {
	schema := models.NewEndpointSchema(name)
	schema.Status = record.Status
	schema.RequiredParameters = models.SortedKeys(record.RequiredParameters)
	schema.NullableParameters = append([]string{}, record.NullableParameters...)
	schema.ParameterPatterns = record.ParameterPatterns.Clone()
	schema.LastValidatedDate = record.LastValidatedDate

	params := models.Dedupe(append(append([]string{}, schema.RequiredParameters...), schema.NullableParameters...))
	sort.Strings(params)
	schema.Parameters = params
	sort.Strings(schema.NullableParameters)
	return schema
}
