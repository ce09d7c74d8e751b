package batch

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/nba-endpoint-analyzer/internal/analyzer"
	"github.com/vitebski/nba-endpoint-analyzer/internal/catalog"
	"github.com/vitebski/nba-endpoint-analyzer/internal/connector"
	"github.com/vitebski/nba-endpoint-analyzer/internal/discovery"
	"github.com/vitebski/nba-endpoint-analyzer/internal/store"
	"github.com/vitebski/nba-endpoint-analyzer/pkg/models"
)

const deprecatedPage = "<html><head><title>NBA.com/Stats  | 404 Page Not Found </title></head></html>"

// fakeAPI answers by endpoint name: "Old*" endpoints are retired, "Broken*"
// endpoints fail at the transport, everything else accepts any request.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int)}
}

func (f *fakeAPI) SendRequest(ctx context.Context, endpoint string, params *models.Parameters) (*connector.Response, error) {
	f.mu.Lock()
	f.calls[endpoint]++
	f.mu.Unlock()

	switch {
	case len(endpoint) >= 3 && endpoint[:3] == "Old":
		return connector.NewResponse(404, endpoint, deprecatedPage), nil
	case len(endpoint) >= 6 && endpoint[:6] == "Broken":
		return nil, errors.New("connection reset by peer")
	}
	return connector.NewResponse(200, endpoint, `{"resultSets": [{"name": "Data", "headers": ["ID"]}]}`), nil
}

func (f *fakeAPI) callCount(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

type fakeArchive struct {
	single  []string
	batches [][]string
}

func (a *fakeArchive) Record(runID string, schema *models.EndpointSchema) error {
	a.single = append(a.single, schema.Endpoint)
	return nil
}

func (a *fakeArchive) RecordBatch(runID string, schemas []*models.EndpointSchema) (int64, error) {
	names := make([]string, 0, len(schemas))
	for _, s := range schemas {
		names = append(names, s.Endpoint)
	}
	a.batches = append(a.batches, names)
	return int64(len(schemas)), nil
}

func newTestRunner(t *testing.T, api connector.Transport, storePath string) *BatchRunner {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests

	tables, err := catalog.LoadTables("")
	if err != nil {
		t.Fatalf("LoadTables returned error: %v", err)
	}
	c, err := catalog.LoadParameterCatalog("")
	if err != nil {
		t.Fatalf("LoadParameterCatalog returned error: %v", err)
	}
	if storePath == "" {
		storePath = filepath.Join(t.TempDir(), "store.json")
	}
	ps := store.NewParameterStore(storePath, tables, logger)

	return NewBatchRunner(api, ps, c, analyzer.Options{RetryAttempts: 1}, logger)
}

func TestNewBatchRunner(t *testing.T) {
	br := newTestRunner(t, newFakeAPI(), "")

	if _, err := uuid.Parse(br.RunID); err != nil {
		t.Errorf("Expected a UUID run id, got %q", br.RunID)
	}
	if br.Workers != 1 {
		t.Errorf("Expected 1 worker by default, got %d", br.Workers)
	}
	if br.Results == nil || br.FailedEndpoints == nil {
		t.Error("Expected result maps to be initialized")
	}
}

func TestRunSummary(t *testing.T) {
	api := newFakeAPI()
	br := newTestRunner(t, api, "")
	archive := &fakeArchive{}
	br.Archive = archive

	registry := discovery.NewRegistry("CommonPlayerInfo", "OldScoreboard", "BrokenEndpoint", "LeagueLeaders")
	endpoints, err := registry.Select(nil)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}

	summary := br.Run(context.Background(), endpoints)

	want := models.BatchSummary{Total: 4, Success: 2, Deprecated: 1, Invalid: 0, Failed: []string{"BrokenEndpoint"}}
	if !reflect.DeepEqual(summary, want) {
		t.Errorf("Expected summary %+v, got %+v", want, summary)
	}

	if api.callCount("OldScoreboard") != 1 {
		t.Errorf("Expected a single request for a deprecated endpoint, got %d", api.callCount("OldScoreboard"))
	}

	// Every finished analysis is written through to the store
	if record, ok := br.Store.Record("CommonPlayerInfo"); !ok || record.Status != models.StatusSuccess {
		t.Errorf("Expected stored success record, got %+v (%v)", record, ok)
	}
	if _, ok := br.Store.Record("BrokenEndpoint"); ok {
		t.Error("Expected no store record for a failed endpoint")
	}

	if len(archive.batches) != 1 || !reflect.DeepEqual(archive.batches[0], []string{"CommonPlayerInfo", "LeagueLeaders", "OldScoreboard"}) {
		t.Errorf("Unexpected archived batches: %v", archive.batches)
	}
}

func TestRunParallelWorkers(t *testing.T) {
	fake := faker.New()
	api := newFakeAPI()
	br := newTestRunner(t, api, "")
	br.Workers = 4

	names := make([]string, 0, 12)
	for len(names) < 12 {
		name := "Endpoint" + fake.Numerify("######")
		if !models.Contains(names, name) {
			names = append(names, name)
		}
	}

	endpoints, err := discovery.NewRegistry(names...).Select(nil)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}

	summary := br.Run(context.Background(), endpoints)
	if summary.Total != 12 || summary.Success != 12 || len(summary.Failed) != 0 {
		t.Errorf("Unexpected summary: %+v", summary)
	}

	reloaded := store.NewParameterStore(br.Store.FilePath, br.Store.Tables, br.Logger)
	if len(reloaded.Records) != 12 {
		t.Errorf("Expected 12 persisted records, got %d", len(reloaded.Records))
	}
}

func TestRunSkipValidated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	// A first run fills the store
	first := newTestRunner(t, newFakeAPI(), path)
	endpoints, _ := discovery.NewRegistry("CommonPlayerInfo", "OldScoreboard").Select(nil)
	first.Run(context.Background(), endpoints)

	api := newFakeAPI()
	second := newTestRunner(t, api, path)
	second.SkipValidated = true
	summary := second.Run(context.Background(), endpoints)

	if api.callCount("CommonPlayerInfo") != 0 || api.callCount("OldScoreboard") != 0 {
		t.Errorf("Expected cached endpoints to be skipped, got calls %v", api.calls)
	}
	if summary.Success != 1 || summary.Deprecated != 1 {
		t.Errorf("Expected cached statuses in the summary, got %+v", summary)
	}
	if second.Results["CommonPlayerInfo"].Endpoint != "CommonPlayerInfo" {
		t.Errorf("Unexpected cached result: %+v", second.Results["CommonPlayerInfo"])
	}
}

func TestAnalyzeEndpointArchives(t *testing.T) {
	br := newTestRunner(t, newFakeAPI(), "")
	archive := &fakeArchive{}
	br.Archive = archive

	result, err := br.AnalyzeEndpoint(context.Background(), "CommonPlayerInfo")
	if err != nil {
		t.Fatalf("AnalyzeEndpoint returned error: %v", err)
	}
	if result.Status != models.StatusSuccess {
		t.Errorf("Expected success, got %s", result.Status)
	}
	if !reflect.DeepEqual(archive.single, []string{"CommonPlayerInfo"}) {
		t.Errorf("Expected the result to be archived, got %v", archive.single)
	}

	if _, err := br.AnalyzeEndpoint(context.Background(), "BrokenEndpoint"); !errors.Is(err, connector.ErrRetriesExhausted) {
		t.Errorf("Expected ErrRetriesExhausted, got %v", err)
	}
}

func TestSchemaFromRecord(t *testing.T) {
	record := models.StoreRecord{
		Status:             models.StatusSuccess,
		RequiredParameters: map[string]string{"Season": "2024-25", "PlayerID": "2544"},
		NullableParameters: []string{"LeagueID"},
		ParameterPatterns:  models.PatternMap{"PlayerID": nil},
		LastValidatedDate:  "2025-01-01",
	}

	schema := SchemaFromRecord("CommonPlayerInfo", record)
	if !reflect.DeepEqual(schema.Parameters, []string{"LeagueID", "PlayerID", "Season"}) {
		t.Errorf("Unexpected parameters: %v", schema.Parameters)
	}
	if !reflect.DeepEqual(schema.RequiredParameters, []string{"PlayerID", "Season"}) {
		t.Errorf("Unexpected required parameters: %v", schema.RequiredParameters)
	}
	if schema.Status != models.StatusSuccess || schema.LastValidatedDate != "2025-01-01" {
		t.Errorf("Unexpected schema: %+v", schema)
	}
}
