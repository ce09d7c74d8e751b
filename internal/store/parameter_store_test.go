package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/nba-endpoint-analyzer/internal/catalog"
	"github.com/vitebski/nba-endpoint-analyzer/pkg/models"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func loadTestTables(t *testing.T) *catalog.Tables {
	t.Helper()
	tables, err := catalog.LoadTables("")
	if err != nil {
		t.Fatalf("LoadTables returned error: %v", err)
	}
	return tables
}

func writeStoreFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "endpoint_parameters.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const testStoreJSON = `{
  "CommonPlayerInfo": {
    "required_parameters": {"PlayerID": "2544"},
    "nullable_parameters": ["Season", "LeagueID"],
    "parameter_patterns": {"PlayerID": "^\\d+$", "LeagueID": null},
    "last_validated_date": "2025-01-01"
  }
}`

func TestLoadFromFile(t *testing.T) {
	ps := NewParameterStore(writeStoreFile(t, testStoreJSON), loadTestTables(t), createTestLogger())

	required := ps.GetRequiredParameters("CommonPlayerInfo")
	if required["PlayerID"] != "2544" {
		t.Errorf("Expected PlayerID 2544, got %v", required)
	}

	nullable := ps.GetNullableParameters("CommonPlayerInfo")
	if !reflect.DeepEqual(nullable, []string{"Season", "LeagueID"}) {
		t.Errorf("Unexpected nullable parameters: %v", nullable)
	}

	patterns := ps.GetParameterPatterns("CommonPlayerInfo")
	if patterns["PlayerID"] == nil || *patterns["PlayerID"] != `^\d+$` {
		t.Errorf("Unexpected PlayerID pattern: %v", patterns["PlayerID"])
	}
	if p, ok := patterns["LeagueID"]; !ok || p != nil {
		t.Errorf("Expected LeagueID to be present with a nil pattern, got %v (%v)", p, ok)
	}
}

func TestMissingFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")
	ps := NewParameterStore(path, loadTestTables(t), createTestLogger())

	if len(ps.Records) != 0 {
		t.Errorf("Expected empty store, got %d records", len(ps.Records))
	}
	if got := ps.GetNullableParameters("CommonPlayerInfo"); len(got) != 0 {
		t.Errorf("Expected no nullable parameters, got %v", got)
	}
	if got := ps.GetParameterPatterns("CommonPlayerInfo"); len(got) != 0 {
		t.Errorf("Expected no patterns, got %v", got)
	}
}

func TestMalformedFileIsEmptyStore(t *testing.T) {
	ps := NewParameterStore(writeStoreFile(t, "{not json"), loadTestTables(t), createTestLogger())
	if len(ps.Records) != 0 {
		t.Errorf("Expected empty store for malformed JSON, got %d records", len(ps.Records))
	}
}

func TestGetRequiredParametersFallback(t *testing.T) {
	ps := NewParameterStore(writeStoreFile(t, testStoreJSON), loadTestTables(t), createTestLogger())

	got := ps.GetRequiredParameters("LeaguePlayerOnDetails")
	if got["TeamID"] != "1610612739" || got["Season"] == "" {
		t.Errorf("Expected fallback values for LeaguePlayerOnDetails, got %v", got)
	}

	if got := ps.GetRequiredParameters("NoSuchEndpoint"); len(got) != 0 {
		t.Errorf("Expected empty map for an unknown endpoint, got %v", got)
	}
}

func TestOverridesAndRemovals(t *testing.T) {
	ps := NewParameterStore(filepath.Join(t.TempDir(), "s.json"), loadTestTables(t), createTestLogger())

	if got := ps.GetParameterOverrides("PlayerGameLogs"); got["SeasonYear"] != "Season" {
		t.Errorf("Expected SeasonYear -> Season override, got %v", got)
	}
	if got := ps.GetParameterOverrides("CommonPlayerInfo"); len(got) != 0 {
		t.Errorf("Expected no overrides, got %v", got)
	}
	if got := ps.GetRemoveNullableParameters("PlayerCareerByCollege"); !models.Contains(got, "School") {
		t.Errorf("Expected School in remove list, got %v", got)
	}
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	fake := faker.New()
	path := filepath.Join(t.TempDir(), "store.json")
	tables := loadTestTables(t)

	ps := NewParameterStore(path, tables, createTestLogger())
	for i := 0; i < 5; i++ {
		name := "Endpoint" + fake.Numerify("####")
		ps.Records[name] = &models.StoreRecord{
			RequiredParameters: map[string]string{"PlayerID": fake.Numerify("#######")},
			NullableParameters: []string{fake.Lorem().Word()},
			ParameterPatterns:  models.PatternMap{"PlayerID": models.Pattern(`^\d+$`), "Other": nil},
			LastValidatedDate:  "2025-01-01",
		}
	}
	if err := ps.Save(); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	reloaded := NewParameterStore(path, tables, createTestLogger())
	if !reflect.DeepEqual(ps.Records, reloaded.Records) {
		t.Fatalf("Round trip mismatch:\n got %#v\nwant %#v", reloaded.Records, ps.Records)
	}

	for name := range ps.Records {
		if !reflect.DeepEqual(ps.GetRequiredParameters(name), reloaded.GetRequiredParameters(name)) {
			t.Errorf("%s: required parameters differ after reload", name)
		}
	}

	// Encoding is deterministic, so a second save is byte-identical
	first, _ := os.ReadFile(path)
	if err := reloaded.Save(); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Error("Expected re-saved store to be byte-identical")
	}
}

func TestConcurrentSaves(t *testing.T) {
	path := writeStoreFile(t, testStoreJSON)
	tables := loadTestTables(t)
	ps := NewParameterStore(path, tables, createTestLogger())

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- ps.Save()
		}()
		go func() {
			defer wg.Done()
			if _, ok := ps.Record("CommonPlayerInfo"); !ok {
				errs <- os.ErrNotExist
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Concurrent save failed: %v", err)
		}
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Expected no temporary file left behind, got %v", err)
	}
	reloaded := NewParameterStore(path, tables, createTestLogger())
	if !reflect.DeepEqual(ps.Records, reloaded.Records) {
		t.Errorf("Expected the saved store to reload intact, got %#v", reloaded.Records)
	}
}

func TestUpdateFromAnalysis(t *testing.T) {
	path := writeStoreFile(t, `{"TestEndpoint": {"required_parameters": {"Param1": "known"}, "nullable_parameters": ["Old"], "parameter_patterns": {"Old": "x"}, "last_validated_date": "2024-01-01"}}`)
	ps := NewParameterStore(path, loadTestTables(t), createTestLogger())

	schema := &models.EndpointSchema{
		Status:             models.StatusSuccess,
		Endpoint:           "TestEndpoint",
		Parameters:         []string{"Param1", "Param2", "Param3"},
		RequiredParameters: []string{"Param1", "Param3"},
		NullableParameters: []string{"Param2"},
		ParameterPatterns:  models.PatternMap{"Param1": models.Pattern(`^\d+$`), "Param2": models.Pattern(`^\w+$`)},
		LastValidatedDate:  "2025-01-01",
	}
	if err := ps.UpdateFromAnalysis("TestEndpoint", schema); err != nil {
		t.Fatalf("UpdateFromAnalysis returned error: %v", err)
	}

	required := ps.GetRequiredParameters("TestEndpoint")
	if required["Param1"] != "known" {
		t.Errorf("Expected previously known Param1 value to be preserved, got %q", required["Param1"])
	}
	if v, ok := required["Param3"]; !ok || v != "" {
		t.Errorf("Expected Param3 to default to empty string, got %q (%v)", v, ok)
	}
	if got := ps.GetNullableParameters("TestEndpoint"); !reflect.DeepEqual(got, []string{"Param2"}) {
		t.Errorf("Expected nullable list to be replaced, got %v", got)
	}
	if _, ok := ps.GetParameterPatterns("TestEndpoint")["Old"]; ok {
		t.Error("Expected patterns to be replaced wholesale")
	}

	// Write-through: the file already holds the update
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var onDisk map[string]models.StoreRecord
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if onDisk["TestEndpoint"].LastValidatedDate != "2025-01-01" {
		t.Errorf("Expected saved validation date 2025-01-01, got %q", onDisk["TestEndpoint"].LastValidatedDate)
	}
	if onDisk["TestEndpoint"].Status != models.StatusSuccess {
		t.Errorf("Expected saved status success, got %q", onDisk["TestEndpoint"].Status)
	}
}

func TestUpdateFromAnalysisUsesFallback(t *testing.T) {
	ps := NewParameterStore(filepath.Join(t.TempDir(), "s.json"), loadTestTables(t), createTestLogger())

	schema := models.NewEndpointSchema("TeamVsPlayer")
	schema.RequiredParameters = []string{"TeamID", "VsPlayerID"}
	if err := ps.UpdateFromAnalysis("TeamVsPlayer", schema); err != nil {
		t.Fatalf("UpdateFromAnalysis returned error: %v", err)
	}

	required := ps.GetRequiredParameters("TeamVsPlayer")
	if required["TeamID"] != "1610612739" {
		t.Errorf("Expected fallback TeamID, got %q", required["TeamID"])
	}
	if required["VsPlayerID"] != "" {
		t.Errorf("Expected empty VsPlayerID, got %q", required["VsPlayerID"])
	}
}
