package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/nba-endpoint-analyzer/internal/catalog"
	"github.com/vitebski/nba-endpoint-analyzer/pkg/models"
)

// DefaultPath is the store file used when none is configured
const DefaultPath = "endpoint_parameters.json"

// ParameterStore persists what earlier analyses learned about each endpoint.
// All methods are safe for concurrent use; writes are serialized.
type ParameterStore struct {
	FilePath string
	Records  map[string]*models.StoreRecord
	Tables   *catalog.Tables
	Logger   *logrus.Logger

	mu sync.RWMutex
}

// NewParameterStore creates a store backed by filePath and loads it.
// A missing or malformed file yields an empty store.
func NewParameterStore(filePath string, tables *catalog.Tables, logger *logrus.Logger) *ParameterStore {
	if filePath == "" {
		filePath = DefaultPath
	}
	ps := &ParameterStore{
		FilePath: filePath,
		Tables:   tables,
		Logger:   logger,
	}
	ps.Records = ps.load()
	return ps
}

func (ps *ParameterStore) load() map[string]*models.StoreRecord {
	records := make(map[string]*models.StoreRecord)

	data, err := os.ReadFile(ps.FilePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			ps.Logger.Warningf("Could not read parameter store %s: %v", ps.FilePath, err)
		}
		return records
	}

	if err := json.Unmarshal(data, &records); err != nil {
		ps.Logger.Warningf("Invalid JSON in %s, starting with an empty store: %v", ps.FilePath, err)
		return make(map[string]*models.StoreRecord)
	}

	// A JSON null entry decodes to a nil record
	for name, record := range records {
		if record == nil {
			delete(records, name)
		}
	}

	ps.Logger.Debugf("Loaded %d endpoint records from %s", len(records), ps.FilePath)
	return records
}

// Save writes the whole store to its file
func (ps *ParameterStore) Save() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.saveLocked()
}

func (ps *ParameterStore) saveLocked() error {
	data, err := json.MarshalIndent(ps.Records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode parameter store: %w", err)
	}

	if dir := filepath.Dir(ps.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}

	// Write to a temporary file first so a crash never leaves a truncated store
	tmp := ps.FilePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write parameter store: %w", err)
	}
	if err := os.Rename(tmp, ps.FilePath); err != nil {
		return fmt.Errorf("replace parameter store: %w", err)
	}
	return nil
}

// Record returns a copy of the stored record for an endpoint
func (ps *ParameterStore) Record(endpointName string) (models.StoreRecord, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	record, ok := ps.Records[endpointName]
	if !ok {
		return models.StoreRecord{}, false
	}
	return *record, true
}

// GetRequiredParameters returns known-good required parameter values for an
// endpoint: the stored values, else the fallback table, else an empty map.
func (ps *ParameterStore) GetRequiredParameters(endpointName string) map[string]string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if record, ok := ps.Records[endpointName]; ok {
		return copyMap(record.RequiredParameters)
	}
	if fallback := ps.Tables.DefaultsFor(endpointName); fallback != nil {
		return copyMap(fallback)
	}
	return map[string]string{}
}

// GetNullableParameters returns the stored nullable parameters for an endpoint
func (ps *ParameterStore) GetNullableParameters(endpointName string) []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if record, ok := ps.Records[endpointName]; ok && record.NullableParameters != nil {
		return append([]string{}, record.NullableParameters...)
	}
	return []string{}
}

// GetParameterPatterns returns the stored parameter patterns for an endpoint
func (ps *ParameterStore) GetParameterPatterns(endpointName string) models.PatternMap {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if record, ok := ps.Records[endpointName]; ok && record.ParameterPatterns != nil {
		return record.ParameterPatterns.Clone()
	}
	return models.PatternMap{}
}

// GetParameterOverrides returns the legacy-to-current parameter renames for an endpoint
func (ps *ParameterStore) GetParameterOverrides(endpointName string) map[string]string {
	return ps.Tables.OverridesFor(endpointName)
}

// GetParameterRenames returns the renames for an endpoint in application order
func (ps *ParameterStore) GetParameterRenames(endpointName string) []catalog.Rename {
	return ps.Tables.RenamesFor(endpointName)
}

// GetRemoveNullableParameters returns parameters that must never be classified nullable
func (ps *ParameterStore) GetRemoveNullableParameters(endpointName string) []string {
	return append([]string{}, ps.Tables.RemoveNullableFor(endpointName)...)
}

// UpdateFromAnalysis replaces the endpoint's record with the analysis result
// and saves the store. Required parameter values already known are kept.
func (ps *ParameterStore) UpdateFromAnalysis(endpointName string, schema *models.EndpointSchema) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	var previous map[string]string
	if record, ok := ps.Records[endpointName]; ok {
		previous = record.RequiredParameters
	}
	fallback := ps.Tables.DefaultsFor(endpointName)

	required := make(map[string]string, len(schema.RequiredParameters))
	for _, param := range schema.RequiredParameters {
		if value, ok := previous[param]; ok {
			required[param] = value
		} else if value, ok := fallback[param]; ok {
			required[param] = value
		} else {
			required[param] = ""
		}
	}

	nullable := append([]string{}, schema.NullableParameters...)
	patterns := schema.ParameterPatterns.Clone()

	ps.Records[endpointName] = &models.StoreRecord{
		Status:             schema.Status,
		RequiredParameters: required,
		NullableParameters: nullable,
		ParameterPatterns:  patterns,
		LastValidatedDate:  schema.LastValidatedDate,
	}

	if err := ps.saveLocked(); err != nil {
		ps.Logger.Errorf("Error saving parameter store after %s: %v", endpointName, err)
		return err
	}
	return nil
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
