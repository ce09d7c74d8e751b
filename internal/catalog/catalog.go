// Package catalog holds the static configuration data the analyzer relies on:
// per-endpoint fallback tables and the parameter value catalog. Both ship as
// embedded YAML files and can be replaced by files on disk.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/yourbasic/graph"
	"gopkg.in/yaml.v3"
)

//go:embed data/tables.yaml
var embeddedTables []byte

//go:embed data/parameters.yaml
var embeddedParameters []byte

// ErrOverrideCycle is returned when parameter renames for an endpoint form a loop
var ErrOverrideCycle = errors.New("parameter overrides contain a cycle")

// Rename is one legacy-to-current parameter name substitution
type Rename struct {
	From string
	To   string
}

// Tables are the per-endpoint fallback and correction tables
type Tables struct {
	Version               int                          `yaml:"version"`
	RequiredDefaults      map[string]map[string]string `yaml:"required_defaults"`
	ParameterOverrides    map[string]map[string]string `yaml:"parameter_overrides"`
	RemoveNullable        map[string][]string          `yaml:"remove_nullable"`
	SkipNullableEndpoints []string                     `yaml:"skip_nullable_endpoints"`
	NonNullableParameters []string                     `yaml:"non_nullable_parameters"`

	renames map[string][]Rename
	skip    map[string]bool
}

// LoadTables reads the tables from path, or the embedded copy when path is empty
func LoadTables(path string) (*Tables, error) {
	data := embeddedTables
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read tables file: %w", err)
		}
		data = raw
	}
	return ParseTables(data)
}

// ParseTables decodes and validates a tables document
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tables: %w", err)
	}
	if err := t.index(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tables) index() error {
	t.renames = make(map[string][]Rename, len(t.ParameterOverrides))
	for endpoint, overrides := range t.ParameterOverrides {
		ordered, err := orderRenames(overrides)
		if err != nil {
			return fmt.Errorf("endpoint %s: %w", endpoint, err)
		}
		t.renames[endpoint] = ordered
	}

	t.skip = make(map[string]bool, len(t.SkipNullableEndpoints))
	for _, name := range t.SkipNullableEndpoints {
		t.skip[strings.ToLower(name)] = true
	}
	return nil
}

// orderRenames sorts renames topologically so that chained renames
// (A->B, B->C) resolve to the final name in one pass.
func orderRenames(overrides map[string]string) ([]Rename, error) {
	var names []string
	index := make(map[string]int)
	add := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		index[name] = len(names)
		names = append(names, name)
		return index[name]
	}

	// Sorted keys keep node numbering, and therefore the result, deterministic
	keys := make([]string, 0, len(overrides))
	for from := range overrides {
		keys = append(keys, from)
	}
	sort.Strings(keys)
	for _, from := range keys {
		add(from)
		add(overrides[from])
	}

	g := graph.New(len(names))
	for _, from := range keys {
		g.Add(index[from], index[overrides[from]])
	}
	if !graph.Acyclic(g) {
		return nil, ErrOverrideCycle
	}

	order, ok := graph.TopSort(g)
	if !ok {
		return nil, ErrOverrideCycle
	}

	// Every rename into X runs before X's own rename
	renames := make([]Rename, 0, len(overrides))
	for _, v := range order {
		from := names[v]
		if to, ok := overrides[from]; ok {
			renames = append(renames, Rename{From: from, To: to})
		}
	}
	return renames, nil
}

// DefaultsFor returns the fallback required-parameter values for an endpoint
func (t *Tables) DefaultsFor(endpoint string) map[string]string {
	if t == nil {
		return nil
	}
	return t.RequiredDefaults[endpoint]
}

// RenamesFor returns the parameter renames for an endpoint in application order
func (t *Tables) RenamesFor(endpoint string) []Rename {
	if t == nil {
		return nil
	}
	return t.renames[endpoint]
}

// OverridesFor returns the legacy-to-current name table for an endpoint
func (t *Tables) OverridesFor(endpoint string) map[string]string {
	if t == nil || t.ParameterOverrides[endpoint] == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(t.ParameterOverrides[endpoint]))
	for k, v := range t.ParameterOverrides[endpoint] {
		out[k] = v
	}
	return out
}

// RemoveNullableFor returns the parameters forced non-nullable for an endpoint
func (t *Tables) RemoveNullableFor(endpoint string) []string {
	if t == nil {
		return nil
	}
	return t.RemoveNullable[endpoint]
}

// SkipNullable reports whether the nullable probe is skipped for an endpoint.
// The comparison ignores case.
func (t *Tables) SkipNullable(endpoint string) bool {
	if t == nil {
		return false
	}
	return t.skip[strings.ToLower(endpoint)]
}

// IsNonNullable reports whether a parameter is never sent empty
func (t *Tables) IsNonNullable(param string) bool {
	if t == nil {
		return false
	}
	for _, name := range t.NonNullableParameters {
		if name == param {
			return true
		}
	}
	return false
}
