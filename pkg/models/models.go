package models

import (
	"encoding/json"
	"sort"
	"time"
)

// Status represents the outcome of an endpoint analysis
type Status string

const (
	StatusPending    Status = "pending"
	StatusSuccess    Status = "success"
	StatusDeprecated Status = "deprecated"
	StatusInvalid    Status = "invalid"
)

// Merge folds a later status into the current one. Deprecated is terminal,
// invalid never reverts, and pending never overwrites anything.
func (s Status) Merge(next Status) Status {
	switch {
	case next == "" || next == StatusPending:
		return s
	case s == StatusDeprecated:
		return s
	case s == StatusInvalid && next != StatusDeprecated:
		return s
	}
	return next
}

// DateLayout is the format used for validation date stamps
const DateLayout = "2006-01-02"

// Today returns the current date stamp
func Today() string {
	return time.Now().Format(DateLayout)
}

// PatternMap maps a parameter name to the regular expression the server
// reported for it. A nil value means no shape constraint was discovered.
type PatternMap map[string]*string

// Pattern returns a pointer to p, for building PatternMap literals
func Pattern(p string) *string {
	return &p
}

// Clone returns a shallow copy of the map
func (pm PatternMap) Clone() PatternMap {
	out := make(PatternMap, len(pm))
	for k, v := range pm {
		out[k] = v
	}
	return out
}

// EndpointSchema represents the inferred parameter contract of one endpoint
type EndpointSchema struct {
	Status             Status              `json:"status"`
	Endpoint           string              `json:"endpoint"`
	Parameters         []string            `json:"parameters"`
	RequiredParameters []string            `json:"required_parameters"`
	NullableParameters []string            `json:"nullable_parameters"`
	ParameterPatterns  PatternMap          `json:"parameter_patterns"`
	DataSets           map[string][]string `json:"data_sets"`
	LastValidatedDate  string              `json:"last_validated_date"`
}

// NewEndpointSchema returns an empty pending schema for the endpoint
func NewEndpointSchema(endpoint string) *EndpointSchema {
	return &EndpointSchema{
		Status:             StatusPending,
		Endpoint:           endpoint,
		Parameters:         []string{},
		RequiredParameters: []string{},
		NullableParameters: []string{},
		ParameterPatterns:  PatternMap{},
		DataSets:           map[string][]string{},
		LastValidatedDate:  Today(),
	}
}

// StoreRecord is the persisted knowledge about one endpoint
type StoreRecord struct {
	Status             Status            `json:"status,omitempty"`
	RequiredParameters map[string]string `json:"required_parameters"`
	NullableParameters []string          `json:"nullable_parameters"`
	ParameterPatterns  PatternMap        `json:"parameter_patterns"`
	LastValidatedDate  string            `json:"last_validated_date"`
}

// Parameters is an ordered mapping of request parameter names to values.
// A name that was never set is omitted from the request.
type Parameters struct {
	names  []string
	values map[string]string
}

// NewParameters creates an empty parameter set
func NewParameters() *Parameters {
	return &Parameters{values: make(map[string]string)}
}

// ParametersFromMap builds a parameter set ordered by name
func ParametersFromMap(m map[string]string) *Parameters {
	p := NewParameters()
	for _, name := range SortedKeys(m) {
		p.Set(name, m[name])
	}
	return p
}

// Set assigns a value, keeping the original position of an existing name
func (p *Parameters) Set(name, value string) {
	if _, exists := p.values[name]; !exists {
		p.names = append(p.names, name)
	}
	p.values[name] = value
}

// Get returns the value for name and whether it is set
func (p *Parameters) Get(name string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.values[name]
	return v, ok
}

// Names returns the parameter names in insertion order
func (p *Parameters) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Len returns the number of parameters
func (p *Parameters) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}

// MarshalJSON encodes the parameters as a JSON object
func (p *Parameters) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.values)
}

// SortedKeys returns the keys of a string-keyed map in ordinal order
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dedupe returns the distinct values of names, keeping first occurrences
func Dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Contains reports whether name is in names
func Contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// BatchSummary represents the result counts of a batch analysis
type BatchSummary struct {
	Total      int
	Success    int
	Deprecated int
	Invalid    int
	Failed     []string
}
