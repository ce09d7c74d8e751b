package connector

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/vitebski/nba-endpoint-analyzer/internal/parser"
)

// Response is the raw result of one stats API request
type Response struct {
	StatusCode int
	URL        string
	Body       string

	once    sync.Once
	payload map[string]json.RawMessage
}

// NewResponse wraps a response body
func NewResponse(statusCode int, url, body string) *Response {
	return &Response{StatusCode: statusCode, URL: url, Body: body}
}

// RawBody returns the response text
func (r *Response) RawBody() string {
	return r.Body
}

func (r *Response) decode() map[string]json.RawMessage {
	r.once.Do(func() {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal([]byte(strings.TrimSpace(r.Body)), &payload); err == nil {
			r.payload = payload
		}
	})
	return r.payload
}

// IsValidJSON reports whether the body parses as JSON of any shape
func (r *Response) IsValidJSON() bool {
	return parser.IsValidJSON(r.Body)
}

// Parameters returns the parameter echo-back section of a JSON response, or
// nil when the response has none. The section is either an object or a list
// of single-key objects.
func (r *Response) Parameters() map[string]any {
	raw, ok := r.decode()["parameters"]
	if !ok {
		return nil
	}

	var asObject map[string]any
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return asObject
	}

	var asList []map[string]any
	if err := json.Unmarshal(raw, &asList); err != nil {
		return nil
	}
	params := make(map[string]any)
	for _, entry := range asList {
		for k, v := range entry {
			params[k] = v
		}
	}
	return params
}

// IsEmptyValue reports whether an echoed parameter value is null or blank
func IsEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

type dataSet struct {
	Name    string            `json:"name"`
	Headers []json.RawMessage `json:"headers"`
}

type headerGroup struct {
	ColumnNames []string `json:"columnNames"`
}

// DataSets maps each named result table in the response to its column headers
func (r *Response) DataSets() map[string][]string {
	payload := r.decode()
	sets := make(map[string][]string)
	if payload == nil {
		return sets
	}

	var all []dataSet
	for _, key := range []string{"resultSets", "resultSet"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var list []dataSet
		if err := json.Unmarshal(raw, &list); err == nil {
			all = append(all, list...)
			continue
		}
		var single dataSet
		if err := json.Unmarshal(raw, &single); err == nil {
			all = append(all, single)
		}
	}

	for i, ds := range all {
		name := ds.Name
		if name == "" {
			name = fmt.Sprintf("DataSet%d", i)
		}
		sets[name] = flattenHeaders(ds.Headers)
	}
	return sets
}

// flattenHeaders accepts plain string headers and grouped headers with columnNames
func flattenHeaders(raw []json.RawMessage) []string {
	headers := []string{}
	for _, h := range raw {
		var s string
		if err := json.Unmarshal(h, &s); err == nil {
			headers = append(headers, s)
			continue
		}
		var group headerGroup
		if err := json.Unmarshal(h, &group); err == nil {
			headers = append(headers, group.ColumnNames...)
		}
	}
	return headers
}
