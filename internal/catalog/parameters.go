package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Variant holds a known-good value and an error-triggering value for a parameter
type Variant struct {
	Default string `yaml:"default"`
	Error   string `yaml:"error"`
}

// ParameterInfo lists the variants known for one parameter
type ParameterInfo struct {
	Nullable    *Variant `yaml:"nullable"`
	NonNullable *Variant `yaml:"non_nullable"`
}

// preferred returns the non-nullable variant when present, else the nullable one
func (pi ParameterInfo) preferred() *Variant {
	if pi.NonNullable != nil {
		return pi.NonNullable
	}
	return pi.Nullable
}

// ParameterCatalog is the read-only table of parameter values used to build probe requests
type ParameterCatalog struct {
	Parameters map[string]ParameterInfo `yaml:"parameters"`
}

// LoadParameterCatalog reads the catalog from path, or the embedded copy when path is empty
func LoadParameterCatalog(path string) (*ParameterCatalog, error) {
	data := embeddedParameters
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read parameter catalog: %w", err)
		}
		data = raw
	}

	var c ParameterCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse parameter catalog: %w", err)
	}
	if c.Parameters == nil {
		c.Parameters = map[string]ParameterInfo{}
	}
	return &c, nil
}

// LookupDefaultValue returns a value the server accepts for the parameter
func (c *ParameterCatalog) LookupDefaultValue(param string) (string, bool) {
	v := c.variant(param)
	if v == nil {
		return "", false
	}
	return v.Default, true
}

// LookupErrorTriggerValue returns a value the server rejects for the parameter
func (c *ParameterCatalog) LookupErrorTriggerValue(param string) (string, bool) {
	v := c.variant(param)
	if v == nil {
		return "", false
	}
	return v.Error, true
}

func (c *ParameterCatalog) variant(param string) *Variant {
	if c == nil {
		return nil
	}
	info, ok := c.Parameters[param]
	if !ok {
		return nil
	}
	return info.preferred()
}
