package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/nba-endpoint-analyzer/pkg/models"
)

var (
	// Matches "<Name> is required", "<Name> are required, pass 0 for default",
	// "The <Name> property is required." and "The value 'x' is not valid for <Name> Year."
	missingParameterRegex = regexp.MustCompile(
		`^\s*?(?:The value '[^']+' is not valid for |The )?([A-Za-z0-9]+(?: Scope| Category)?)(?: Year)?\s*(?:property (?:is|are) required\.?| (?:is|are) required\.?(?:,? pass 0 for (?:default|all teams))?|\.)\s*$`)

	parameterPatternRegex = regexp.MustCompile(
		`^\s*The field ([A-Za-z]+) must match the regular expression '([^']+)'\.\s*$`)

	htmlRegex = regexp.MustCompile(`<.*?>`)

	// Known error messages that carry no parameter information
	ignoredMessages = map[string]bool{
		" Invalid date":      true,
		"Invalid date":       true,
		"Invalid game date":  true,
		" Invalid game date": true,
		"<e><Message>An error has occurred.</Message></e>": true,
		"<Message>An error has occurred.</Message>":        true,
	}

	// Server spellings that differ from the parameter name it accepts
	nameFixes = map[string]string{
		"Runtype": "RunType",
	}
)

// ResponseParser extracts parameter information from stats API error text
type ResponseParser struct {
	Logger *logrus.Logger
	// Unmatched collects error fragments that matched no known shape
	Unmatched []string
}

// NewResponseParser creates a new response parser
func NewResponseParser(logger *logrus.Logger) *ResponseParser {
	return &ResponseParser{Logger: logger}
}

// IsHTML reports whether the body looks like an HTML page rather than API text
func IsHTML(body string) bool {
	return htmlRegex.MatchString(body)
}

// IsValidJSON reports whether the body parses as JSON
func IsValidJSON(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return false
	}
	return json.Valid([]byte(trimmed))
}

// ExtractRequiredParameters returns the parameter names the server reported
// as missing. Duplicates are kept; callers dedupe.
func (rp *ResponseParser) ExtractRequiredParameters(body, endpointName string) []string {
	requiredParameters := []string{}

	// Successful responses carry no errors
	if IsValidJSON(body) {
		return requiredParameters
	}

	// HTML pages are not API validation errors
	if IsHTML(body) {
		return requiredParameters
	}

	for _, fragment := range strings.Split(body, ";") {
		name, ok := matchRequired(fragment)
		if !ok {
			continue
		}
		requiredParameters = append(requiredParameters, name)
	}

	if len(requiredParameters) > 0 && rp.Logger != nil {
		rp.Logger.Debugf("%s: server reported required parameters %v", endpointName, requiredParameters)
	}

	return requiredParameters
}

// ExtractParameterPatterns maps each parameter mentioned in the error text to
// the regular expression it must match, or nil when the message only says the
// parameter is required.
func (rp *ResponseParser) ExtractParameterPatterns(body string) models.PatternMap {
	patterns := models.PatternMap{}

	if IsHTML(body) {
		return patterns
	}

	validJSON := IsValidJSON(body)

	for _, fragment := range strings.Split(body, ";") {
		if m := parameterPatternRegex.FindStringSubmatch(fragment); m != nil {
			name := normalizeName(m[1])
			patterns[name] = models.Pattern(m[2])
			continue
		}

		if name, ok := matchRequired(fragment); ok {
			if _, exists := patterns[name]; !exists {
				patterns[name] = nil
			}
			continue
		}

		if ignoredMessages[fragment] || validJSON || strings.TrimSpace(fragment) == "" {
			continue
		}

		if !strings.Contains(body, "Invalid date") && !strings.Contains(body, "must be between") {
			rp.Unmatched = append(rp.Unmatched, fragment)
			if rp.Logger != nil {
				rp.Logger.Warningf("Failed to match error: %q", fragment)
			}
		}
	}

	return patterns
}

func matchRequired(fragment string) (string, bool) {
	m := missingParameterRegex.FindStringSubmatch(fragment)
	if m == nil {
		return "", false
	}
	return normalizeName(m[1]), true
}

func normalizeName(name string) string {
	name = strings.ReplaceAll(name, " ", "")
	if fixed, ok := nameFixes[name]; ok {
		return fixed
	}
	return name
}
