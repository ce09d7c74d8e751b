package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/nba-endpoint-analyzer/pkg/models"
)

const (
	// DefaultBaseURL is the stats API root
	DefaultBaseURL = "https://stats.nba.com/stats/"
	// DefaultTimeout bounds a single HTTP request
	DefaultTimeout = 30 * time.Second

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBodyBytes     = 32 << 20
)

// Transport sends one request to a stats endpoint and returns its raw response
type Transport interface {
	SendRequest(ctx context.Context, endpoint string, params *models.Parameters) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(ctx context.Context, endpoint string, params *models.Parameters) (*Response, error)

// SendRequest calls f
func (f TransportFunc) SendRequest(ctx context.Context, endpoint string, params *models.Parameters) (*Response, error) {
	return f(ctx, endpoint, params)
}

// Ensure StatsConnector implements Transport at compile time.
var _ Transport = (*StatsConnector)(nil)

// StatsConnector handles HTTP access to the stats API
type StatsConnector struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	HTTP      *http.Client
	Logger    *logrus.Logger

	// Paths maps endpoint names to request paths; names without an entry
	// are requested at their lowercased name
	Paths map[string]string
}

// NewStatsConnector creates a new stats API connector
func NewStatsConnector(baseURL string, timeout time.Duration, logger *logrus.Logger) *StatsConnector {
	if baseURL == "" {
		baseURL = getEnvOrDefault("NBA_ANALYZER_BASE_URL", DefaultBaseURL)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &StatsConnector{
		BaseURL:   baseURL,
		UserAgent: defaultUserAgent,
		Timeout:   timeout,
		HTTP:      &http.Client{Timeout: timeout},
		Logger:    logger,
	}
}

// RequestURL builds the full request URL. Parameters keep their insertion
// order and empty values are sent as "Name=".
func (sc *StatsConnector) RequestURL(endpoint string, params *models.Parameters) string {
	u := sc.BaseURL + sc.path(endpoint)
	if params.Len() == 0 {
		return u
	}

	pairs := make([]string, 0, params.Len())
	for _, name := range params.Names() {
		value, _ := params.Get(name)
		pairs = append(pairs, url.QueryEscape(name)+"="+url.QueryEscape(value))
	}
	return u + "?" + strings.Join(pairs, "&")
}

func (sc *StatsConnector) path(endpoint string) string {
	if p, ok := sc.Paths[endpoint]; ok && p != "" {
		return strings.TrimPrefix(p, "/")
	}
	return strings.ToLower(endpoint)
}

// SendRequest performs a GET against the endpoint. Error statuses are not
// errors here: their bodies carry the validation messages the analyzer reads.
func (sc *StatsConnector) SendRequest(ctx context.Context, endpoint string, params *models.Parameters) (*Response, error) {
	reqURL := sc.RequestURL(endpoint, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Origin", "https://www.nba.com")
	req.Header.Set("Referer", "https://www.nba.com/")
	req.Header.Set("User-Agent", sc.UserAgent)

	sc.Logger.Debugf("GET %s", reqURL)

	resp, err := sc.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return NewResponse(resp.StatusCode, reqURL, string(body)), nil
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
