// Package lookup implements the external decision-maker search provider.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	defaultHost = "fresh-linkedin-profile-data.p.rapidapi.com"
	searchPath  = "/search-decision-makers"

	defaultTimeout = 30 * time.Second
)

// Candidate is a single person returned by the provider, in the provider's
// relevance order.
type Candidate struct {
	Name       string `json:"full_name" mapstructure:"full_name"`
	Title      string `json:"job_title" mapstructure:"job_title"`
	ProfileURL string `json:"linkedin_url" mapstructure:"linkedin_url"`
	Location   string `json:"location" mapstructure:"location"`
}

// Provider searches decision-maker candidates for a company.
type Provider interface {
	SearchDecisionMakers(ctx context.Context, companyName string) ([]Candidate, error)
}

// Client talks to the RapidAPI decision-maker search endpoint.
type Client struct {
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
	Host       string
}

// NewClient creates a provider client authenticated with the given RapidAPI key.
func NewClient(apiKey string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey: apiKey,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		APIURL: "https://" + defaultHost,
		Host:   defaultHost,
	}
}

type searchResponse struct {
	Data []map[string]any `json:"data"`
}

// SearchDecisionMakers queries the provider for people at the named company.
// The returned slice preserves the provider's relevance order.
func (c *Client) SearchDecisionMakers(ctx context.Context, companyName string) ([]Candidate, error) {
	q := url.Values{}
	q.Set("company", companyName)

	endpoint := fmt.Sprintf("%s%s?%s", c.APIURL, searchPath, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.Host)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	var candidates []Candidate
	cfg := &mapstructure.DecoderConfig{
		Result:  &candidates,
		TagName: "mapstructure",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(payload.Data); err != nil {
		return nil, fmt.Errorf("decode provider items: %w", err)
	}

	c.logger.Debug("got decision-maker candidates",
		zap.String("company", companyName),
		zap.Int("count", len(candidates)),
	)

	return candidates, nil
}
