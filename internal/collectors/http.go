package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// defaultHTTPClient is shared by the HTTP-backed sources. Per-call deadlines
// come from the context the Collector sets.
var defaultHTTPClient = &http.Client{Timeout: 10 * time.Second}

// HTTPCommunity queries a community-report service over HTTP.
// GET {base}/reports?key={key} -> JSON array of Report.
type HTTPCommunity struct {
	BaseURL string
	Client  *http.Client
}

func (s *HTTPCommunity) ReportsFor(ctx context.Context, key string) ([]Report, error) {
	var reports []Report
	err := getJSON(ctx, s.Client, s.BaseURL+"/reports?key="+url.QueryEscape(key), &reports)
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// HTTPReputation queries the reputation/fraud API over HTTP.
// GET {base}/lookup?key={key} -> ReputationResult.
type HTTPReputation struct {
	BaseURL string
	Client  *http.Client
}

func (s *HTTPReputation) Lookup(ctx context.Context, key string) (*ReputationResult, error) {
	var out ReputationResult
	if err := getJSON(ctx, s.Client, s.BaseURL+"/lookup?key="+url.QueryEscape(key), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HTTPProfile fetches profile state over HTTP.
// GET {base}/profiles/{key} -> Profile.
type HTTPProfile struct {
	BaseURL string
	Client  *http.Client
}

func (s *HTTPProfile) Fetch(ctx context.Context, key string) (*Profile, error) {
	var out Profile
	if err := getJSON(ctx, s.Client, s.BaseURL+"/profiles/"+url.PathEscape(key), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out interface{}) error {
	if client == nil {
		client = defaultHTTPClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
