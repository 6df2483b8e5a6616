package config

import "os"

const defaultAPIURL = "http://localhost:8080"

// APIURL returns the base URL for the risk-watch API.
// It can be overridden with the RISK_WATCH_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv("RISK_WATCH_API_URL"); v != "" {
		return v
	}
	return defaultAPIURL
}

// Token returns the API token sent as a Bearer credential, read from the
// RISK_WATCH_API_TOKEN environment variable. Empty means no auth header.
func Token() string {
	return os.Getenv("RISK_WATCH_API_TOKEN")
}
