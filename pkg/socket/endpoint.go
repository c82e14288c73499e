package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ResolveURL asks the server which port it actually bound (it probes
// upward when the preferred port is taken) and builds the socket URL
// from it. baseURL is the server's HTTP address, e.g. "http://localhost:5000".
func ResolveURL(ctx context.Context, baseURL, user string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("socket: invalid base url: %w", err)
	}

	port, err := fetchPort(ctx, strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}

	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}

	ws := url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", u.Hostname(), port),
		Path:   "/ws",
	}
	if user != "" {
		ws.RawQuery = url.Values{"user": {user}}.Encode()
	}
	return ws.String(), nil
}

func fetchPort(ctx context.Context, baseURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/port", nil)
	if err != nil {
		return 0, err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("socket: port lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("socket: port lookup returned status %d", resp.StatusCode)
	}

	var body struct {
		Port int `json:"port"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("socket: port lookup returned bad body: %w", err)
	}
	if body.Port <= 0 {
		return 0, fmt.Errorf("socket: port lookup returned invalid port %d", body.Port)
	}
	return body.Port, nil
}
