package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jwebster45206/page-engine/pkg/navigation"
)

const sessionHeader = "X-Session-ID"

type ErrorResponse struct {
	Error string `json:"error"`
}

type WorldInfo struct {
	Name      string   `json:"name"`
	Start     string   `json:"start"`
	Locations []string `json:"locations"`
}

// apiClient talks to the page engine API and remembers the session id the
// server issues on first contact.
type apiClient struct {
	client    *http.Client
	baseURL   string
	sessionID string
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (a *apiClient) view() (*navigation.Result, error) {
	return a.do(http.MethodGet, "/v1/view", nil)
}

func (a *apiClient) act(label string) (*navigation.Result, error) {
	body, err := json.Marshal(map[string]string{"label": label})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return a.do(http.MethodPost, "/v1/act", body)
}

// reset forgets the session server side and starts a fresh one.
func (a *apiClient) reset() (*navigation.Result, error) {
	req, err := http.NewRequest(http.MethodDelete, a.baseURL+"/v1/session", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(sessionHeader, a.sessionID)
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	a.sessionID = ""
	return a.view()
}

func (a *apiClient) world() (*WorldInfo, error) {
	resp, err := a.client.Get(a.baseURL + "/v1/world")
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	var info WorldInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse world response: %w", err)
	}
	return &info, nil
}

func (a *apiClient) do(method, path string, payload []byte) (*navigation.Result, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, a.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.sessionID != "" {
		req.Header.Set(sessionHeader, a.sessionID)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return nil, fmt.Errorf("%s", errorResp.Error)
	}

	var res navigation.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse navigation response: %w", err)
	}
	if id := resp.Header.Get(sessionHeader); id != "" {
		a.sessionID = id
	}
	return &res, nil
}
