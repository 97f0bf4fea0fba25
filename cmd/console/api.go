package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jwebster45206/world-engine/pkg/spatial"
	"github.com/jwebster45206/world-engine/pkg/world"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// ExitInput and LocationInput mirror the API request bodies.
type ExitInput struct {
	Direction string           `json:"direction"`
	TargetID  world.LocationID `json:"target_id"`
}

type LocationInput struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Exits       []ExitInput `json:"exits"`
	Version     int64       `json:"version,omitempty"`
}

type LocationChange struct {
	Location   *world.Location    `json:"location"`
	Placed     []world.LocationID `json:"placed"`
	Wilderness []world.LocationID `json:"wilderness"`
}

// APIClient talks to the world engine API on behalf of one actor.
type APIClient struct {
	client  *http.Client
	baseURL string
	actorID string
}

func (c *APIClient) testConnection() bool {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (c *APIClient) listLocations() ([]*world.Location, error) {
	var locs []*world.Location
	if err := c.do(http.MethodGet, "/v1/locations", nil, http.StatusOK, &locs); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locs, nil
}

func (c *APIClient) createLocation(in LocationInput) (*LocationChange, error) {
	var change LocationChange
	if err := c.do(http.MethodPost, "/v1/locations", in, http.StatusCreated, &change); err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}
	return &change, nil
}

func (c *APIClient) updateLocation(id world.LocationID, in LocationInput) (*LocationChange, error) {
	var change LocationChange
	if err := c.do(http.MethodPut, "/v1/locations/"+id.String(), in, http.StatusOK, &change); err != nil {
		return nil, fmt.Errorf("failed to update location: %w", err)
	}
	return &change, nil
}

func (c *APIClient) deleteLocation(id world.LocationID) error {
	if err := c.do(http.MethodDelete, "/v1/locations/"+id.String(), nil, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	return nil
}

func (c *APIClient) diagnostics() (*spatial.DiagnosticReport, error) {
	var report spatial.DiagnosticReport
	if err := c.do(http.MethodGet, "/v1/world/diagnostics", nil, http.StatusOK, &report); err != nil {
		return nil, fmt.Errorf("failed to run diagnostics: %w", err)
	}
	return &report, nil
}

func (c *APIClient) do(method, path string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.actorID != "" {
		req.Header.Set("X-Actor-ID", c.actorID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
