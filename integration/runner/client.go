package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jwebster45206/world-engine/internal/services"
	"github.com/jwebster45206/world-engine/pkg/spatial"
	"github.com/jwebster45206/world-engine/pkg/world"
)

// call sends one API request and returns the status and raw body.
func (r *Runner) call(ctx context.Context, method, path, actor string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func decode[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("failed to parse response: %w", err)
	}
	return v, nil
}

// loadWorld fetches every location keyed by ID.
func (r *Runner) loadWorld(ctx context.Context) (map[world.LocationID]*world.Location, error) {
	status, body, err := r.call(ctx, http.MethodGet, "/v1/locations", "", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list locations returned %d: %s", status, string(body))
	}
	locs, err := decode[[]*world.Location](body)
	if err != nil {
		return nil, err
	}
	out := make(map[world.LocationID]*world.Location, len(locs))
	for _, loc := range locs {
		out[loc.ID] = loc
	}
	return out, nil
}

func decodeChange(body []byte) (*services.LocationChange, error) {
	c, err := decode[services.LocationChange](body)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeValidation(body []byte) (spatial.ExitValidation, error) {
	return decode[spatial.ExitValidation](body)
}

func decodeReport(body []byte) (spatial.DiagnosticReport, error) {
	return decode[spatial.DiagnosticReport](body)
}
