// Package rollup drives the dispatcher against the external coordinator.
//
// The coordinator is polled by POSTing the previous instruction's outcome
// to /finish; the response is either "nothing pending" (re-poll
// immediately) or the next instruction. Inspect output travels back as
// hex-encoded report payloads.
package rollup

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Modern-Society-Labs/lcore-node/internal/dispatch"
)

// ErrCoordinatorUnavailable indicates the coordinator could not be reached
// or returned an unusable response. Fatal at the loop boundary once retries
// are exhausted: the loop itself cannot make progress.
var ErrCoordinatorUnavailable = errors.New("coordinator unavailable")

// maxResponseSize caps coordinator response bodies.
const maxResponseSize = 4 * 1024 * 1024

// Client talks to the coordinator over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a coordinator client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// finishBody is the JSON posted to /finish.
type finishBody struct {
	Status string `json:"status"`
}

// wireRequest is the coordinator's pending-instruction response.
type wireRequest struct {
	RequestType string `json:"request_type"`
	Data        struct {
		Payload string `json:"payload"`
	} `json:"data"`
}

// reportBody is the JSON posted to /report.
type reportBody struct {
	Payload string `json:"payload"`
}

// Finish submits the previous outcome and fetches the next instruction.
// Returns (nil, nil) when the coordinator has no pending work, in which
// case the caller re-polls immediately.
func (c *Client) Finish(ctx context.Context, status dispatch.Status) (*dispatch.Request, error) {
	body, err := json.Marshal(finishBody{Status: string(status)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode finish body: %w", err)
	}

	resp, err := c.post(ctx, c.baseURL+"/finish", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		// No pending work.
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	case http.StatusOK:
	default:
		return nil, fmt.Errorf("%w: /finish returned status %d", ErrCoordinatorUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read /finish response: %v", ErrCoordinatorUnavailable, err)
	}

	var wire wireRequest
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: unparseable /finish response: %v", ErrCoordinatorUnavailable, err)
	}

	payload, err := dispatch.DecodeHex(wire.Data.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable instruction payload: %v", ErrCoordinatorUnavailable, err)
	}

	return &dispatch.Request{
		Kind:    dispatch.ParseKind(wire.RequestType),
		RawKind: wire.RequestType,
		Payload: payload,
	}, nil
}

// Report sends inspect output back to the coordinator.
func (c *Client) Report(ctx context.Context, payload []byte) error {
	body, err := json.Marshal(reportBody{Payload: "0x" + hex.EncodeToString(payload)})
	if err != nil {
		return fmt.Errorf("failed to encode report body: %w", err)
	}

	resp, err := c.post(ctx, c.baseURL+"/report", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("%w: /report returned status %d", ErrCoordinatorUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCoordinatorUnavailable, err)
	}
	return resp, nil
}
