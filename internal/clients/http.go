/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// HTTPClient is shared plumbing for the generic HTTP-JSON client
// implementations below: a circuit breaker per backend plus a token
// bucket rate limiter, guarding against a flaky or overloaded backend
// from taking the pipeline down with it. The wire format here is
// deliberately generic JSON POST/response — a real vendor integration
// lives outside this repository.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[[]byte]
	limiter  *rate.Limiter
}

// NewHTTPClient builds shared HTTP plumbing for endpoint, named name for
// circuit breaker metrics/logging.
func NewHTTPClient(name, endpoint string, requestsPerSecond float64) *HTTPClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}

	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		breaker:  gobreaker.NewCircuitBreaker[[]byte](settings),
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// postJSON POSTs body as JSON to h.endpoint+path and returns the raw
// response body, guarded by the rate limiter and circuit breaker.
func (h *HTTPClient) postJSON(ctx context.Context, path string, body any) ([]byte, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, &BackendError{Kind: Transient, Op: path, Err: err}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &BackendError{Kind: Persistent, Op: path, Err: err}
	}

	result, err := h.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := h.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("backend %s: transient status %d: %s", path, resp.StatusCode, data)
		}
		if resp.StatusCode >= 400 {
			return nil, &BackendError{Kind: Persistent, Op: path, Err: fmt.Errorf("status %d: %s", resp.StatusCode, data)}
		}
		return data, nil
	})
	if err != nil {
		if _, ok := err.(*BackendError); ok {
			return nil, err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &BackendError{Kind: CircuitOpen, Op: path, Err: err}
		}
		return nil, &BackendError{Kind: Transient, Op: path, Err: err}
	}
	return result, nil
}

// HTTPWriter is the generic HTTP-JSON WriterClient default implementation.
type HTTPWriter struct{ *HTTPClient }

// NewHTTPWriter constructs an HTTPWriter.
func NewHTTPWriter(endpoint string, requestsPerSecond float64) *HTTPWriter {
	return &HTTPWriter{HTTPClient: NewHTTPClient("writer", endpoint, requestsPerSecond)}
}

// Write implements WriterClient.
func (w *HTTPWriter) Write(ctx context.Context, brief Brief) (string, error) {
	data, err := w.postJSON(ctx, "/write", brief)
	if err != nil {
		return "", err
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &BackendError{Kind: BadOutput, Op: "write", Err: err}
	}
	return out.Text, nil
}

// HTTPAuditor is the generic HTTP-JSON AuditorClient default implementation.
type HTTPAuditor struct{ *HTTPClient }

// NewHTTPAuditor constructs an HTTPAuditor.
func NewHTTPAuditor(endpoint string, requestsPerSecond float64) *HTTPAuditor {
	return &HTTPAuditor{HTTPClient: NewHTTPClient("auditor", endpoint, requestsPerSecond)}
}

// Audit implements AuditorClient.
func (a *HTTPAuditor) Audit(ctx context.Context, script, personaID, contentType string) (AuditRecord, error) {
	data, err := a.postJSON(ctx, "/audit", map[string]string{
		"script":       script,
		"persona_id":   personaID,
		"content_type": contentType,
	})
	if err != nil {
		return AuditRecord{}, err
	}

	var out AuditRecord
	if err := json.Unmarshal(data, &out); err != nil {
		// Malformed response is reported as a failed audit, not an
		// exception.
		return AuditRecord{
			Passed:      false,
			Issues:      []string{"auditor_output_unparseable"},
			Notes:       "malformed auditor response",
			RawResponse: string(data),
		}, nil
	}
	out.RawResponse = string(data)
	return out, nil
}

// HTTPTTS is the generic HTTP-JSON TTSClient default implementation.
type HTTPTTS struct{ *HTTPClient }

// NewHTTPTTS constructs an HTTPTTS.
func NewHTTPTTS(endpoint string, requestsPerSecond float64) *HTTPTTS {
	return &HTTPTTS{HTTPClient: NewHTTPClient("tts", endpoint, requestsPerSecond)}
}

// Synthesize implements TTSClient.
func (t *HTTPTTS) Synthesize(ctx context.Context, text string, voiceReference string) ([]byte, error) {
	return t.postJSON(ctx, "/synthesize", map[string]string{
		"text":            text,
		"voice_reference": voiceReference,
	})
}
