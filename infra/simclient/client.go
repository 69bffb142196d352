// Package simclient sends simulation inputs to the remote simulation
// service as a single multipart request.
package simclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kilianp07/evload/config"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/infra/logger"
)

// maxErrorBody bounds how much of a failed response is kept for logging.
const maxErrorBody = 512

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("simulation service returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("simulation service returned %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// StatusCode returns the HTTP status of the failed response.
func (e *StatusError) StatusCode() int { return e.Code }

// Client posts submissions to the simulation endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	log      logger.Logger
}

// New creates a Client for cfg.Endpoint. A zero timeout leaves requests
// bounded only by the caller's context.
func New(cfg config.SimulatorConfig) *Client {
	return NewWithHTTPClient(cfg.Endpoint, httpClient(cfg))
}

// NewWithHTTPClient creates a Client using hc.
func NewWithHTTPClient(endpoint string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{endpoint: endpoint, http: hc, log: logger.New("sim-client")}
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string { return c.endpoint }

// Simulate sends the three input files and returns the raw response body.
func (c *Client) Simulate(ctx context.Context, req model.SubmissionRequest) (model.ResultArchive, error) {
	body, contentType, err := encode(req)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", contentType)
	hreq.Header.Set("Accept", "application/zip")

	c.log.Debugf("posting %d bytes to %s", body.Len(), c.endpoint)
	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return model.ResultArchive(data), nil
}

func encode(req model.SubmissionRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, slot := range model.Slots {
		f := req.File(slot)
		part, err := mw.CreateFormFile(slot.PartName(), f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
