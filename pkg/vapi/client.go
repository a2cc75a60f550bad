// Package vapi talks to the assistant REST API.
package vapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-vct/pkg/artifact"
	"github.com/mattsolo1/grove-vct/pkg/record"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.vapi.ai"

const defaultTimeout = 30 * time.Second

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Client fetches and updates assistants.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	log *logrus.Entry
}

// NewClient creates a client for baseURL. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		log:        grovelogging.NewLogger("vct.api"),
	}
}

// GetAssistant fetches the full record of one assistant.
func (c *Client) GetAssistant(ctx context.Context, id string) (record.Record, error) {
	return c.do(ctx, http.MethodGet, id, nil)
}

// UpdateAssistant pushes rec to the assistant id. Metadata keys are stripped
// from the body since the API owns them.
func (c *Client) UpdateAssistant(ctx context.Context, id string, rec record.Record) (record.Record, error) {
	body := rec.Without(record.MetadataKeys...)
	return c.do(ctx, http.MethodPatch, id, body.Bytes())
}

func (c *Client) do(ctx context.Context, method, id string, body []byte) (record.Record, error) {
	if id == "" {
		return record.Record{}, fmt.Errorf("assistant id is required")
	}
	endpoint := c.BaseURL + "/assistant/" + url.PathEscape(id)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return record.Record{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return record.Record{}, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return record.Record{}, fmt.Errorf("read response: %w", err)
	}

	c.logger().WithFields(logrus.Fields{
		"method":   method,
		"id":       id,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("API request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return record.Record{}, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	rec, err := record.Parse(data)
	if err != nil {
		return record.Record{}, fmt.Errorf("decode assistant %s: %w", id, err)
	}
	return rec, nil
}

func (c *Client) logger() *logrus.Entry {
	if c.log == nil {
		c.log = grovelogging.NewLogger("vct.api")
	}
	return c.log
}

// RecordFilename returns the file name a fetched assistant is saved under.
func RecordFilename(id string) string {
	return fmt.Sprintf("assistant_%s.json", id)
}

// SaveRecord writes rec as RecordFilename(id) in dir and returns the path.
func SaveRecord(dir, id string, rec record.Record) (string, error) {
	content, err := rec.Pretty()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, RecordFilename(id))
	if err := artifact.WriteAtomic(path, content); err != nil {
		return "", fmt.Errorf("save assistant %s: %w", id, err)
	}
	return path, nil
}
