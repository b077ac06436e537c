// Package genai calls the hosted prompt service used for AI scoring and
// report text. Responses are validated against a JSON schema before they are
// returned.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Dan9191/loan-service/internal/metrics"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrUpstream = errors.New("prompt service failed")
	ErrDisabled = errors.New("prompt service not configured")
)

// Config holds prompt service settings
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

const defaultTimeout = 30 * time.Second

// MaxDuration is the longest a Generate call can take: every attempt at the
// full timeout plus the backoff between them.
func (c Config) MaxDuration() time.Duration {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	total := time.Duration(c.MaxRetries+1) * timeout
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		total += backoff(attempt)
	}
	return total
}

func backoff(attempt int) time.Duration {
	return time.Duration(100*(1<<(attempt-1))) * time.Millisecond
}

// Prompt is one templated call with the schema its output must satisfy
type Prompt struct {
	Name         string
	Text         string
	OutputSchema map[string]interface{}
}

// Client talks to the prompt service over HTTP
type Client struct {
	cfg    Config
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new prompt service client
func NewClient(cfg Config, log *logrus.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

// Enabled reports whether a service URL is configured
func (c *Client) Enabled() bool {
	return c.cfg.BaseURL != ""
}

type generateRequest struct {
	Model  string        `json:"model,omitempty"`
	Prompt promptPayload `json:"prompt"`
	Output outputPayload `json:"output"`
}

type promptPayload struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type outputPayload struct {
	Format string                 `json:"format"`
	Schema map[string]interface{} `json:"schema,omitempty"`
}

// Generate runs the prompt and returns its JSON output once it matches the
// prompt's output schema.
func (c *Client) Generate(ctx context.Context, p Prompt) (json.RawMessage, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.MaxDuration())
	defer cancel()

	out, err := c.generate(ctx, p)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.GenAIRequests.WithLabelValues(p.Name, result).Inc()
	return out, err
}

func (c *Client) generate(ctx context.Context, p Prompt) (json.RawMessage, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: promptPayload{Name: p.Name, Text: p.Text},
		Output: outputPayload{Format: "json", Schema: p.OutputSchema},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode prompt: %w", err)
	}

	body, err := c.send(ctx, payload)
	if err != nil {
		return nil, err
	}

	out, err := extractOutput(body)
	if err != nil {
		c.log.WithField("prompt", p.Name).Debugf("Unusable prompt response: %s", string(body))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if len(p.OutputSchema) > 0 {
		if err := validateOutput(p.OutputSchema, out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}

	c.log.WithField("prompt", p.Name).Debug("Prompt completed")
	return out, nil
}

// send posts the payload, retrying transport failures and 5xx/429 responses
// with exponential backoff.
func (c *Client) send(ctx context.Context, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUpstream, ctx.Err())
			}
		}

		body, retry, err := c.do(ctx, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
		c.log.WithError(err).Warnf("Prompt service attempt %d failed", attempt+1)
	}
	return nil, fmt.Errorf("%w: %v", ErrUpstream, lastErr)
}

func (c *Client) do(ctx context.Context, payload []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/v1/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retry, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, false, nil
}

// extractOutput accepts either {"output": {...}} or a {"text": "..."} envelope
// whose text embeds a JSON object.
func extractOutput(body []byte) (json.RawMessage, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not valid JSON")
	}

	if out := gjson.GetBytes(body, "output"); out.Exists() && out.IsObject() {
		return json.RawMessage(out.Raw), nil
	}

	text := gjson.GetBytes(body, "text").String()
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object found in response")
	}
	candidate := text[start : end+1]
	if !gjson.Valid(candidate) {
		return nil, errors.New("embedded JSON object is malformed")
	}
	return json.RawMessage(candidate), nil
}

func validateOutput(schema map[string]interface{}, out []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewBytesLoader(out))
	if err != nil {
		return fmt.Errorf("schema validation error: %v", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("output does not match schema: %v", errs)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
