package ocrspace

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL  = "https://api.ocr.space/parse/image"
	defaultLanguage = "eng"
	defaultTimeout  = 30 * time.Second
)

// Client calls the OCR.space parse endpoint.
type Client struct {
	apiKey   string
	language string
	baseURL  string
	client   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithLanguage sets the OCR language code (see https://ocr.space/OCRAPI).
func WithLanguage(language string) Option {
	return func(c *Client) {
		if language != "" {
			c.language = language
		}
	}
}

// WithBaseURL overrides the parse endpoint URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient creates a new OCR.space client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ocr.space api key is required")
	}
	c := &Client{
		apiKey:   apiKey,
		language: defaultLanguage,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ParseImage submits image bytes for recognition and returns the decoded
// result together with the raw response body, so callers can persist or
// replay the provider's JSON as-is. The overlay is always requested since
// table reconstruction needs word geometry.
func (c *Client) ParseImage(ctx context.Context, imageData []byte) (*Result, []byte, error) {
	form := url.Values{}
	form.Set("apikey", c.apiKey)
	form.Set("language", c.language)
	form.Set("isOverlayRequired", "true")
	form.Set("isTable", "true")
	form.Set("OCREngine", "2")
	form.Set("base64Image", "data:image/jpg;base64,"+base64.StdEncoding.EncodeToString(imageData))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("calling ocr.space API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("ocr.space API error (status %d): %s", resp.StatusCode, string(body))
	}

	result, err := ParseResponse(body)
	if err != nil {
		return nil, nil, err
	}
	if result.ErroredOnProcessing {
		return nil, nil, fmt.Errorf("ocr.space processing failed: %s", processingErrors(result))
	}
	return result, body, nil
}

func processingErrors(result *Result) string {
	var messages []string
	for _, page := range result.Pages {
		if page.ErrorMessage != "" {
			messages = append(messages, page.ErrorMessage)
		}
		if page.ErrorDetails != "" {
			messages = append(messages, page.ErrorDetails)
		}
	}
	if len(messages) == 0 {
		return fmt.Sprintf("exit code %d", result.ExitCode)
	}
	return strings.Join(messages, "; ")
}
