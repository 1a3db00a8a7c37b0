// Package exchange holds the outbound clients for the third-party AI APIs
// the service proxies: a Gemini-style text generator and a Sonar-style
// structured Q&A endpoint.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent"
	defaultSonarURL  = "https://api.perplexity.ai/chat/completions"
)

// Config holds provider credentials from environment variables.
type Config struct {
	GeminiAPIKey string
	SonarAPIKey  string
}

// Answer is the structured Q&A shape the Sonar provider is asked to emit.
type Answer struct {
	Title     string            `json:"title"`
	Summary   string            `json:"summary"`
	KeyPoints map[string]string `json:"key_points"`
}

// Client calls the upstream providers.
type Client struct {
	cfg        Config
	httpClient *http.Client
	geminiURL  string
	sonarURL   string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithGeminiURL overrides the generation endpoint (tests).
func WithGeminiURL(url string) Option {
	return func(c *Client) {
		c.geminiURL = url
	}
}

// WithSonarURL overrides the Q&A endpoint (tests).
func WithSonarURL(url string) Option {
	return func(c *Client) {
		c.sonarURL = url
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		geminiURL:  defaultGeminiURL,
		sonarURL:   defaultSonarURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GeminiConfigured returns true if the generation provider has a key.
func (c *Client) GeminiConfigured() bool { return c.cfg.GeminiAPIKey != "" }

// SonarConfigured returns true if the Q&A provider has a key.
func (c *Client) SonarConfigured() bool { return c.cfg.SonarAPIKey != "" }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate sends the message to the text-generation provider and returns the
// first candidate's text.
func (c *Client) Generate(ctx context.Context, message string) (string, error) {
	if !c.GeminiConfigured() {
		return "", fmt.Errorf("generation provider not configured: missing API key")
	}

	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: message}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.geminiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.GeminiAPIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("provider status %d: %s", resp.StatusCode, b)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("provider returned no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

type sonarMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sonarRequest struct {
	Model       string         `json:"model"`
	Messages    []sonarMessage `json:"messages"`
	MaxTokens   int            `json:"max_tokens"`
	Temperature float64        `json:"temperature"`
	TopP        float64        `json:"top_p"`
}

type sonarResponse struct {
	Choices []struct {
		Message sonarMessage `json:"message"`
	} `json:"choices"`
}

// Ask sends the query to the Q&A provider, asking it to answer as a JSON
// object, and parses that object out of the reply.
func (c *Client) Ask(ctx context.Context, query string) (*Answer, error) {
	if !c.SonarConfigured() {
		return nil, fmt.Errorf("Q&A provider not configured: missing API key")
	}

	prompt := query + " Please output a JSON object containing the following fields: " +
		"title (a brief title), summary (a concise summary), " +
		"and key_points (a dictionary with at least 3 key-value pairs)."

	payload := sonarRequest{
		Model: "sonar-medium-online",
		Messages: []sonarMessage{
			{Role: "system", Content: "Be precise and concise."},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   1000,
		Temperature: 0.7,
		TopP:        1.0,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sonarURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.SonarAPIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("provider status %d: %s", resp.StatusCode, b)
	}

	var parsed sonarResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("provider returned no choices")
	}

	var answer Answer
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &answer); err != nil {
		return nil, fmt.Errorf("parse answer content: %w", err)
	}
	return &answer, nil
}
