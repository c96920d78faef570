package gemini

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// Client embeds text with the Gemini embeddings API.
type Client struct {
	client    *genai.Client
	model     string
	taskType  string
	batchSize int
	dimension int
}

// Config configures the Gemini embeddings client.
type Config struct {
	APIKeyEnv string
	Model     string
	TaskType  string
	BaseURL   string
	BatchSize int
}

// NewClient creates a client using the API key found in cfg.APIKeyEnv.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "GOOGLE_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "models/text-embedding-004"
	}
	if cfg.TaskType == "" {
		cfg.TaskType = "RETRIEVAL_DOCUMENT"
	}
	// batchEmbedContents accepts at most 100 requests
	if cfg.BatchSize <= 0 || cfg.BatchSize > 100 {
		cfg.BatchSize = 100
	}
	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{
		client:    client,
		model:     cfg.Model,
		taskType:  cfg.TaskType,
		batchSize: cfg.BatchSize,
	}, nil
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Model() string { return c.model }

// Prepare is not required for remote embedding. Dimension is set on first embed.
func (c *Client) Prepare(corpus []string) error { return nil }

func (c *Client) Dimension() int { return c.dimension }

// EmbedDocuments returns one vector per text, in order.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}
		resp, err := c.client.Models.EmbedContent(ctx, c.model, contents, &genai.EmbedContentConfig{TaskType: c.taskType})
		if err != nil {
			return nil, fmt.Errorf("gemini embeddings failed: %w", err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), end-start)
		}
		for _, e := range resp.Embeddings {
			if e == nil || len(e.Values) == 0 {
				return nil, fmt.Errorf("gemini returned an empty embedding")
			}
			if c.dimension == 0 {
				c.dimension = len(e.Values)
			}
			out = append(out, e.Values)
		}
	}
	return out, nil
}
