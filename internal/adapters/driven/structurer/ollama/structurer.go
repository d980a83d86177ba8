// Package ollama provides a text-structuring provider backed by an
// Ollama generation model. The model is prompted to segment (and,
// at higher effort levels, lightly rewrite) raw notes into titled
// chunks returned as JSON.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/bindery-cli/internal/core/domain"
	"github.com/custodia-labs/bindery-cli/internal/core/ports/driven"
)

// Ensure Structurer implements the interface.
var _ driven.Structurer = (*Structurer)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama structurer.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the generation model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Structurer delegates chunking to an Ollama generation model.
type Structurer struct {
	client  *http.Client
	baseURL string
	model   string
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// structuredPayload is the JSON contract the model is asked to emit.
type structuredPayload struct {
	Title  string `json:"title"`
	Chunks []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"chunks"`
}

// effortInstructions steer how much the model may rewrite.
var effortInstructions = map[driven.Effort]string{
	driven.EffortMinimal: "Segment the text only. Do not change any wording.",
	driven.EffortLow:     "Segment the text. You may fix obvious typos but keep the wording.",
	driven.EffortMedium:  "Segment the text and lightly clean up grammar and flow within each chunk.",
	driven.EffortHigh:    "Segment the text and rewrite each chunk for clarity while preserving meaning.",
}

// NewStructurer creates a new Ollama structurer.
func NewStructurer(cfg Config) *Structurer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Structurer{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Structure splits text into titled chunks at the effort level
// implied by intensity.
func (s *Structurer) Structure(ctx context.Context, text string, intensity float64) (*driven.StructureResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("structurer input: %w", domain.ErrEmptyInput)
	}

	effort := driven.EffortForIntensity(intensity)
	prompt := buildPrompt(text, effort)

	reqBody := generateRequest{
		Model:  s.model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: %v: %w", err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decode response: %v: %w", err, domain.ErrMalformedProviderResponse)
	}

	return parsePayload(genResp.Response)
}

// buildPrompt renders the structuring instruction for the model.
func buildPrompt(text string, effort driven.Effort) string {
	var b strings.Builder
	b.WriteString("You organize raw personal notes into a structured document.\n")
	b.WriteString(effortInstructions[effort])
	b.WriteString("\n\nReturn ONLY a JSON object of the form:\n")
	b.WriteString(`{"title": "...", "chunks": [{"title": "...", "content": "..."}]}`)
	b.WriteString("\n\nNotes:\n")
	b.WriteString(text)
	return b.String()
}

// parsePayload validates the model output against the chunk contract.
// A partially-parsed structure is never returned.
func parsePayload(raw string) (*driven.StructureResult, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var payload structuredPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("parsing structurer output: %v: %w", err, domain.ErrMalformedProviderResponse)
	}

	if len(payload.Chunks) == 0 {
		return nil, fmt.Errorf("structurer returned no chunks: %w", domain.ErrMalformedProviderResponse)
	}

	result := &driven.StructureResult{
		Title:  strings.TrimSpace(payload.Title),
		Chunks: make([]driven.StructuredChunk, 0, len(payload.Chunks)),
	}
	for i, c := range payload.Chunks {
		content := strings.TrimSpace(c.Content)
		if content == "" {
			return nil, fmt.Errorf("structurer chunk %d has empty content: %w",
				i, domain.ErrMalformedProviderResponse)
		}
		result.Chunks = append(result.Chunks, driven.StructuredChunk{
			Title:   strings.TrimSpace(c.Title),
			Content: content,
		})
	}

	return result, nil
}

// Close releases resources.
func (s *Structurer) Close() error {
	return nil
}
