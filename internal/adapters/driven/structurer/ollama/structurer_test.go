package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bindery-cli/internal/core/domain"
	"github.com/custodia-labs/bindery-cli/internal/core/ports/driven"
)

// newTestStructurer wires a structurer to a fake Ollama server that
// returns raw as the generation response.
func newTestStructurer(t *testing.T, raw string) (*Structurer, *generateRequest) {
	t.Helper()

	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(generateResponse{Response: raw, Done: true})
	}))
	t.Cleanup(server.Close)

	return NewStructurer(Config{BaseURL: server.URL}), &captured
}

func TestStructure_ParsesValidPayload(t *testing.T) {
	s, captured := newTestStructurer(t, `{"title": "Garden Notes", "chunks": [
		{"title": "Soil", "content": "Mix compost into the beds."},
		{"title": "Water", "content": "Water at dawn."}
	]}`)

	result, err := s.Structure(context.Background(), "compost and watering notes", 0.3)
	require.NoError(t, err)

	assert.Equal(t, "Garden Notes", result.Title)
	require.Len(t, result.Chunks, 2)
	assert.Equal(t, "Soil", result.Chunks[0].Title)
	assert.Equal(t, "Mix compost into the beds.", result.Chunks[0].Content)
	assert.Equal(t, "Water at dawn.", result.Chunks[1].Content)

	assert.Equal(t, "json", captured.Format)
	assert.False(t, captured.Stream)
	assert.Contains(t, captured.Prompt, "compost and watering notes")
}

func TestStructure_EffortScalesWithIntensity(t *testing.T) {
	cases := []struct {
		intensity float64
		want      string
	}{
		{0.1, effortInstructions[driven.EffortMinimal]},
		{0.4, effortInstructions[driven.EffortLow]},
		{0.6, effortInstructions[driven.EffortMedium]},
		{0.9, effortInstructions[driven.EffortHigh]},
	}

	for _, tc := range cases {
		s, captured := newTestStructurer(t, `{"title": "t", "chunks": [{"title": "a", "content": "b"}]}`)
		_, err := s.Structure(context.Background(), "text", tc.intensity)
		require.NoError(t, err)
		assert.Contains(t, captured.Prompt, tc.want, "intensity %v", tc.intensity)
	}
}

func TestStructure_StripsCodeFences(t *testing.T) {
	s, _ := newTestStructurer(t, "```json\n{\"title\": \"t\", \"chunks\": [{\"title\": \"a\", \"content\": \"b\"}]}\n```")

	result, err := s.Structure(context.Background(), "text", 0.5)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "b", result.Chunks[0].Content)
}

func TestStructure_EmptyInput(t *testing.T) {
	s := NewStructurer(Config{})

	_, err := s.Structure(context.Background(), "   \n\t ", 0.5)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestStructure_MalformedJSON(t *testing.T) {
	s, _ := newTestStructurer(t, "here are your chunks: one, two")

	_, err := s.Structure(context.Background(), "text", 0.5)
	assert.ErrorIs(t, err, domain.ErrMalformedProviderResponse)
}

func TestStructure_NoChunks(t *testing.T) {
	s, _ := newTestStructurer(t, `{"title": "empty", "chunks": []}`)

	_, err := s.Structure(context.Background(), "text", 0.5)
	assert.ErrorIs(t, err, domain.ErrMalformedProviderResponse)
}

func TestStructure_EmptyChunkContentRejected(t *testing.T) {
	s, _ := newTestStructurer(t, `{"title": "t", "chunks": [
		{"title": "ok", "content": "fine"},
		{"title": "bad", "content": "   "}
	]}`)

	_, err := s.Structure(context.Background(), "text", 0.5)
	assert.ErrorIs(t, err, domain.ErrMalformedProviderResponse)
}

func TestStructure_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	s := NewStructurer(Config{BaseURL: server.URL})
	_, err := s.Structure(context.Background(), "text", 0.5)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestStructure_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	s := NewStructurer(Config{BaseURL: server.URL})
	_, err := s.Structure(context.Background(), "text", 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
