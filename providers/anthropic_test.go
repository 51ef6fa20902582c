package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohanthewiz/serr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnotes/config"
)

func TestParseTransformResult(t *testing.T) {
	tests := []struct {
		name        string
		reply       string
		wantText    string
		wantSuggest []string
		wantErr     bool
	}{
		{
			name:        "plain json",
			reply:       `{"formattedText":"## A\n- b","suggestions":["Add dates"]}`,
			wantText:    "## A\n- b",
			wantSuggest: []string{"Add dates"},
		},
		{
			name:        "fenced with chatter",
			reply:       "Here you go:\n```json\n{\"formattedText\":\"x\",\"suggestions\":[\" \",\"one\"]}\n```",
			wantText:    "x",
			wantSuggest: []string{"one"},
		},
		{
			name:        "caps suggestions",
			reply:       `{"formattedText":"x","suggestions":["1","2","3","4","5","6","7"]}`,
			wantText:    "x",
			wantSuggest: []string{"1", "2", "3", "4", "5"},
		},
		{name: "no json", reply: "sorry", wantErr: true},
		{name: "broken json", reply: `{"formattedText": }`, wantErr: true},
		{name: "empty text", reply: `{"formattedText":"  ","suggestions":[]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTransformResult(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, got.FormattedText)
			assert.Equal(t, tt.wantSuggest, got.Suggestions)
		})
	}
}

func TestTransform(t *testing.T) {
	var captured CreateMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		reply := `{"formattedText":"## Groceries\n- milk","suggestions":["Sort by aisle"]}`
		_ = json.NewEncoder(w).Encode(CreateMessageResponse{
			Model:   "test-model",
			Content: []TextContent{{Type: "text", Text: reply}},
		})
	}))
	defer server.Close()

	client := NewAnthropicClient(&config.Config{
		AnthropicAPIURL: server.URL,
		AnthropicAPIKey: "test-key",
		Model:           "test-model",
	})

	result, err := client.Transform(context.Background(), TransformRequest{Text: "milk"})
	require.NoError(t, err)
	assert.Equal(t, "## Groceries\n- milk", result.FormattedText)
	assert.Equal(t, []string{"Sort by aisle"}, result.Suggestions)

	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 1)
	assert.Contains(t, captured.Messages[0].Content[0].Text, defaultInstruction)
	assert.Contains(t, captured.Messages[0].Content[0].Text, "<note>\nmilk\n</note>")
}

func TestTransform_APIError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"invalid model"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewAnthropicClient(&config.Config{AnthropicAPIURL: server.URL, AnthropicAPIKey: "k"})

	_, err := client.Transform(context.Background(), TransformRequest{Text: "x", Instruction: "fix"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "API error"), err.Error())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "client errors are not retried")

	var se serr.SErr
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "400", se.FieldsMap()["status"])
}

func TestTransform_RetriesOverload(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, `{"error":"overloaded"}`, statusOverloaded)
			return
		}
		_ = json.NewEncoder(w).Encode(CreateMessageResponse{
			Content: []TextContent{{Type: "text", Text: `{"formattedText":"ok","suggestions":[]}`}},
		})
	}))
	defer server.Close()

	client := NewAnthropicClient(&config.Config{AnthropicAPIURL: server.URL, AnthropicAPIKey: "k"})
	client.retryPolicy = RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	result, err := client.Transform(context.Background(), TransformRequest{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.FormattedText)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTransform_MissingKey(t *testing.T) {
	client := NewAnthropicClient(&config.Config{AnthropicAPIURL: "http://unused"})
	_, err := client.Transform(context.Background(), TransformRequest{Text: "x"})
	assert.Error(t, err)
}
