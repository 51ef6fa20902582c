package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"

	"rnotes/config"
)

const (
	anthropicVersion   = "2023-06-01"
	defaultMaxTokens   = 4096
	defaultTimeout     = 90 * time.Second
	maxSuggestions     = 5
	defaultInstruction = "Reformat this note into clean, well-structured markdown. Keep the author's content, facts and voice."
)

const transformSystemPrompt = `You rewrite personal notes.
Apply the user's instruction to the note and reply with ONLY a JSON object of the form:
{"formattedText": "<the complete rewritten note>", "suggestions": ["<short follow-up idea>", ...]}
formattedText must contain the whole note, not a fragment. Give at most 5 suggestions.`

// AnthropicClient handles communication with Claude API
type AnthropicClient struct {
	httpClient  *http.Client
	apiURL      string
	apiKey      string
	model       string
	retryPolicy RetryPolicy
}

// NewAnthropicClient creates a new Anthropic API client from the configuration
func NewAnthropicClient(cfg *config.Config) *AnthropicClient {
	return &AnthropicClient{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		apiURL:      cfg.AnthropicAPIURL,
		apiKey:      cfg.AnthropicAPIKey,
		model:       cfg.Model,
		retryPolicy: DefaultRetryPolicy,
	}
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []TextContent `json:"content"`
}

// TextContent represents text content in a message
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CreateMessageRequest represents the request to create a message
type CreateMessageRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
}

// CreateMessageResponse represents the response from creating a message
type CreateMessageResponse struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []TextContent `json:"content"`
	Model   string        `json:"model"`
	Usage   Usage         `json:"usage"`
}

// Usage represents token usage information
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// TransformRequest asks for a rewrite of Text following Instruction.
type TransformRequest struct {
	Text        string
	Instruction string
}

// TransformResult is what the note editor consumes from a transformation.
type TransformResult struct {
	FormattedText string   `json:"formattedText"`
	Suggestions   []string `json:"suggestions"`
}

// Transform sends the note to Claude and parses the rewritten text and suggestions.
func (c *AnthropicClient) Transform(ctx context.Context, tr TransformRequest) (*TransformResult, error) {
	instruction := strings.TrimSpace(tr.Instruction)
	if instruction == "" {
		instruction = defaultInstruction
	}

	request := CreateMessageRequest{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		System:    transformSystemPrompt,
		Messages: []Message{{
			Role: "user",
			Content: []TextContent{{
				Type: "text",
				Text: "Instruction: " + instruction + "\n\n<note>\n" + tr.Text + "\n</note>",
			}},
		}},
	}

	response, err := c.SendMessage(ctx, request)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	result, err := ParseTransformResult(sb.String())
	if err != nil {
		return nil, serr.Wrap(err, "failed to parse transform result", "model", response.Model)
	}

	logger.Info("Transformed note",
		"model", response.Model,
		"inputTokens", response.Usage.InputTokens,
		"outputTokens", response.Usage.OutputTokens,
		"suggestions", len(result.Suggestions),
	)
	return result, nil
}

// SendMessage sends a message to Claude and returns the response.
// Rate limiting and overload responses are retried per the client's policy.
func (c *AnthropicClient) SendMessage(ctx context.Context, request CreateMessageRequest) (*CreateMessageResponse, error) {
	if c.apiKey == "" {
		return nil, serr.New("anthropic API key is not configured")
	}

	// Marshal request
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, serr.Wrap(err, "failed to marshal request")
	}

	logger.Debug("Anthropic API request", "url", c.apiURL, "model", request.Model)

	var response *CreateMessageResponse
	err = retry(ctx, c.retryPolicy, func(ctx context.Context) error {
		var sendErr error
		response, sendErr = c.send(ctx, requestBody)
		return sendErr
	})
	if err != nil {
		fields := []string{"anthropic request failed", "model", request.Model}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			fields = append(fields, "status", strconv.Itoa(apiErr.StatusCode))
		}
		return nil, serr.Wrap(err, fields...)
	}
	return response, nil
}

func (c *AnthropicClient) send(ctx context.Context, requestBody []byte) (*CreateMessageResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(requestBody))
	if err != nil {
		return nil, serr.Wrap(err, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, serr.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, serr.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}

	var response CreateMessageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, serr.Wrap(err, "failed to parse response")
	}

	return &response, nil
}

// ParseTransformResult extracts the JSON object from a model reply,
// tolerating code fences and chatter around it.
func ParseTransformResult(reply string) (*TransformResult, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, serr.New("no JSON object in reply")
	}

	var result TransformResult
	if err := json.Unmarshal([]byte(reply[start:end+1]), &result); err != nil {
		return nil, serr.Wrap(err, "invalid JSON in reply")
	}
	if strings.TrimSpace(result.FormattedText) == "" {
		return nil, serr.New("reply has no formattedText")
	}

	suggestions := make([]string, 0, len(result.Suggestions))
	for _, s := range result.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	result.Suggestions = suggestions

	return &result, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
