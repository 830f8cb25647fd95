// Package classifier suggests tags for new notes via the Anthropic API.
// Suggestions favor the existing tag vocabulary so that the normalization
// engine has less inconsistency to clean up later.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const anthropicAPI = "https://api.anthropic.com/v1/messages"

// TagSuggestion is one suggested tag for a note.
type TagSuggestion struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// ClassifyResult holds the classification output.
type ClassifyResult struct {
	Tags []TagSuggestion `json:"tags"`
}

// Classifier handles note classification via the Anthropic API.
type Classifier struct {
	apiKey string
	model  string
}

// New creates a new Classifier.
func New() (*Classifier, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	return &Classifier{
		apiKey: apiKey,
		model:  "claude-sonnet-4-20250514",
	}, nil
}

// Classify analyzes a note and returns tag suggestions.
func (c *Classifier) Classify(ctx context.Context, title, content string, existingTags []string) (*ClassifyResult, error) {
	prompt := buildPrompt(title, content, existingTags)

	resp, err := c.callAPI(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}

	return parseResponse(resp)
}

func buildPrompt(title, content string, existingTags []string) string {
	var sb strings.Builder

	sb.WriteString("Suggest tags for this note. Return JSON only.\n\n")
	sb.WriteString("Title: ")
	sb.WriteString(title)
	sb.WriteString("\n\nContent:\n")
	sb.WriteString(content)
	sb.WriteString("\n\n")

	if len(existingTags) > 0 {
		sb.WriteString("Existing tags in the system (strongly prefer reusing these):\n")
		for _, tag := range existingTags {
			sb.WriteString("- ")
			sb.WriteString(tag)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`Return a JSON object with this structure:
{
  "tags": [
    {"name": "tag-name", "confidence": 0.9}
  ]
}

Rules:
- Use lowercase, hyphenated tag names (e.g., "machine-learning" not "Machine Learning")
- Suggest 1-3 relevant tags
- Confidence is 0.0-1.0 based on how certain the classification is
- Reuse an existing tag whenever one fits; spelling variants of an existing tag count as that tag
- Keep tags general enough to be reusable across notes

Return ONLY the JSON, no other text.`)

	return sb.String()
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Classifier) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := apiRequest{
		Model:     c.model,
		MaxTokens: 1024,
		Messages: []apiMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPI, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("api error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return apiResp.Content[0].Text, nil
}

func parseResponse(resp string) (*ClassifyResult, error) {
	// Strip markdown code fences if present.
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var result ClassifyResult
	if err := json.Unmarshal([]byte(resp), &result); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}

	return &result, nil
}
