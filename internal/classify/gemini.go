package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the model used for the remote classification tier.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiClassifier implements RemoteClassifier on top of the GenAI API.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

// NewGeminiClassifier creates the remote classifier. An empty model selects
// DefaultGeminiModel.
func NewGeminiClassifier(ctx context.Context, apiKey, model string) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("classify: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClassifier{client: client, model: model}, nil
}

// ClassifyBatch sends the batch to the model and returns one free-text
// category string per request. No retry: a failed call fails the batch and
// the engine degrades those records to Uncategorized.
func (g *GeminiClassifier) ClassifyBatch(ctx context.Context, reqs []RemoteRequest) ([]string, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	labels := make([]string, 0, len(All()))
	for _, c := range All() {
		labels = append(labels, string(c))
	}

	var sb strings.Builder
	sb.WriteString("You are a strict transaction classifier.\n\n")
	sb.WriteString("Allowed categories: " + strings.Join(labels, ", ") + "\n\n")
	sb.WriteString("For each transaction below, pick exactly one allowed category.\n")
	sb.WriteString("Output STRICT JSON only: a JSON array of category strings,\n")
	sb.WriteString("one per transaction, in the same order. No code fences, no\n")
	sb.WriteString("extra text. Output must begin with \"[\" and end with \"]\".\n\n")
	for i, r := range reqs {
		fmt.Fprintf(&sb, "%d. merchant=%q description=%q amount=%s %s\n",
			i+1, r.Merchant, r.Description, r.Amount, r.Currency)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: sb.String()}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("classify: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("classify: empty response from model")
	}

	var out []string
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &out); err != nil {
		return nil, fmt.Errorf("classify: unmarshal model response: %w", err)
	}
	if len(out) != len(reqs) {
		return nil, fmt.Errorf("classify: model returned %d labels for %d transactions", len(out), len(reqs))
	}
	return out, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the strict-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
