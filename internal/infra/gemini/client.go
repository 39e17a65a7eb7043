package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"knowledge-race/internal/domain"
)

const (
	DefaultModel = "gemini-2.5-flash"
	DefaultTopic = "Moroccan culture, history, food, music, and traditions"
)

// Options configures the generator client. An empty BaseURL uses the SDK's
// default Gemini API endpoint.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Topic   string
	Timeout time.Duration
}

// Client asks a Gemini model for question sets using a JSON response schema.
type Client struct {
	models *genai.Models
	model  string
	topic  string
}

// NewClient builds the generator. Without an API key no SDK client is
// created and every call reports an unavailable provider.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	c := &Client{model: opts.Model, topic: opts.Topic}
	if opts.APIKey == "" {
		return c, nil
	}

	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      opts.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: opts.Timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: opts.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	c.models = sdk.Models
	return c, nil
}

// Questions generates count questions.
func (c *Client) Questions(ctx context.Context, count int) ([]domain.Question, error) {
	if c.models == nil {
		return nil, fmt.Errorf("%w: no api key configured", domain.ErrProviderUnavailable)
	}

	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: c.prompt(count)}}}}
	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   questionSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	return parseQuestions(text)
}

func (c *Client) prompt(count int) string {
	return fmt.Sprintf(`Generate %d diverse multiple-choice quiz questions about %s.
The questions should be suitable for a mixed audience of students and elders.
Ensure a good mix of difficulty.
Each question must have exactly %d options.
Include a short 'fact' or explanation for each answer.`, count, c.topic, domain.OptionCount)
}

func questionSchema() *genai.Schema {
	categories := make([]string, 0, len(domain.Categories))
	for _, cat := range domain.Categories {
		categories = append(categories, string(cat))
	}
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"id":                 {Type: genai.TypeString},
				"text":               {Type: genai.TypeString},
				"options":            {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				"correctAnswerIndex": {Type: genai.TypeInteger},
				"category":           {Type: genai.TypeString, Enum: categories},
				"fact":               {Type: genai.TypeString},
			},
			Required: []string{"id", "text", "options", "correctAnswerIndex", "category", "fact"},
		},
	}
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty response", domain.ErrMalformedQuestion)
	}
	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			text.WriteString(p.Text)
		}
	}
	return text.String(), nil
}

func parseQuestions(text string) ([]domain.Question, error) {
	var questions []domain.Question
	if err := json.Unmarshal([]byte(text), &questions); err != nil {
		return nil, fmt.Errorf("%w: decode questions: %v", domain.ErrMalformedQuestion, err)
	}
	return questions, nil
}
