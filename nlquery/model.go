package nlquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Model is the text-in/text-out contract every pipeline stage uses.
// It exists so the engine can be exercised with a fake in tests.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TimeoutModel bounds every call to the wrapped model with its own
// deadline, so a hung request surfaces as an error instead of stalling
// the pipeline. A zero Timeout passes calls through unchanged.
type TimeoutModel struct {
	Model   Model
	Timeout time.Duration
}

func (m TimeoutModel) Generate(ctx context.Context, prompt string) (string, error) {
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	return m.Model.Generate(ctx, prompt)
}

// GeminiModel implements Model on top of the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiModel initializes a Gemini client with the given model name
// and sampling temperature.
func NewGeminiModel(ctx context.Context, apiKey, modelName string, temperature float32) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("error initializing Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.Temperature = &temperature
	model.SafetySettings = []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: genai.HarmBlockNone,
		},
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: genai.HarmBlockNone,
		},
	}

	return &GeminiModel{client: client, model: model}, nil
}

// Generate sends one prompt and returns the model's text response.
// Rate-limited calls are retried with exponential backoff; other
// failures are returned to the caller.
func (g *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	backoff := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
	}

	var lastErr error
	for _, wait := range backoff {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		chat := g.model.StartChat()
		resp, err := chat.SendMessage(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = err
			if !isRateLimitError(err) {
				return "", err
			}
			time.Sleep(wait)
			continue
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
			len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = fmt.Errorf("no response candidates")
			time.Sleep(wait)
			continue
		}

		text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
		if !ok {
			return "", fmt.Errorf("unexpected response type: %T", resp.Candidates[0].Content.Parts[0])
		}
		return strings.TrimSpace(string(text)), nil
	}

	return "", fmt.Errorf("all attempts failed, last error: %w", lastErr)
}

// Close releases the underlying client.
func (g *GeminiModel) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

func isRateLimitError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota exceeded")
}
