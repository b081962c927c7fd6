package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const transcribePrompt = "Transcribe this short spoken statement verbatim. Reply with the transcription only. " +
	"If nothing intelligible is said, reply with an empty message."

// GeminiTranscriber transcribes audio by sending it inline to a Gemini model.
type GeminiTranscriber struct {
	client *genai.Client
	model  string
}

func NewGeminiTranscriber(ctx context.Context, apiKey, model string) (*GeminiTranscriber, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiTranscriber{client: client, model: model}, nil
}

func (t *GeminiTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: transcribePrompt},
				{InlineData: &genai.Blob{Data: audio, MIMEType: "audio/wav"}},
			},
		},
	}

	result, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("no transcription from Gemini")
	}
	return text, nil
}
