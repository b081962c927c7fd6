package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAISpeaker synthesizes speech with the OpenAI TTS API and plays the WAV
// through a local player command reading stdin.
type OpenAISpeaker struct {
	client *openai.Client
	voice  string
	player []string
}

func NewOpenAISpeaker(apiKey, voice, playerCommand string, opts ...option.RequestOption) (*OpenAISpeaker, error) {
	player, err := splitCommand(playerCommand, nil)
	if err != nil {
		return nil, fmt.Errorf("player command: %w", err)
	}
	if voice == "" {
		voice = "alloy"
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAISpeaker{client: &client, voice: voice, player: player}, nil
}

func (s *OpenAISpeaker) Say(ctx context.Context, text string) error {
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModelTTS1,
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		return fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading speech audio: %w", err)
	}
	_, err = runCommand(ctx, s.player, audio)
	return err
}

// OpenAITranscriber transcribes audio with Whisper.
type OpenAITranscriber struct {
	client   *openai.Client
	language string
}

func NewOpenAITranscriber(apiKey, language string, opts ...option.RequestOption) *OpenAITranscriber {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAITranscriber{client: &client, language: language}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "reason.wav", "audio/wav"),
		Model: openai.AudioModelWhisper1,
	}
	if t.language != "" {
		params.Language = openai.String(t.language)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return resp.Text, nil
}
