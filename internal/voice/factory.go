package voice

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// New builds the speaker and listener selected by configuration.
func New(ctx context.Context, cfg *config.Config) (Speaker, Listener, error) {
	var speaker Speaker
	switch cfg.Voice.Speaker {
	case "", "none":
		speaker = NullSpeaker{}
	case "command":
		s, err := NewCommandSpeaker(cfg.Voice.SpeakCommand)
		if err != nil {
			return nil, nil, err
		}
		speaker = s
	case "openai":
		if cfg.OpenAI.Token == "" {
			return nil, nil, fmt.Errorf("SPEAKER=openai requires OPENAI_TOKEN")
		}
		s, err := NewOpenAISpeaker(cfg.OpenAI.Token, cfg.Voice.OpenAIVoice, cfg.Voice.PlayerCommand)
		if err != nil {
			return nil, nil, err
		}
		speaker = s
	default:
		return nil, nil, fmt.Errorf("unknown speaker %q (want command, openai or none)", cfg.Voice.Speaker)
	}
	speaker = WithTimeout(speaker, cfg.Voice.SpeechTimeout)

	var transcriber Transcriber
	switch cfg.Voice.Transcriber {
	case "", "none":
		return speaker, NullListener{}, nil
	case "openai":
		if cfg.OpenAI.Token == "" {
			return nil, nil, fmt.Errorf("TRANSCRIBER=openai requires OPENAI_TOKEN")
		}
		transcriber = NewOpenAITranscriber(cfg.OpenAI.Token, cfg.Voice.TranscribeLang)
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, nil, fmt.Errorf("TRANSCRIBER=gemini requires GEMINI_API_KEY")
		}
		t, err := NewGeminiTranscriber(ctx, cfg.Gemini.APIKey, cfg.Voice.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		transcriber = t
	default:
		return nil, nil, fmt.Errorf("unknown transcriber %q (want openai, gemini or none)", cfg.Voice.Transcriber)
	}

	return speaker, NewRecorderListener(NewCommandRecorder(cfg.Voice.RecordCommand), transcriber), nil
}
