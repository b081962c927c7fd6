package voice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go/option"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

type fakeRecorder struct {
	audio []byte
	err   error
	got   time.Duration
}

func (r *fakeRecorder) Record(_ context.Context, d time.Duration) ([]byte, error) {
	r.got = d
	return r.audio, r.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (t *fakeTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return t.text, t.err
}

func TestRecorderListener(t *testing.T) {
	tests := []struct {
		name        string
		recorder    *fakeRecorder
		transcriber *fakeTranscriber
		want        string
	}{
		{
			name:        "transcribed",
			recorder:    &fakeRecorder{audio: []byte("RIFF")},
			transcriber: &fakeTranscriber{text: "  doctor appointment \n"},
			want:        "doctor appointment",
		},
		{
			name:        "recorder fails",
			recorder:    &fakeRecorder{err: errors.New("no microphone")},
			transcriber: &fakeTranscriber{text: "unused"},
			want:        constants.NotUnderstood,
		},
		{
			name:        "silence",
			recorder:    &fakeRecorder{},
			transcriber: &fakeTranscriber{text: "unused"},
			want:        constants.NotUnderstood,
		},
		{
			name:        "transcriber fails",
			recorder:    &fakeRecorder{audio: []byte("RIFF")},
			transcriber: &fakeTranscriber{err: errors.New("quota exceeded")},
			want:        constants.NotUnderstood,
		},
		{
			name:        "empty transcription",
			recorder:    &fakeRecorder{audio: []byte("RIFF")},
			transcriber: &fakeTranscriber{text: "   "},
			want:        constants.NotUnderstood,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewRecorderListener(tt.recorder, tt.transcriber)
			if got := l.Listen(context.Background(), 5*time.Second); got != tt.want {
				t.Errorf("Listen() = %q, want %q", got, tt.want)
			}
			if tt.recorder.got != 5*time.Second {
				t.Errorf("recorder asked for %v, want 5s", tt.recorder.got)
			}
		})
	}
}

func TestNullListener(t *testing.T) {
	if got := (NullListener{}).Listen(context.Background(), time.Second); got != constants.NotUnderstood {
		t.Errorf("NullListener.Listen() = %q", got)
	}
}

func TestCommandSpeaker(t *testing.T) {
	ok, err := NewCommandSpeaker("true")
	if err != nil {
		t.Fatal(err)
	}
	if err := ok.Say(context.Background(), "hello"); err != nil {
		t.Errorf("Say() with succeeding command: %v", err)
	}

	failing, _ := NewCommandSpeaker("false")
	if err := failing.Say(context.Background(), "hello"); err == nil {
		t.Error("Say() with failing command should return an error")
	}

	if _, err := NewCommandSpeaker("   "); err == nil {
		t.Error("empty command should be rejected")
	}
}

func TestWithTimeout(t *testing.T) {
	// the spoken text becomes sleep's operand
	slow, _ := NewCommandSpeaker("sleep")
	speaker := WithTimeout(slow, 50*time.Millisecond)

	start := time.Now()
	err := speaker.Say(context.Background(), "5")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("Say() took %v, timeout not applied", time.Since(start))
	}

	if WithTimeout(NullSpeaker{}, 0) != (NullSpeaker{}) {
		t.Error("zero timeout should return the speaker unchanged")
	}
}

func TestCommandRecorder(t *testing.T) {
	r := NewCommandRecorder("echo -n {seconds}")
	out, err := r.Record(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("Record(): %v", err)
	}
	if string(out) != "5" {
		t.Errorf("Record() = %q, want the substituted duration", out)
	}

	out, _ = r.Record(context.Background(), 100*time.Millisecond)
	if string(out) != "1" {
		t.Errorf("sub-second durations should round up to 1, got %q", out)
	}
}

func TestOpenAITranscriber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "leaving for the bank"}`))
	}))
	defer server.Close()

	tr := NewOpenAITranscriber("test-key", "en", option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	text, err := tr.Transcribe(context.Background(), []byte("RIFF...."))
	if err != nil {
		t.Fatalf("Transcribe(): %v", err)
	}
	if text != "leaving for the bank" {
		t.Errorf("Transcribe() = %q", text)
	}
}

func TestNew(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{Voice: config.VoiceConfig{
			Speaker:       "none",
			Transcriber:   "none",
			SpeakCommand:  "espeak-ng",
			RecordCommand: "arecord -d {seconds} -",
			SpeechTimeout: time.Second,
		}}
	}

	speaker, listener, err := New(context.Background(), base())
	if err != nil {
		t.Fatalf("New(): %v", err)
	}
	if _, ok := listener.(NullListener); !ok {
		t.Errorf("listener = %T, want NullListener", listener)
	}
	if speaker == nil {
		t.Error("speaker should not be nil")
	}

	cfg := base()
	cfg.Voice.Transcriber = "openai"
	if _, _, err := New(context.Background(), cfg); err == nil {
		t.Error("openai transcriber without a token should fail")
	}

	cfg = base()
	cfg.Voice.Speaker = "parrot"
	if _, _, err := New(context.Background(), cfg); err == nil {
		t.Error("unknown speaker should fail")
	}

	cfg = base()
	cfg.Voice.Transcriber = "openai"
	cfg.OpenAI.Token = "sk-test"
	_, listener, err = New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New(): %v", err)
	}
	if _, ok := listener.(*RecorderListener); !ok {
		t.Errorf("listener = %T, want *RecorderListener", listener)
	}
}
