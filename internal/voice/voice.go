// Package voice speaks feedback to employees and captures spoken permission reasons.
// Both directions are synchronous and bounded by a timeout; the recognition loop
// waits for them.
package voice

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Speaker turns text into audible speech and returns once it has been spoken.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// Listener records one utterance and returns its transcription, or
// constants.NotUnderstood when nothing usable was heard.
type Listener interface {
	Listen(ctx context.Context, timeout time.Duration) string
}

// Recorder captures raw audio (WAV) for the given duration.
type Recorder interface {
	Record(ctx context.Context, d time.Duration) ([]byte, error)
}

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// transcribeTimeout bounds the remote transcription after recording has finished
const transcribeTimeout = 30 * time.Second

// recordSlack is added to the listen timeout so the recorder can flush its output
const recordSlack = 2 * time.Second

// splitCommand splits a command line on whitespace and substitutes placeholders.
func splitCommand(command string, replacements map[string]string) ([]string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	for i, f := range fields {
		for placeholder, value := range replacements {
			f = strings.ReplaceAll(f, placeholder, value)
		}
		fields[i] = f
	}
	return fields, nil
}

func runCommand(ctx context.Context, args []string, stdin []byte) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", args[0], ctx.Err())
		}
		return nil, fmt.Errorf("%s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// CommandSpeaker speaks through a local TTS program, e.g. espeak-ng.
// The text is passed as the last argument.
type CommandSpeaker struct {
	args []string
}

func NewCommandSpeaker(command string) (*CommandSpeaker, error) {
	args, err := splitCommand(command, nil)
	if err != nil {
		return nil, fmt.Errorf("speak command: %w", err)
	}
	return &CommandSpeaker{args: args}, nil
}

func (s *CommandSpeaker) Say(ctx context.Context, text string) error {
	args := append(append([]string{}, s.args...), text)
	_, err := runCommand(ctx, args, nil)
	return err
}

// NullSpeaker only logs what would have been said.
type NullSpeaker struct{}

func (NullSpeaker) Say(_ context.Context, text string) error {
	log.Printf("say: %s", text)
	return nil
}

// timedSpeaker bounds every Say call.
type timedSpeaker struct {
	Speaker
	timeout time.Duration
}

// WithTimeout wraps s so every Say call is cancelled after d.
func WithTimeout(s Speaker, d time.Duration) Speaker {
	if d <= 0 {
		return s
	}
	return &timedSpeaker{Speaker: s, timeout: d}
}

func (s *timedSpeaker) Say(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Speaker.Say(ctx, text)
}

// CommandRecorder records audio with a local program that writes WAV to stdout,
// e.g. arecord. {seconds} in the command is replaced with the duration.
type CommandRecorder struct {
	command string
}

func NewCommandRecorder(command string) *CommandRecorder {
	return &CommandRecorder{command: command}
}

func (r *CommandRecorder) Record(ctx context.Context, d time.Duration) ([]byte, error) {
	seconds := max(1, int(d.Round(time.Second)/time.Second))
	args, err := splitCommand(r.command, map[string]string{"{seconds}": strconv.Itoa(seconds)})
	if err != nil {
		return nil, fmt.Errorf("record command: %w", err)
	}
	return runCommand(ctx, args, nil)
}

// RecorderListener records with a Recorder and transcribes with a Transcriber.
// Every failure degrades to constants.NotUnderstood.
type RecorderListener struct {
	recorder    Recorder
	transcriber Transcriber
}

func NewRecorderListener(r Recorder, t Transcriber) *RecorderListener {
	return &RecorderListener{recorder: r, transcriber: t}
}

func (l *RecorderListener) Listen(ctx context.Context, timeout time.Duration) string {
	recordCtx, cancel := context.WithTimeout(ctx, timeout+recordSlack)
	audio, err := l.recorder.Record(recordCtx, timeout)
	cancel()
	if err != nil {
		log.Printf("voice: recording failed: %v", err)
		return constants.NotUnderstood
	}
	if len(audio) == 0 {
		return constants.NotUnderstood
	}

	transcribeCtx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()
	text, err := l.transcriber.Transcribe(transcribeCtx, audio)
	if err != nil {
		log.Printf("voice: transcription failed: %v", err)
		return constants.NotUnderstood
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return constants.NotUnderstood
	}
	return text
}

// NullListener never hears anything.
type NullListener struct{}

func (NullListener) Listen(context.Context, time.Duration) string {
	return constants.NotUnderstood
}
