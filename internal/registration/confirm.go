package registration

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/analyzer"
)

// Decision is the operator's answer for one sample.
type Decision int

const (
	Accept Decision = iota
	Skip
	Quit
)

// Sample is what the confirmer is shown.
type Sample struct {
	Number    int // 1-based number the sample would get if accepted
	Wanted    int
	Faces     int // faces in the frame; only the first is used
	Detection analyzer.Detection
}

// Confirmer decides whether a sample is kept.
type Confirmer interface {
	Confirm(ctx context.Context, s Sample) (Decision, error)
}

// AutoConfirmer accepts every sample. Used for directory imports.
type AutoConfirmer struct{}

func (AutoConfirmer) Confirm(context.Context, Sample) (Decision, error) {
	return Accept, nil
}

// PromptConfirmer asks on a terminal: y keeps, n skips, q stops.
type PromptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: bufio.NewReader(in), out: out}
}

func (c *PromptConfirmer) Confirm(ctx context.Context, s Sample) (Decision, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Quit, err
		}

		note := ""
		if s.Faces > 1 {
			note = fmt.Sprintf(" (%d faces, using the first)", s.Faces)
		}
		fmt.Fprintf(c.out, "Sample %d/%d: face detected, score %.2f%s. Keep? [y/n/q]: ",
			s.Number, s.Wanted, s.Detection.DetScore, note)

		line, err := c.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return Quit, nil
			}
			return Quit, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes", "":
			return Accept, nil
		case "n", "no":
			return Skip, nil
		case "q", "quit":
			return Quit, nil
		}
		fmt.Fprintln(c.out, "Please answer y, n or q.")
	}
}
