// Package recognition runs one camera: every frame is analyzed, each face is matched
// against the corpus, classified by time of day and written to the ledger, and the
// employee hears what was recorded.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/kozaktomas/face-attendance/internal/analyzer"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/voice"
)

// overlapIoU is the overlap above which two detections are treated as the same face
const overlapIoU = 0.6

// Overlay is what gets drawn over one detected face.
type Overlay struct {
	BBox     []float64 `json:"bbox"`
	Label    string    `json:"label"`
	Hint     string    `json:"hint,omitempty"`
	Matched  bool      `json:"matched"`
	EmpID    string    `json:"emp_id,omitempty"`
	Distance float64   `json:"distance,omitempty"`
}

// Display shows the overlays of a processed frame.
type Display interface {
	Show(overlays []Overlay)
}

// Triggers delivers operator key presses without blocking.
type Triggers interface {
	Poll() (camera.Key, bool)
}

// Options wires a Loop. Analyzer, Store and Matcher are required.
type Options struct {
	Direction     database.Direction
	Corpus        []database.EmbeddingRecord
	Matcher       *facematch.Matcher
	Classifier    *attendance.Classifier
	State         *attendance.RunState
	Analyzer      analyzer.Analyzer
	Store         database.AttendanceStore
	Speaker       voice.Speaker
	Listener      voice.Listener
	ListenTimeout time.Duration
	Metrics       *metrics.Recorder
	Display       Display
	Now           func() time.Time
}

// Loop is the single-threaded recognition loop of one camera.
type Loop struct {
	opts    Options
	pending camera.Key
	// removed holds corpus identities whose employee row was deleted while the loop ran
	removed map[string]bool
}

// New validates opts and fills in defaults.
func New(opts Options) (*Loop, error) {
	if opts.Direction != database.DirectionIn && opts.Direction != database.DirectionOut {
		return nil, fmt.Errorf("invalid direction %q", opts.Direction)
	}
	if opts.Analyzer == nil || opts.Store == nil || opts.Matcher == nil {
		return nil, errors.New("analyzer, store and matcher are required")
	}
	if opts.Classifier == nil {
		opts.Classifier = attendance.NewClassifier(nil)
	}
	if opts.State == nil {
		opts.State = attendance.NewRunState()
	}
	if opts.Speaker == nil {
		opts.Speaker = voice.NullSpeaker{}
	}
	if opts.Listener == nil {
		opts.Listener = voice.NullListener{}
	}
	if opts.ListenTimeout <= 0 {
		opts.ListenTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Loop{opts: opts, removed: make(map[string]bool)}, nil
}

// Direction returns which camera the loop serves.
func (l *Loop) Direction() database.Direction {
	return l.opts.Direction
}

// Press queues a key for the next processed frame. Only the latest key counts.
func (l *Loop) Press(key camera.Key) {
	l.pending = key
}

// Run processes frames from source until it is exhausted, the quit key is pressed
// or ctx is cancelled. Any other source error ends the loop with that error.
func (l *Loop) Run(ctx context.Context, source camera.FrameSource, triggers Triggers) error {
	dir := string(l.opts.Direction)
	log.Printf("Recognition (%s) started with %d corpus records", dir, len(l.opts.Corpus))

	for {
		if ctx.Err() != nil {
			return nil
		}
		if triggers != nil {
			if key, ok := triggers.Poll(); ok {
				if key == camera.KeyQuit {
					log.Printf("Recognition (%s) stopped by operator", dir)
					return nil
				}
				l.Press(key)
			}
		}

		frame, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			log.Printf("Recognition (%s): frame source exhausted", dir)
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}

		overlays, err := l.ProcessFrame(ctx, frame)
		if err != nil {
			return err
		}
		if l.opts.Display != nil {
			l.opts.Display.Show(overlays)
		}
	}
}

type matchedFace struct {
	overlay int
	bbox    []float64
	record  *database.EmbeddingRecord
}

// ProcessFrame analyzes one frame and applies attendance rules to every matched face.
// A failing analysis is logged and yields no overlays; ledger failures are returned.
func (l *Loop) ProcessFrame(ctx context.Context, frame []byte) ([]Overlay, error) {
	start := time.Now()
	dir := string(l.opts.Direction)
	key := l.pending
	l.pending = 0

	detections, err := l.opts.Analyzer.Detect(ctx, frame)
	if err != nil {
		log.Printf("Recognition (%s): face analysis failed, frame skipped: %v", dir, err)
		l.opts.Metrics.AnalyzerError(dir)
		return nil, nil
	}
	detections = dedupe(detections)

	now := l.opts.Now()
	overlays := make([]Overlay, 0, len(detections))
	var matched []matchedFace

	for _, det := range detections {
		m, ok := l.opts.Matcher.FirstMatch(l.opts.Corpus, det.Embedding)
		if !ok || l.removed[m.Record.EmpID] {
			overlays = append(overlays, Overlay{BBox: det.BBox, Label: constants.UnknownLabel})
			continue
		}
		l.opts.Metrics.FaceMatched(dir)

		ov := Overlay{BBox: det.BBox, Matched: true, EmpID: m.Record.EmpID, Distance: m.Distance}
		if l.opts.Direction == database.DirectionIn {
			ov.Label = m.Record.Name
			err = l.handleEntry(ctx, m.Record, now)
		} else {
			ov.Label = attendance.ExitLabel(m.Record.Name)
			err = l.handleExit(ctx, m.Record, now)
		}
		if errors.Is(err, database.ErrUnknownEmployee) {
			log.Printf("Recognition (%s): %s is in the corpus but no longer registered, face ignored", dir, m.Record.EmpID)
			l.removed[m.Record.EmpID] = true
			overlays = append(overlays, Overlay{BBox: det.BBox, Label: constants.UnknownLabel})
			continue
		}
		if err != nil {
			return nil, err
		}
		ov.Hint = l.hint(m.Record.EmpID, now)

		overlays = append(overlays, ov)
		matched = append(matched, matchedFace{overlay: len(overlays) - 1, bbox: det.BBox, record: m.Record})
	}

	if key != 0 && len(matched) > 0 {
		if err := l.handleKey(ctx, key, matched, overlays, now); err != nil {
			return nil, err
		}
	}

	l.opts.Metrics.FrameProcessed(dir, len(detections), time.Since(start))
	return overlays, nil
}

func dedupe(detections []analyzer.Detection) []analyzer.Detection {
	if len(detections) < 2 {
		return detections
	}
	boxes := make([][]float64, len(detections))
	scores := make([]float64, len(detections))
	for i, d := range detections {
		boxes[i] = d.BBox
		scores[i] = d.DetScore
	}
	kept := facematch.SuppressOverlaps(boxes, scores, overlapIoU)
	out := make([]analyzer.Detection, 0, len(kept))
	for _, i := range kept {
		out = append(out, detections[i])
	}
	return out
}

// hint is the key the operator may press for this employee right now.
func (l *Loop) hint(empID string, now time.Time) string {
	if l.opts.State.PermissionLogged(empID, now) {
		return ""
	}
	if l.opts.Direction == database.DirectionIn {
		if l.opts.Classifier.IsBreakTime(now) {
			return attendance.BreakHint
		}
		return ""
	}
	return attendance.PermissionHint
}

// handleKey applies a trigger key to the matched face closest to the camera.
func (l *Loop) handleKey(ctx context.Context, key camera.Key, matched []matchedFace, overlays []Overlay, now time.Time) error {
	boxes := make([][]float64, len(matched))
	for i, m := range matched {
		boxes[i] = m.bbox
	}
	target := matched[0]
	if i := facematch.LargestBox(boxes); i >= 0 {
		target = matched[i]
	}
	rec := target.record

	switch {
	case key == camera.KeyBreak && l.opts.Direction == database.DirectionIn:
		if !l.opts.Classifier.IsBreakTime(now) || l.opts.State.PermissionLogged(rec.EmpID, now) {
			return nil
		}
		if err := l.recordBreak(ctx, rec, now); err != nil {
			return err
		}
	case key == camera.KeyPermission && l.opts.Direction == database.DirectionOut:
		if l.opts.State.PermissionLogged(rec.EmpID, now) {
			return nil
		}
		err := l.capturePermission(ctx, rec, now)
		if errors.Is(err, database.ErrUnknownEmployee) {
			log.Printf("Recognition (%s): %s is no longer registered, permission dropped", l.opts.Direction, rec.EmpID)
			l.removed[rec.EmpID] = true
			return nil
		}
		if err != nil {
			return err
		}
	default:
		return nil
	}
	overlays[target.overlay].Hint = ""
	return nil
}

func (l *Loop) say(ctx context.Context, text string) {
	if err := l.opts.Speaker.Say(ctx, text); err != nil {
		log.Printf("Recognition (%s): speech failed: %v", l.opts.Direction, err)
		l.opts.Metrics.SpeechFailure()
	}
}
