package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/analyzer"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/sqlite"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/voice"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Run the recognition loop of one camera",
	Long: `Run the recognition loop of the entry or exit camera.

Every frame is sent to the embedding server, each face is matched against the
corpus and the sighting is classified by the time of day and written to the
ledger. The employee hears what was recorded.

Keys (type the letter and press Enter):
  r   log a break for the largest face (entry camera)
  p   record a permission for the largest face (exit camera)
  q   quit

Examples:
  # Entry camera on /dev/video0
  face-attendance recognize --direction in --camera 0

  # Replay saved frames against the exit rules
  face-attendance recognize --direction out --frames-dir ./frames`,
	Args: cobra.NoArgs,
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().String("direction", "in", "Camera direction: in (entry) or out (exit)")
	recognizeCmd.Flags().Int("camera", -1, "Camera device number (defaults to CAMERA_IN or CAMERA_OUT)")
	recognizeCmd.Flags().String("frames-dir", "", "Read frames from image files in this directory instead of a camera")
	recognizeCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9101")
	recognizeCmd.Flags().Bool("no-keys", false, "Do not read operator keys from stdin")
}

// terminalDisplay prints the labels of a frame whenever they change.
type terminalDisplay struct {
	direction database.Direction
	last      string
}

func (d *terminalDisplay) Show(overlays []recognition.Overlay) {
	labels := make([]string, 0, len(overlays))
	for _, o := range overlays {
		label := o.Label
		if o.Hint != "" {
			label += " (" + o.Hint + ")"
		}
		labels = append(labels, label)
	}
	line := strings.Join(labels, ", ")
	if line == d.last {
		return
	}
	d.last = line
	if line != "" {
		fmt.Printf("[%s %s] %s\n", time.Now().Format("15:04:05"), d.direction, line)
	}
}

func openFrameSource(cfg *config.Config, framesDir string, index int) (camera.FrameSource, error) {
	if framesDir != "" {
		src, err := camera.OpenDir(framesDir)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Replaying %d frames from %s\n", src.Len(), framesDir)
		return src, nil
	}
	src, err := camera.OpenDevice(index, cfg.Camera.Command)
	if err != nil {
		return nil, fmt.Errorf("opening camera %d: %w", index, err)
	}
	fmt.Printf("Using camera %s\n", src.Device())
	return src, nil
}

func serveMetrics(addr string, rec *metrics.Recorder) *http.Server {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", rec.Handler())
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics server failed: %v", err)
		}
	}()
	return srv
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	direction := database.Direction(mustGetString(cmd, "direction"))
	var index int
	switch direction {
	case database.DirectionIn:
		index = cameraIndex(cmd, cfg.Camera.InIndex)
	case database.DirectionOut:
		index = cameraIndex(cmd, cfg.Camera.OutIndex)
	default:
		return fmt.Errorf("--direction must be in or out, got %q", direction)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := openFrameSource(cfg, mustGetString(cmd, "frames-dir"), index)
	if err != nil {
		return err
	}
	defer source.Close()

	schedule, err := attendance.NewSchedule(cfg.Schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	matcher, err := facematch.NewMatcher(cfg.Matching.Metric, cfg.Matching.Threshold)
	if err != nil {
		return err
	}

	corpus := database.NewCorpus(cfg.Corpus.Path)
	records, err := corpus.Load()
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}
	if len(records) == 0 {
		fmt.Printf("Warning: corpus %s is empty, every face will be Unknown\n", corpus.Path())
	}

	pool, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	speaker, listener, err := voice.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setting up voice: %w", err)
	}

	client := analyzer.NewClient(cfg.Embedding.URL)
	if err := client.Health(ctx); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}

	rec := metrics.NewRecorder()
	if addr := mustGetString(cmd, "metrics-addr"); addr != "" {
		srv := serveMetrics(addr, rec)
		defer srv.Close()
		fmt.Printf("Metrics on http://%s/metrics\n", addr)
	}

	loop, err := recognition.New(recognition.Options{
		Direction:     direction,
		Corpus:        records,
		Matcher:       matcher,
		Classifier:    attendance.NewClassifier(schedule),
		State:         attendance.NewRunState(),
		Analyzer:      client,
		Store:         sqlite.NewAttendanceRepository(pool),
		Speaker:       speaker,
		Listener:      listener,
		ListenTimeout: cfg.Voice.ListenTimeout,
		Metrics:       rec,
		Display:       &terminalDisplay{direction: direction},
	})
	if err != nil {
		return err
	}

	var triggers recognition.Triggers
	if !mustGetBool(cmd, "no-keys") {
		triggers = camera.NewKeyTrigger(os.Stdin)
	}

	fmt.Printf("Recognizing (%s) with %d corpus records, press Ctrl+C to stop\n", direction, len(records))
	return loop.Run(ctx, source, triggers)
}
