package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"
	"unicode"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Run the entry and exit recognition processes side by side",
	Long: `Start one "recognize" process per camera and wait for both.

Keys typed here are routed to the camera they belong to: r goes to the entry
camera, p to the exit camera and q stops both. A camera that cannot be opened
ends its own process only.`,
	Args: cobra.NoArgs,
	RunE: runCameras,
}

func init() {
	rootCmd.AddCommand(camerasCmd)

	camerasCmd.Flags().Int("in", -1, "Entry camera device number (defaults to CAMERA_IN)")
	camerasCmd.Flags().Int("out", -1, "Exit camera device number (defaults to CAMERA_OUT)")
}

type child struct {
	name  string
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func startChild(ctx context.Context, exe, direction string, index int) (*child, error) {
	c := exec.CommandContext(ctx, exe, "recognize", "--direction", direction, "--camera", strconv.Itoa(index))
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Cancel = func() error { return c.Process.Signal(os.Interrupt) }
	c.WaitDelay = 10 * time.Second

	stdin, err := c.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("starting %s camera: %w", direction, err)
	}
	fmt.Printf("Started %s camera %d (pid %d)\n", direction, index, c.Process.Pid)
	return &child{name: direction, cmd: c, stdin: stdin}, nil
}

func (c *child) send(key camera.Key) {
	// the child may already be gone; its exit is reported by wait
	_, _ = fmt.Fprintf(c.stdin, "%c\n", key)
}

// forwardKeys routes operator keys from r to the process that handles them.
func forwardKeys(r io.Reader, in, out *child) {
	br := bufio.NewReader(r)
	for {
		ch, _, err := br.ReadRune()
		if err != nil {
			return
		}
		switch k := camera.Key(unicode.ToLower(ch)); k {
		case camera.KeyBreak:
			in.send(k)
		case camera.KeyPermission:
			out.send(k)
		case camera.KeyQuit:
			in.send(k)
			out.send(k)
			return
		}
	}
}

func runCameras(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	inIndex, outIndex := mustGetInt(cmd, "in"), mustGetInt(cmd, "out")
	if inIndex < 0 {
		inIndex = cfg.Camera.InIndex
	}
	if outIndex < 0 {
		outIndex = cfg.Camera.OutIndex
	}
	if inIndex == outIndex {
		return fmt.Errorf("entry and exit camera are both device %d", inIndex)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := startChild(ctx, exe, "in", inIndex)
	if err != nil {
		return err
	}
	out, err := startChild(ctx, exe, "out", outIndex)
	if err != nil {
		stop()
		in.cmd.Wait()
		return err
	}

	go forwardKeys(os.Stdin, in, out)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, c := range []*child{in, out} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.cmd.Wait(); err != nil && ctx.Err() == nil {
				errs[i] = fmt.Errorf("%s camera: %w", c.name, err)
				fmt.Printf("The %s camera stopped: %v\n", c.name, err)
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}
