// Package camera provides the frames the recognition loop and registration work on.
// Capture itself is delegated to an external grabber; frames cross the boundary as JPEG bytes.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/imaging"
)

// DefaultCommand grabs a single MJPEG frame from a V4L2 device.
const DefaultCommand = "ffmpeg -loglevel error -f v4l2 -i {device} -frames:v 1 -f image2pipe -vcodec mjpeg -"

// ErrCameraUnavailable is returned when the numbered camera device does not exist.
var ErrCameraUnavailable = errors.New("camera unavailable")

// FrameSource yields JPEG frames. Next returns io.EOF when the source is exhausted.
type FrameSource interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// DeviceSource grabs frames from /dev/video<N> by running the grabber command once per frame.
type DeviceSource struct {
	device string
	args   []string
}

// OpenDevice opens camera number index. A missing device is ErrCameraUnavailable.
func OpenDevice(index int, command string) (*DeviceSource, error) {
	return openDevice("/dev/video"+strconv.Itoa(index), command)
}

func openDevice(device, command string) (*DeviceSource, error) {
	if _, err := os.Stat(device); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCameraUnavailable, device, err)
	}
	if command == "" {
		command = DefaultCommand
	}

	fields := strings.Fields(command)
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, "{device}", device)
	}
	return &DeviceSource{device: device, args: fields}, nil
}

// Device returns the device path.
func (s *DeviceSource) Device() string {
	return s.device
}

// Next grabs one frame.
func (s *DeviceSource) Next(ctx context.Context) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.args[0], s.args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("grabbing frame from %s: %w: %s", s.device, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("grabbing frame from %s: empty frame", s.device)
	}
	return imaging.ToJPEG(stdout.Bytes())
}

// Close is a no-op; the grabber process lives only for one frame.
func (s *DeviceSource) Close() error {
	return nil
}

// DirSource replays the image files of a directory in name order.
type DirSource struct {
	files []string
	next  int
}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true}

// OpenDir lists the images in dir.
func OpenDir(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frames directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return &DirSource{files: files}, nil
}

// Len returns the number of frames in the directory.
func (s *DirSource) Len() int {
	return len(s.files)
}

// Next returns the next image as JPEG.
func (s *DirSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.files) {
		return nil, io.EOF
	}
	path := s.files[s.next]
	s.next++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading frame %s: %w", path, err)
	}
	return imaging.ToJPEG(data)
}

func (s *DirSource) Close() error {
	return nil
}
