// Package registration enrolls an employee: it collects face samples from a frame
// source, stores them in the embedding corpus and writes the employee row.
package registration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/analyzer"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/imaging"
)

// ErrNoSamples is returned when no sample was accepted; nothing is persisted.
var ErrNoSamples = errors.New("no face samples accepted")

// duplicateBits is the dHash distance under which two frames count as the same picture
const duplicateBits = 4

// EmployeeInfo identifies the person being registered.
type EmployeeInfo struct {
	EmpID string
	Name  string
	Role  string
	Team  string
	Email string
	Phone string
}

func (i EmployeeInfo) validate() error {
	if strings.TrimSpace(i.EmpID) == "" {
		return errors.New("employee ID is required")
	}
	if strings.ContainsAny(i.EmpID, `/\`) || i.EmpID == "." || i.EmpID == ".." {
		return fmt.Errorf("employee ID %q cannot be used as a directory name", i.EmpID)
	}
	if strings.TrimSpace(i.Name) == "" {
		return errors.New("employee name is required")
	}
	return nil
}

// Registrar holds what a registration needs.
type Registrar struct {
	Analyzer  analyzer.Analyzer
	Corpus    *database.Corpus
	Employees database.EmployeeWriter
	ImagesDir string
	// Samples is how many accepted samples end the registration; 0 means three.
	Samples int
	// SkipDuplicates drops frames that look the same as an already accepted one.
	SkipDuplicates bool
	// Progress, when set, is called after every accepted sample.
	Progress func(accepted, wanted int)
	Now      func() time.Time
}

// Result describes a finished registration.
type Result struct {
	Employee   *database.Employee
	Records    []database.EmbeddingRecord
	Skipped    int
	CorpusSize int
}

type acceptedSample struct {
	frame     []byte
	detection analyzer.Detection
}

// Register collects samples from source until enough were accepted, the source is
// exhausted or the confirmer quits. The first face of each frame is the sample.
func (r *Registrar) Register(ctx context.Context, info EmployeeInfo, source camera.FrameSource, confirmer Confirmer) (*Result, error) {
	if err := info.validate(); err != nil {
		return nil, err
	}
	wanted := r.Samples
	if wanted <= 0 {
		wanted = constants.RegistrationSamples
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	var accepted []acceptedSample
	var hashes []uint64
	skipped := 0

	for frameNo := 1; len(accepted) < wanted; frameNo++ {
		frame, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading frame: %w", err)
		}

		detections, err := r.Analyzer.Detect(ctx, frame)
		if err != nil {
			return nil, fmt.Errorf("analyzing frame %d: %w", frameNo, err)
		}
		if len(detections) == 0 {
			log.Printf("Frame %d: no face detected", frameNo)
			skipped++
			continue
		}

		var hash uint64
		if r.SkipDuplicates {
			hash, err = imaging.DHash(frame)
			if err != nil {
				return nil, fmt.Errorf("fingerprinting frame %d: %w", frameNo, err)
			}
			if isDuplicate(hashes, hash) {
				log.Printf("Frame %d: same picture as an accepted sample, skipped", frameNo)
				skipped++
				continue
			}
		}

		decision, err := confirmer.Confirm(ctx, Sample{
			Number:    len(accepted) + 1,
			Wanted:    wanted,
			Faces:     len(detections),
			Detection: detections[0],
		})
		if err != nil {
			return nil, fmt.Errorf("confirming sample: %w", err)
		}
		if decision == Quit {
			break
		}
		if decision == Skip {
			skipped++
			continue
		}

		accepted = append(accepted, acceptedSample{frame: frame, detection: detections[0]})
		hashes = append(hashes, hash)
		if r.Progress != nil {
			r.Progress(len(accepted), wanted)
		}
	}

	if len(accepted) == 0 {
		return nil, ErrNoSamples
	}
	return r.persist(ctx, info, accepted, skipped, now())
}

func isDuplicate(hashes []uint64, hash uint64) bool {
	for _, h := range hashes {
		if imaging.NearDuplicate(h, hash, duplicateBits) {
			return true
		}
	}
	return false
}

func (r *Registrar) persist(ctx context.Context, info EmployeeInfo, samples []acceptedSample, skipped int, now time.Time) (*Result, error) {
	thumbnail, err := imaging.Thumbnail(samples[0].frame, samples[0].detection.BBox, constants.ProfileThumbnailSize)
	if err != nil {
		return nil, fmt.Errorf("creating profile thumbnail: %w", err)
	}

	dir := filepath.Join(r.ImagesDir, info.EmpID)
	newDirs := missingDirs(dir, r.ImagesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}

	var written []string
	cleanup := func() {
		for _, p := range written {
			_ = os.Remove(p)
		}
		for _, d := range newDirs {
			_ = os.Remove(d)
		}
	}

	records := make([]database.EmbeddingRecord, 0, len(samples))
	for i, s := range samples {
		path := filepath.Join(dir, uuid.NewString()+".jpg")
		if err := os.WriteFile(path, s.frame, 0o644); err != nil {
			cleanup()
			return nil, fmt.Errorf("saving sample image: %w", err)
		}
		written = append(written, path)

		rec := database.EmbeddingRecord{
			EmpID:      info.EmpID,
			Name:       info.Name,
			Role:       info.Role,
			Team:       info.Team,
			Embedding:  s.detection.Embedding,
			SamplePath: path,
			CreatedAt:  now,
		}
		if i == 0 {
			rec.ProfileImage = thumbnail
		}
		records = append(records, rec)
	}

	total, err := r.Corpus.Append(records...)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("saving embeddings: %w", err)
	}

	employee := &database.Employee{
		EmpID:            info.EmpID,
		Name:             info.Name,
		Role:             info.Role,
		Team:             info.Team,
		Email:            info.Email,
		Phone:            info.Phone,
		ProfileImage:     thumbnail,
		RegistrationDate: now,
	}
	if err := r.Employees.UpsertEmployee(ctx, employee); err != nil {
		if _, rbErr := r.Corpus.RemoveSamples(written...); rbErr != nil {
			log.Printf("Registration of %s: removing new samples from the corpus failed: %v", info.EmpID, rbErr)
		}
		cleanup()
		return nil, fmt.Errorf("saving employee: %w", err)
	}

	return &Result{Employee: employee, Records: records, Skipped: skipped, CorpusSize: total}, nil
}

// missingDirs lists dir and its parents up to and including root that do not exist
// yet, deepest first, so a failed registration can remove what it created.
func missingDirs(dir, root string) []string {
	var out []string
	for {
		if _, err := os.Stat(dir); err == nil {
			return out
		}
		out = append(out, dir)
		if dir == root || filepath.Dir(dir) == dir {
			return out
		}
		dir = filepath.Dir(dir)
	}
}
