package database

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// corpusFile is the on-disk layout of the embedding corpus
type corpusFile struct {
	Version int
	SavedAt time.Time
	Records []EmbeddingRecord
}

// Corpus is the file-backed list of registered face embeddings.
// It is loaded wholesale and rewritten wholesale; recognition processes treat it as read-only.
// Writers hold an exclusive flock on <path>.lock, so registration and the dashboard
// running in separate processes do not lose each other's changes.
type Corpus struct {
	path string
	mu   sync.Mutex
}

// NewCorpus returns a corpus stored at path
func NewCorpus(path string) *Corpus {
	return &Corpus{path: path}
}

// Path returns the corpus file location
func (c *Corpus) Path() string {
	return c.path
}

// Load reads every record in stored order. A missing file is an empty corpus.
func (c *Corpus) Load() ([]EmbeddingRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

func (c *Corpus) load() ([]EmbeddingRecord, error) {
	data, err := os.ReadFile(c.path) //nolint:gosec // path is from trusted config
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}

	var f corpusFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode corpus: %w", err)
	}
	if f.Version > corpusVersion {
		return nil, fmt.Errorf("corpus version %d is newer than supported version %d", f.Version, corpusVersion)
	}
	return f.Records, nil
}

// lockWrite serializes writers within the process and across processes.
func (c *Corpus) lockWrite() (unlock func(), err error) {
	c.mu.Lock()
	defer func() {
		if err != nil {
			c.mu.Unlock()
		}
	}()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create corpus directory: %w", err)
	}
	f, err := os.OpenFile(c.path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus lock: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to lock corpus: %w", err)
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		c.mu.Unlock()
	}, nil
}

// Save replaces the corpus with records.
func (c *Corpus) Save(records []EmbeddingRecord) error {
	unlock, err := c.lockWrite()
	if err != nil {
		return err
	}
	defer unlock()
	return c.save(records)
}

// save writes to a temporary file and renames it over the old one,
// so a reader sees either the previous corpus or the new one.
func (c *Corpus) save(records []EmbeddingRecord) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create corpus directory: %w", err)
	}

	var buf bytes.Buffer
	f := corpusFile{Version: corpusVersion, SavedAt: time.Now(), Records: records}
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary corpus file: %w", err)
	}
	tempPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write corpus file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write corpus file: %w", err)
	}
	if err := os.Rename(tempPath, c.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace corpus file: %w", err)
	}
	return nil
}

// Append adds records after the existing ones and rewrites the file.
// Returns the new total.
func (c *Corpus) Append(records ...EmbeddingRecord) (int, error) {
	unlock, err := c.lockWrite()
	if err != nil {
		return 0, err
	}
	defer unlock()

	existing, err := c.load()
	if err != nil {
		return 0, err
	}
	all := append(existing, records...)
	if err := c.save(all); err != nil {
		return 0, err
	}
	return len(all), nil
}

// Remove drops every record of empID and returns how many were removed.
func (c *Corpus) Remove(empID string) (int, error) {
	return c.removeWhere(func(r EmbeddingRecord) bool { return r.EmpID == empID })
}

// RemoveSamples drops the records stored from the given sample files, leaving
// earlier samples of the same employee in place.
func (c *Corpus) RemoveSamples(samplePaths ...string) (int, error) {
	drop := make(map[string]bool, len(samplePaths))
	for _, p := range samplePaths {
		drop[p] = true
	}
	return c.removeWhere(func(r EmbeddingRecord) bool { return r.SamplePath != "" && drop[r.SamplePath] })
}

func (c *Corpus) removeWhere(match func(EmbeddingRecord) bool) (int, error) {
	unlock, err := c.lockWrite()
	if err != nil {
		return 0, err
	}
	defer unlock()

	existing, err := c.load()
	if err != nil {
		return 0, err
	}
	kept := existing[:0]
	for _, r := range existing {
		if !match(r) {
			kept = append(kept, r)
		}
	}
	removed := len(existing) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := c.save(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// CorpusSummary is the per-employee view of the corpus
type CorpusSummary struct {
	EmpID   string `json:"emp_id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Team    string `json:"team"`
	Samples int    `json:"samples"`
	// FirstIndex is the position of the employee's first record, which decides match priority
	FirstIndex int `json:"first_index"`
}

// Summarize groups records by employee in order of first appearance.
func Summarize(records []EmbeddingRecord) []CorpusSummary {
	var out []CorpusSummary
	pos := make(map[string]int)
	for i, r := range records {
		if j, ok := pos[r.EmpID]; ok {
			out[j].Samples++
			continue
		}
		pos[r.EmpID] = len(out)
		out = append(out, CorpusSummary{
			EmpID:      r.EmpID,
			Name:       r.Name,
			Role:       r.Role,
			Team:       r.Team,
			Samples:    1,
			FirstIndex: i,
		})
	}
	return out
}
