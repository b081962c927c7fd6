package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func testRecord(empID string, emb ...float32) EmbeddingRecord {
	return EmbeddingRecord{EmpID: empID, Name: "Name " + empID, Role: "dev", Team: "core", Embedding: emb}
}

func TestCorpus_LoadMissingFile(t *testing.T) {
	c := NewCorpus(filepath.Join(t.TempDir(), "embeddings.gob"))

	records, err := c.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty corpus, got %d records", len(records))
	}
}

func TestCorpus_AppendKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "embeddings.gob")
	c := NewCorpus(path)

	if n, err := c.Append(testRecord("E1", 1, 0), testRecord("E2", 0, 1)); err != nil || n != 2 {
		t.Fatalf("Append() = %d, %v", n, err)
	}
	if n, err := c.Append(testRecord("E1", 0.9, 0.1)); err != nil || n != 3 {
		t.Fatalf("second Append() = %d, %v", n, err)
	}

	records, err := NewCorpus(path).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := []string{"E1", "E2", "E1"}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, id := range want {
		if records[i].EmpID != id {
			t.Errorf("record %d: expected %s, got %s", i, id, records[i].EmpID)
		}
	}
	if records[2].Embedding[0] != 0.9 {
		t.Errorf("embedding not preserved: %v", records[2].Embedding)
	}

	if leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp")); len(leftovers) != 0 {
		t.Errorf("temporary files should not remain after save: %v", leftovers)
	}
}

func TestCorpus_Remove(t *testing.T) {
	c := NewCorpus(filepath.Join(t.TempDir(), "embeddings.gob"))
	if _, err := c.Append(testRecord("E1", 1), testRecord("E2", 1), testRecord("E1", 1)); err != nil {
		t.Fatal(err)
	}

	removed, err := c.Remove("E1")
	if err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	records, _ := c.Load()
	if len(records) != 1 || records[0].EmpID != "E2" {
		t.Errorf("unexpected remaining records: %+v", records)
	}

	removed, err = c.Remove("missing")
	if err != nil || removed != 0 {
		t.Errorf("Remove(missing) = %d, %v", removed, err)
	}
}

func TestCorpus_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.gob")
	if err := os.WriteFile(path, []byte("not a gob"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCorpus(path).Load(); err == nil {
		t.Error("expected decode error")
	}
}

func TestSummarize(t *testing.T) {
	records := []EmbeddingRecord{testRecord("B", 1), testRecord("A", 1), testRecord("B", 1)}

	summary := Summarize(records)

	if len(summary) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(summary))
	}
	if summary[0].EmpID != "B" || summary[0].Samples != 2 || summary[0].FirstIndex != 0 {
		t.Errorf("unexpected first summary: %+v", summary[0])
	}
	if summary[1].EmpID != "A" || summary[1].Samples != 1 || summary[1].FirstIndex != 1 {
		t.Errorf("unexpected second summary: %+v", summary[1])
	}
}

func TestCorpus_RemoveSamples(t *testing.T) {
	c := NewCorpus(filepath.Join(t.TempDir(), "embeddings.gob"))
	old := testRecord("E1", 1)
	old.SamplePath = "images/E1/old.jpg"
	fresh := testRecord("E1", 0.9)
	fresh.SamplePath = "images/E1/new.jpg"
	if _, err := c.Append(old, testRecord("E2", 1), fresh); err != nil {
		t.Fatal(err)
	}

	removed, err := c.RemoveSamples("images/E1/new.jpg", "images/E1/missing.jpg")
	if err != nil {
		t.Fatalf("RemoveSamples() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed %d records, want 1", removed)
	}
	records, _ := c.Load()
	if len(records) != 2 || records[0].SamplePath != old.SamplePath || records[1].EmpID != "E2" {
		t.Errorf("remaining records = %+v", records)
	}
}

func TestCorpus_ConcurrentWritersKeepEveryRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.gob")
	// Separate instances share no mutex, like the dashboard and a register command.
	writers := []*Corpus{NewCorpus(path), NewCorpus(path)}

	const perWriter = 15
	var wg sync.WaitGroup
	errs := make(chan error, len(writers)*perWriter)
	for w, c := range writers {
		for i := range perWriter {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := c.Append(testRecord(fmt.Sprintf("W%d-%d", w, i), 1)); err != nil {
					errs <- err
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Append() error: %v", err)
	}

	records, err := NewCorpus(path).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(records) != len(writers)*perWriter {
		t.Errorf("corpus has %d records, want %d", len(records), len(writers)*perWriter)
	}
}
