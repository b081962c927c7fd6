package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSchedule_Embedded(t *testing.T) {
	sc, err := LoadSchedule("")
	if err != nil {
		t.Fatalf("LoadSchedule() error: %v", err)
	}

	if sc.Entry.OnTimeUntil != "09:10:00" {
		t.Errorf("expected on_time_until 09:10:00, got %q", sc.Entry.OnTimeUntil)
	}
	if sc.Entry.DelayBaseHour != 9 {
		t.Errorf("expected delay_base_hour 9, got %d", sc.Entry.DelayBaseHour)
	}
	if len(sc.BreakWindows) != 2 {
		t.Fatalf("expected 2 break windows, got %d", len(sc.BreakWindows))
	}
	if sc.BreakWindows[0].Start != "10:30" || sc.BreakWindows[0].End != "10:59" {
		t.Errorf("unexpected morning break window: %+v", sc.BreakWindows[0])
	}
	if len(sc.PermissionWindows) != 3 {
		t.Errorf("expected 3 permission windows, got %d", len(sc.PermissionWindows))
	}
	if sc.Exit.CorrectionFrom != "20:00" {
		t.Errorf("expected correction_from 20:00, got %q", sc.Exit.CorrectionFrom)
	}
	if sc.Exit.CorrectionCooldown != time.Minute {
		t.Errorf("expected 1m cooldown, got %v", sc.Exit.CorrectionCooldown)
	}
}

func TestLoadSchedule_FileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	content := `
entry:
  on_time_until: "08:30:00"
  delay_base_hour: 8
break_windows:
  - start: "12:00"
    end: "12:30"
exit:
  correction_from: "21:00"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadSchedule(path)
	if err != nil {
		t.Fatalf("LoadSchedule() error: %v", err)
	}
	if sc.Entry.OnTimeUntil != "08:30:00" {
		t.Errorf("expected override on_time_until, got %q", sc.Entry.OnTimeUntil)
	}
	if len(sc.BreakWindows) != 1 {
		t.Errorf("expected 1 break window, got %d", len(sc.BreakWindows))
	}
	if len(sc.PermissionWindows) != 0 {
		t.Errorf("expected no permission windows, got %d", len(sc.PermissionWindows))
	}
}

func TestLoadSchedule_MissingFile(t *testing.T) {
	if _, err := LoadSchedule(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing schedule file")
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DATABASE_PATH", "CORPUS_PATH", "MATCH_METRIC", "MATCH_THRESHOLD", "SCHEDULE_FILE", "SPEAKER"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Database.Path != "database/attendance.db" {
		t.Errorf("unexpected database path %q", cfg.Database.Path)
	}
	if cfg.Corpus.Path != "embeddings/embeddings.gob" {
		t.Errorf("unexpected corpus path %q", cfg.Corpus.Path)
	}
	if cfg.Matching.Metric != "distance" || cfg.Matching.Threshold != 0.45 {
		t.Errorf("unexpected matching config %+v", cfg.Matching)
	}
	if cfg.Voice.Speaker != "command" {
		t.Errorf("unexpected speaker %q", cfg.Voice.Speaker)
	}
	if cfg.Dashboard.AdminPassword != "admin123" {
		t.Errorf("unexpected admin password default %q", cfg.Dashboard.AdminPassword)
	}
}

func TestLoad_SimilarityMetricDefaultThreshold(t *testing.T) {
	t.Setenv("MATCH_METRIC", "similarity")
	t.Setenv("MATCH_THRESHOLD", "")

	cfg := Load()
	if cfg.Matching.Threshold != 0.6 {
		t.Errorf("expected 0.6 threshold for similarity metric, got %v", cfg.Matching.Threshold)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	if got := envInt("TEST_INT", 7); got != 7 {
		t.Errorf("envInt invalid: got %d, want 7", got)
	}
	t.Setenv("TEST_INT", "3")
	if got := envInt("TEST_INT", 7); got != 3 {
		t.Errorf("envInt valid: got %d, want 3", got)
	}

	t.Setenv("TEST_FLOAT", "0.4")
	if got := envFloat("TEST_FLOAT", 0.45); got != 0.4 {
		t.Errorf("envFloat: got %v, want 0.4", got)
	}
	t.Setenv("TEST_FLOAT", "-1")
	if got := envFloat("TEST_FLOAT", 0.45); got != 0.45 {
		t.Errorf("envFloat negative: got %v, want 0.45", got)
	}

	t.Setenv("TEST_DURATION", "2s")
	if got := envDuration("TEST_DURATION", time.Second); got != 2*time.Second {
		t.Errorf("envDuration: got %v, want 2s", got)
	}
	t.Setenv("TEST_DURATION", "soon")
	if got := envDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("envDuration invalid: got %v, want 1s", got)
	}
}
