package home

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-protocollens")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-protocollens" {
			t.Errorf("expected path /tmp/test-protocollens, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-protocollens")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-protocollens/config.yaml"},
		{"PromptsPath", dir.PromptsPath(), "/tmp/test-protocollens/prompts"},
		{"ReportsPath", dir.ReportsPath(), "/tmp/test-protocollens/reports"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, tt.got)
		}
	}
}

func TestDir_ReportPath(t *testing.T) {
	dir, _ := New("/tmp/test-protocollens")
	at := time.Date(2024, 3, 5, 14, 30, 0, 0, time.FixedZone("EST", -5*3600))

	got := dir.ReportPath("/data/Study Protocol v2.pdf", at, "yaml")
	want := "/tmp/test-protocollens/reports/Study_Protocol_v2_20240305T193000Z.yaml"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	if got := dir.ReportPath("-", at, "json"); got != "/tmp/test-protocollens/reports/_20240305T193000Z.json" {
		t.Errorf("unexpected stdin report path %s", got)
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "protocollens-test")

	dir, err := New(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist yet")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	for _, p := range []string{dir.Path(), dir.PromptsPath(), dir.ReportsPath()} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", p)
		}
	}
	if dir.ConfigExists() {
		t.Error("config should not exist yet")
	}

	// Idempotent
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("second EnsureExists failed: %v", err)
	}
}
