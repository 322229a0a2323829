package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"powercast/internal/common"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		common.EnvConfigFile, common.EnvListenHost, common.EnvListenPort,
		common.EnvTreeModelPath, common.EnvSeqModelPath, common.EnvDataPath,
		common.EnvRequestTimeout, common.EnvHistoryLimit,
		common.EnvDashboardPort, common.EnvServiceURL,
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.ListenHost != common.DefaultListenHost {
		t.Errorf("ListenHost = %q, want %q", s.ListenHost, common.DefaultListenHost)
	}
	if s.ListenPort != common.DefaultListenPort {
		t.Errorf("ListenPort = %d, want %d", s.ListenPort, common.DefaultListenPort)
	}
	if s.Addr() != "0.0.0.0:8000" {
		t.Errorf("Addr = %q, want 0.0.0.0:8000", s.Addr())
	}
	if s.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", s.RequestTimeout)
	}
	if s.DataPath != "" {
		t.Errorf("DataPath = %q, want empty", s.DataPath)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(common.EnvListenPort, "9100")
	t.Setenv(common.EnvTreeModelPath, "/models/t.json")
	t.Setenv(common.EnvSeqModelPath, "/models/s.json")
	t.Setenv(common.EnvRequestTimeout, "2s")
	t.Setenv(common.EnvHistoryLimit, "25")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.ListenPort != 9100 {
		t.Errorf("ListenPort = %d, want 9100", s.ListenPort)
	}
	if s.TreeModelPath != "/models/t.json" {
		t.Errorf("TreeModelPath = %q", s.TreeModelPath)
	}
	if s.SeqModelPath != "/models/s.json" {
		t.Errorf("SeqModelPath = %q", s.SeqModelPath)
	}
	if s.RequestTimeout != 2*time.Second {
		t.Errorf("RequestTimeout = %v, want 2s", s.RequestTimeout)
	}
	if s.HistoryLimit != 25 {
		t.Errorf("HistoryLimit = %d, want 25", s.HistoryLimit)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	yamlContent := `
server:
  host: "127.0.0.1"
  port: 9000
  requestTimeout: "3s"
models:
  treePath: "artifacts/tree.json"
  seqPath: "artifacts/rnn.json"
history:
  dataPath: "/var/lib/powercast"
  limit: 50
dashboard:
  port: 9001
  serviceURL: "http://127.0.0.1:9000"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv(common.EnvConfigFile, path)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.ListenHost != "127.0.0.1" || s.ListenPort != 9000 {
		t.Errorf("Listen = %s:%d, want 127.0.0.1:9000", s.ListenHost, s.ListenPort)
	}
	if s.TreeModelPath != "artifacts/tree.json" {
		t.Errorf("TreeModelPath = %q", s.TreeModelPath)
	}
	if s.RequestTimeout != 3*time.Second {
		t.Errorf("RequestTimeout = %v, want 3s", s.RequestTimeout)
	}
	if s.DataPath != "/var/lib/powercast" {
		t.Errorf("DataPath = %q", s.DataPath)
	}
	if s.DashboardPort != 9001 {
		t.Errorf("DashboardPort = %d, want 9001", s.DashboardPort)
	}
}

func TestLoad_EnvBeatsYAML(t *testing.T) {
	clearEnv(t)

	yamlContent := `
server:
  port: 9000
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv(common.EnvConfigFile, path)
	t.Setenv(common.EnvListenPort, "9500")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.ListenPort != 9500 {
		t.Errorf("ListenPort = %d, want env override 9500", s.ListenPort)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(common.EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidateSettings(t *testing.T) {
	valid := func() Settings {
		return Settings{
			ListenHost:     "0.0.0.0",
			ListenPort:     8000,
			TreeModelPath:  "tree.json",
			SeqModelPath:   "rnn.json",
			RequestTimeout: 5 * time.Second,
			HistoryLimit:   100,
			DashboardPort:  8081,
			ServiceURL:     "http://127.0.0.1:8000",
		}
	}

	testCases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"empty tree path", func(s *Settings) { s.TreeModelPath = "" }},
		{"empty seq path", func(s *Settings) { s.SeqModelPath = "" }},
		{"port too large", func(s *Settings) { s.ListenPort = 70000 }},
		{"port zero", func(s *Settings) { s.ListenPort = 0 }},
		{"timeout too short", func(s *Settings) { s.RequestTimeout = time.Millisecond }},
		{"timeout too long", func(s *Settings) { s.RequestTimeout = 2 * time.Minute }},
		{"history limit zero", func(s *Settings) { s.HistoryLimit = 0 }},
		{"history limit huge", func(s *Settings) { s.HistoryLimit = 100000 }},
		{"empty service URL", func(s *Settings) { s.ServiceURL = "" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(&s)
			if err := validateSettings(&s); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	s := valid()
	if err := validateSettings(&s); err != nil {
		t.Errorf("Expected valid settings to pass, got %v", err)
	}
}
