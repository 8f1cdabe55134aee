package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/SedlarDavid/mssqlconn/internal/config"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		want      zerolog.Level
	}{
		{"", 0, zerolog.InfoLevel},
		{"warn", 0, zerolog.WarnLevel},
		{"bogus", 0, zerolog.InfoLevel},
		{"warn", 1, zerolog.DebugLevel},
		{"", 3, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		if got := Level(tt.name, tt.verbosity); got != tt.want {
			t.Errorf("Level(%q, %d) = %v, want %v", tt.name, tt.verbosity, got, tt.want)
		}
	}
}

func TestNew_consoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "mssqlconn.log")

	l := New(&console, config.LogConfig{File: path})
	l.Info().Str("database", "sales").Msg("Connection established")

	if !strings.Contains(console.String(), "Connection established") {
		t.Errorf("console output missing message: %q", console.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "database=sales") {
		t.Errorf("file output missing field: %q", data)
	}
}
