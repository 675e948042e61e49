package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcanvas/pkg/config"
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("render") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("edit started") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("edit started") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestProgressReportsElapsed(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Rendered sample.json")
	out := buf.String()
	if !strings.Contains(out, "Rendered sample.json (") || !strings.Contains(out, "s)") {
		t.Errorf("progress output = %q, want message with a duration", out)
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)

	if got := loggerFromContext(withLogger(context.Background(), custom)); got != custom {
		t.Error("loggerFromContext should return the attached logger")
	}
	if got := loggerFromContext(context.Background()); got != log.Default() {
		t.Error("loggerFromContext should fall back to log.Default()")
	}
}

func TestEditorLoggerDiscardsWithoutFile(t *testing.T) {
	logger, closeLog, err := editorLogger("")
	if err != nil {
		t.Fatal(err)
	}
	defer closeLog()
	// Nothing may reach the terminal while the editor owns the alt screen.
	logger.Error("should vanish")
}

func TestEditorLoggerWritesDebugToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edit.log")
	if err := os.WriteFile(path, []byte("earlier session\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger, closeLog, err := editorLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	model, err := newEditor(config.Default(), filepath.Join(t.TempDir(), "new.json"), logger)
	if err != nil {
		t.Fatal(err)
	}
	model.canvas.DoubleClick(geom.V(4, 2))
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.HasPrefix(out, "earlier session\n") {
		t.Error("editor log should append to an existing file")
	}
	if !strings.Contains(out, "edit started") {
		t.Errorf("editor log missing canvas debug output:\n%s", out)
	}
}

func TestEditorLoggerBadPath(t *testing.T) {
	if _, _, err := editorLogger(filepath.Join(t.TempDir(), "missing", "edit.log")); err == nil {
		t.Error("editorLogger() should fail when the directory does not exist")
	}
}
