package cli

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerFiltersByLevel(t *testing.T) {
	tests := []struct {
		level log.Level
		emit  func(*log.Logger)
		want  bool
	}{
		{log.InfoLevel, func(l *log.Logger) { l.Info("resolved module graph") }, true},
		{log.InfoLevel, func(l *log.Logger) { l.Debug("transition", "path", "a.lua") }, false},
		{log.DebugLevel, func(l *log.Logger) { l.Debug("transition", "path", "a.lua") }, true},
		{log.WarnLevel, func(l *log.Logger) { l.Info("bundled flow") }, false},
		{log.WarnLevel, func(l *log.Logger) { l.Warn("flow has no compatible SDK version") }, true},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		tt.emit(newLogger(&buf, tt.level))
		if got := buf.Len() > 0; got != tt.want {
			t.Errorf("level %s: wrote output = %v, want %v (%q)", tt.level, got, tt.want, buf.String())
		}
	}
}

func TestNewLoggerTimestamp(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, log.InfoLevel).Info("bundled flow", "alias", "checkout")

	line := buf.String()
	if !regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{2} `).MatchString(line) {
		t.Errorf("line %q should start with a HH:MM:SS.ms timestamp", line)
	}
	if !strings.Contains(line, "alias=checkout") {
		t.Errorf("line %q lacks key/value pair", line)
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("Bundled 2 flows")

	if !regexp.MustCompile(`Bundled 2 flows \(\d+(\.\d+)?m?s\)`).MatchString(buf.String()) {
		t.Errorf("progress output %q should end with the elapsed time", buf.String())
	}
}

func TestSetLogLevel(t *testing.T) {
	c := New(io.Discard, LogInfo)
	c.SetLogLevel(LogDebug)
	if c.Logger.GetLevel() != log.DebugLevel {
		t.Errorf("level = %s, want debug", c.Logger.GetLevel())
	}
}
