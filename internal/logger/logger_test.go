package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %s", log.GetLevel())
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := newLogger(&bytes.Buffer{}, tt.level, "json")
			if log.GetLevel() != tt.want {
				t.Errorf("level %q: expected %s, got %s", tt.level, tt.want, log.GetLevel())
			}
		})
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newLogger(buf, "info", "json")
	log.Info().Str("provider", "heuristic").Msg("model call")
	log.Debug().Msg("suppressed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected one log line, got %d: %s", len(lines), buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", lines[0], err)
	}
	if entry["provider"] != "heuristic" || entry["message"] != "model call" {
		t.Errorf("Unexpected entry: %v", entry)
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("extracted transactions")

	if !strings.Contains(buf.String(), "extracted transactions") {
		t.Errorf("Expected output to contain message, got: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestComponentAndFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(Component(NewWithWriter(buf), "pipeline"), map[string]interface{}{
		"task":    "extract",
		"attempt": 2,
	})
	log.Info().Msg("validation failed")

	out := buf.String()
	for _, want := range []string{`"component":"pipeline"`, `"task":"extract"`, `"attempt":2`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %s, got: %s", want, out)
		}
	}
}
