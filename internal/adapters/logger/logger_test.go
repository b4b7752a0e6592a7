package logger_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"go.trai.ch/quake/internal/adapters/logger"
)

func TestLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf)

	log.Info("building target")

	out := buf.String()
	if !strings.Contains(out, "level=INFO") {
		t.Errorf("expected INFO level in output, got %q", out)
	}
	if !strings.Contains(out, "building target") {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestLogger_Warn(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf)

	log.Warn("artifact missing")

	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected WARN level in output, got %q", buf.String())
	}
}

func TestLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf)

	log.Error(errors.New("task exploded"))

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") {
		t.Errorf("expected ERROR level in output, got %q", out)
	}
	if !strings.Contains(out, "task exploded") {
		t.Errorf("expected error text in output, got %q", out)
	}
}

func TestLogger_SetOutput(t *testing.T) {
	var first, second bytes.Buffer
	log := logger.NewWithWriter(&first)

	log.Info("one")
	log.SetOutput(&second)
	log.Info("two")

	if strings.Contains(first.String(), "two") {
		t.Error("output after SetOutput must not reach the old writer")
	}
	if !strings.Contains(second.String(), "two") {
		t.Error("output after SetOutput must reach the new writer")
	}
}
