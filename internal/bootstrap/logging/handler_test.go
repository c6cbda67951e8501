package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONLoggerCarriesContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug", "json")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithLogger(context.Background(), logger)
	ctx = WithAttrs(ctx, slog.String("component", "valuation"), slog.String("quote_id", "q-1"))
	Info(ctx, "valuation completed", slog.Int("low", 248400), slog.String("quote_id", "q-2"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if record["msg"] != "valuation completed" || record["component"] != "valuation" {
		t.Fatalf("record = %v", record)
	}
	if record["quote_id"] != "q-2" {
		t.Fatalf("quote_id = %v, later attrs should win", record["quote_id"])
	}
}

func TestNewHandlerFormats(t *testing.T) {
	for _, format := range []string{"", "text", "json", "tint"} {
		var buf bytes.Buffer
		logger, err := New(&buf, "warn", format)
		if err != nil {
			t.Fatalf("New(%q) error = %v", format, err)
		}
		logger.Info("hidden")
		logger.Warn("shown")
		if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
			t.Fatalf("format %q output = %q", format, buf.String())
		}
	}

	if _, err := New(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Fatalf("New(xml) expected error")
	}
	if _, err := New(&bytes.Buffer{}, "loud", "text"); err == nil {
		t.Fatalf("New(loud) expected error")
	}
}

func TestWithRequestIDTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", "json")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithRequestID(WithLogger(context.Background(), logger), "req-7")
	ctx = WithRequestID(ctx, "")
	Debug(ctx, "filtered")
	Warn(ctx, "quote stuck")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if record["request_id"] != "req-7" || record["msg"] != "quote stuck" {
		t.Fatalf("record = %v", record)
	}
	if !HasLogger(ctx) || HasLogger(context.Background()) {
		t.Fatalf("HasLogger() mismatch")
	}
}
