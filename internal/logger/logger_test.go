package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestLoggerWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("pos-api", &buf)

	log.Error("order_creation_failed", "Failed to create order", "req-1", errors.New("boom"), map[string]interface{}{
		"order_id": 7,
	})

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("record is not JSON: %v (%s)", err, buf.String())
	}
	if rec["service"] != "pos-api" {
		t.Errorf("service = %v", rec["service"])
	}
	if rec["action"] != "order_creation_failed" {
		t.Errorf("action = %v", rec["action"])
	}
	if rec["request_id"] != "req-1" {
		t.Errorf("request_id = %v", rec["request_id"])
	}
	if rec["msg"] != "Failed to create order" {
		t.Errorf("msg = %v", rec["msg"])
	}
	errGroup, ok := rec["error"].(map[string]interface{})
	if !ok || errGroup["msg"] != "boom" {
		t.Errorf("error group = %v", rec["error"])
	}
	details, ok := rec["details"].(map[string]interface{})
	if !ok || details["order_id"] != float64(7) {
		t.Errorf("details = %v", rec["details"])
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if a == "" || a == b {
		t.Fatalf("request ids not unique: %q %q", a, b)
	}
}

func TestSlogCarriesService(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("checkout-worker", &buf).Slog().Info("Started Worker", "Namespace", "default")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if rec["service"] != "checkout-worker" || rec["Namespace"] != "default" {
		t.Errorf("record = %v", rec)
	}
}
