package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]string{"k": "v"}, "ok")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	var body struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
		Message string            `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.Success || body.Data["k"] != "v" || body.Message != "ok" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestInvalid(t *testing.T) {
	rec := httptest.NewRecorder()
	Invalid(rec, "Validation failed", map[string][]string{"filename": {"is reserved"}})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Success || body.Code != http.StatusBadRequest {
		t.Errorf("unexpected envelope: %+v", body)
	}
	if got := body.Fields["filename"]; len(got) != 1 || got[0] != "is reserved" {
		t.Errorf("unexpected fields: %v", body.Fields)
	}
}

func TestError_OmitsFields(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusNotFound, "File not found")

	var raw map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if _, ok := raw["fields"]; ok {
		t.Error("fields should be omitted when empty")
	}
	if raw["error"] != "File not found" {
		t.Errorf("unexpected error message: %v", raw["error"])
	}
}
