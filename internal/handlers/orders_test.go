package handlers

import (
	"encoding/json"
	"testing"
)

func TestParseCartStructuredList(t *testing.T) {
	raw := json.RawMessage(`[{"product": {"id": 7}, "quantity": 2}]`)

	lines, err := parseCart(raw)
	if err != nil {
		t.Fatalf("parseCart: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Product.ID != 7 || lines[0].Quantity != 2 {
		t.Errorf("unexpected line: %+v", lines[0])
	}
}

func TestParseCartJSONEncodedString(t *testing.T) {
	raw := json.RawMessage(`"[{\"product\": {\"id\": 3}, \"quantity\": 1}]"`)

	lines, err := parseCart(raw)
	if err != nil {
		t.Fatalf("parseCart: %v", err)
	}
	if len(lines) != 1 || lines[0].Product.ID != 3 {
		t.Errorf("unexpected lines: %+v", lines)
	}
}

func TestParseCartMalformed(t *testing.T) {
	if _, err := parseCart(json.RawMessage(`{"not": "a list"}`)); err == nil {
		t.Error("expected error for a non-list payload")
	}
}

func TestParseCartEmpty(t *testing.T) {
	lines, err := parseCart(nil)
	if err != nil {
		t.Fatalf("parseCart: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no lines, got %d", len(lines))
	}
}
