package services

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopmate/backend/internal/models"
)

func TestExtractKeywords(t *testing.T) {
	cases := []struct {
		prompt string
		want   []string
	}{
		{"I want a cheap gaming laptop!", []string{"want", "cheap", "gaming", "laptop"}},
		{"the and of to", []string{}},
		{"Wireless, noise-cancelling headphones?", []string{"wireless", "noisecancelling", "headphones"}},
		{"", []string{}},
		{"  COFFEE   Maker  ", []string{"coffee", "maker"}},
	}

	for _, tc := range cases {
		got := ExtractKeywords(tc.prompt)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ExtractKeywords(%q) = %v, want %v", tc.prompt, got, tc.want)
		}
	}
}

func candidateSet() []models.Product {
	return []models.Product{
		{ID: 1, Name: "Laptop"},
		{ID: 2, Name: "Mouse"},
		{ID: 3, Name: "Keyboard"},
		{ID: 4, Name: "Monitor"},
		{ID: 5, Name: "Headset"},
		{ID: 6, Name: "Webcam"},
		{ID: 7, Name: "Dock"},
	}
}

func TestParseRankingResolvesAgainstCandidates(t *testing.T) {
	ranked, err := parseRanking(`[{"id": 3}, {"id": 1}]`, candidateSet())
	if err != nil {
		t.Fatalf("parseRanking: %v", err)
	}

	if len(ranked) != 2 {
		t.Fatalf("expected 2 products, got %d", len(ranked))
	}
	if ranked[0].ID != 3 || ranked[1].ID != 1 {
		t.Errorf("wrong order: got %d, %d", ranked[0].ID, ranked[1].ID)
	}
}

func TestParseRankingDropsInventedProducts(t *testing.T) {
	ranked, err := parseRanking(`[{"id": 99}, {"id": 2}, {"id": 2}]`, candidateSet())
	if err != nil {
		t.Fatalf("parseRanking: %v", err)
	}

	if len(ranked) != 1 || ranked[0].ID != 2 {
		t.Errorf("expected only candidate 2, got %v", ranked)
	}
}

func TestParseRankingCapsResults(t *testing.T) {
	ranked, err := parseRanking(
		`[{"id":1},{"id":2},{"id":3},{"id":4},{"id":5},{"id":6},{"id":7}]`,
		candidateSet())
	if err != nil {
		t.Fatalf("parseRanking: %v", err)
	}

	if len(ranked) != maxRankedResults {
		t.Errorf("expected %d products, got %d", maxRankedResults, len(ranked))
	}
}

func TestParseRankingStripsCodeFences(t *testing.T) {
	ranked, err := parseRanking("```json\n[{\"id\": 4}]\n```", candidateSet())
	if err != nil {
		t.Fatalf("parseRanking: %v", err)
	}

	if len(ranked) != 1 || ranked[0].ID != 4 {
		t.Errorf("expected candidate 4, got %v", ranked)
	}
}

func TestParseRankingEmptyResponse(t *testing.T) {
	if _, err := parseRanking("", candidateSet()); !errors.Is(err, ErrEmptyRanking) {
		t.Errorf("expected ErrEmptyRanking, got %v", err)
	}
}

func TestParseRankingMalformedResponse(t *testing.T) {
	if _, err := parseRanking("these are the best products", candidateSet()); !errors.Is(err, ErrEmptyRanking) {
		t.Errorf("expected ErrEmptyRanking, got %v", err)
	}
}

func TestParseRankingNoMatches(t *testing.T) {
	ranked, err := parseRanking("[]", candidateSet())
	if err != nil {
		t.Fatalf("parseRanking: %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("expected empty result, got %v", ranked)
	}
}
