package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopmate/backend/internal/config"
	"github.com/shopmate/backend/internal/models"
)

// ErrEmptyRanking marks a malformed or empty ranker response, distinct from
// an honest "no matches".
var ErrEmptyRanking = errors.New("ranking service returned no usable result")

// Ranker re-ranks a candidate product set against a free-text prompt. It
// must never introduce products outside the candidate set.
type Ranker interface {
	Rank(ctx context.Context, prompt string, candidates []models.Product) ([]models.Product, error)
}

// maxRankedResults caps what the ranker may return.
const maxRankedResults = 5

// GeminiRanker calls the Gemini generateContent endpoint with a strict-JSON
// instruction contract.
type GeminiRanker struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewGeminiRanker(cfg config.AIConfig) *GeminiRanker {
	return &GeminiRanker{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func rankerPrompt(userPrompt string, candidates []models.Product) (string, error) {
	candidateJSON, err := json.Marshal(candidates)
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}

	return fmt.Sprintf(`You are a product recommendation engine for an eCommerce application.

STRICT RULES:
1. Only use products from the provided list.
2. Do NOT create or modify any product.
3. Do NOT explain anything.
4. Return ONLY valid JSON: an array of objects with the product "id" field.
5. If no products match, return an empty JSON array: []

Here is the list of available products:
%s

User request: %q

Matching Rules:
- Match based on product name, description, category, and price relevance.
- Consider synonyms and intent (e.g., "cheap" means lower price).
- Rank results by relevance (most relevant first).
- Return maximum %d products.`, candidateJSON, userPrompt, maxRankedResults), nil
}

func (g *GeminiRanker) Rank(ctx context.Context, prompt string, candidates []models.Product) ([]models.Product, error) {
	instruction, err := rankerPrompt(prompt, candidates)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": instruction}}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal ranker request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ranker request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ranker request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ranking service returned %d", resp.StatusCode)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode ranker response: %w", err)
	}

	text := ""
	if len(result.Candidates) > 0 && len(result.Candidates[0].Content.Parts) > 0 {
		text = result.Candidates[0].Content.Parts[0].Text
	}

	return parseRanking(text, candidates)
}

// parseRanking extracts the ranked product ids from the model's text output
// and resolves them against the candidate set. Anything the model invented
// is dropped; the result is capped at maxRankedResults.
func parseRanking(text string, candidates []models.Product) ([]models.Product, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, ErrEmptyRanking
	}

	var ranked []struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(cleaned), &ranked); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyRanking, err)
	}

	byID := make(map[int64]models.Product, len(candidates))
	for _, p := range candidates {
		byID[p.ID] = p
	}

	products := make([]models.Product, 0, maxRankedResults)
	seen := make(map[int64]bool)
	for _, entry := range ranked {
		if len(products) == maxRankedResults {
			break
		}
		product, ok := byID[entry.ID]
		if !ok || seen[entry.ID] {
			continue
		}
		seen[entry.ID] = true
		products = append(products, product)
	}

	return products, nil
}

var _ Ranker = (*GeminiRanker)(nil)

// stopWords are stripped from search prompts before the keyword pre-filter.
var stopWords = map[string]bool{
	"the": true, "they": true, "them": true, "then": true, "i": true,
	"we": true, "you": true, "he": true, "she": true, "it": true,
	"is": true, "a": true, "an": true, "of": true, "and": true,
	"or": true, "to": true, "for": true, "from": true, "on": true,
	"who": true, "whom": true, "why": true, "when": true, "which": true,
	"with": true, "this": true, "that": true, "in": true, "at": true,
	"by": true, "be": true, "not": true, "was": true, "were": true,
	"has": true, "have": true, "had": true, "do": true, "does": true,
	"did": true, "so": true, "some": true, "any": true, "how": true,
	"can": true, "could": true, "should": true, "would": true,
	"there": true, "here": true, "just": true, "than": true,
	"because": true, "but": true, "its": true, "if": true,
	"1": true, "2": true, "3": true, "4": true, "5": true,
	"6": true, "7": true, "8": true, "9": true, "10": true,
}

// ExtractKeywords lowercases the prompt, strips punctuation, and drops stop
// words, leaving the terms fed to the keyword pre-filter.
func ExtractKeywords(prompt string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(prompt) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '_':
			b.WriteRune(r)
		default:
			// punctuation and other symbols are dropped
		}
	}

	keywords := make([]string, 0)
	for _, word := range strings.Fields(b.String()) {
		if stopWords[word] {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}
