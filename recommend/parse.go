package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

type wireRecommendation struct {
	Category    *string  `json:"category"`
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Priority    *float64 `json:"priority"`
}

// Parse extracts a recommendation array from model output. The whole text is
// tried first, then each '[' in turn as the start of an array, so prose, code
// fences or stray brackets around the array are tolerated. A single malformed
// element rejects that candidate.
func Parse(text string) ([]Recommendation, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, io.ErrUnexpectedEOF
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err == nil {
		return decodeArray(raw)
	}

	lastErr := fmt.Errorf("no JSON array found in output (len=%d)", len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '[' {
			continue
		}
		var candidate []json.RawMessage
		if err := json.NewDecoder(strings.NewReader(s[i:])).Decode(&candidate); err != nil {
			lastErr = fmt.Errorf("decode array at offset %d: %w", i, err)
			continue
		}
		recs, err := decodeArray(candidate)
		if err != nil {
			lastErr = err
			continue
		}
		return recs, nil
	}
	return nil, lastErr
}

func decodeArray(raw []json.RawMessage) ([]Recommendation, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty recommendation array")
	}

	out := make([]Recommendation, 0, len(raw))
	for i, item := range raw {
		rec, err := decodeRecommendation(item)
		if err != nil {
			return nil, fmt.Errorf("recommendation %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeRecommendation(item json.RawMessage) (Recommendation, error) {
	var w wireRecommendation
	if err := json.Unmarshal(item, &w); err != nil {
		return Recommendation{}, err
	}
	for name, v := range map[string]*string{"category": w.Category, "title": w.Title, "description": w.Description} {
		if v == nil || strings.TrimSpace(*v) == "" {
			return Recommendation{}, fmt.Errorf("missing %s", name)
		}
	}
	if w.Priority == nil {
		return Recommendation{}, errors.New("missing priority")
	}
	p := *w.Priority
	if p != math.Trunc(p) || p < 1 || p > 10 {
		return Recommendation{}, fmt.Errorf("priority %v outside 1..10", p)
	}
	return Recommendation{
		Category:    *w.Category,
		Title:       *w.Title,
		Description: *w.Description,
		Priority:    int(p),
	}, nil
}
