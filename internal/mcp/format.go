package mcp

import (
	"encoding/json"

	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/pkg/searchbridge"
)

func toHitOutput(h searchbridge.Hit) (HitOutput, error) {
	out := HitOutput{Score: h.Score, Document: make(map[string][]any)}
	if h.Doc != nil {
		for pair := h.Doc.Oldest(); pair != nil; pair = pair.Next() {
			out.Document[pair.Key] = pair.Value
		}
	}
	if len(h.Explanation) > 0 {
		if err := json.Unmarshal(h.Explanation, &out.Explanation); err != nil {
			return HitOutput{}, errors.InternalError("failed to decode explanation", err)
		}
	}
	return out, nil
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, lo, hi int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < lo {
		return lo
	}
	if limit > hi {
		return hi
	}
	return limit
}
