package searchbridge

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/Aman-CERP/searchbridge/internal/engine"
	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// Term is a dictionary entry returned by SearchTerms.
type Term = engine.Term

// Document maps field names to their stored values in schema order.
type Document = orderedmap.OrderedMap[string, []any]

// Hit is one search result. It encodes to JSON as
// [score, document, explanation].
type Hit struct {
	Score       float64
	Doc         *Document
	Explanation json.RawMessage
}

// MarshalJSON implements json.Marshaler.
func (h Hit) MarshalJSON() ([]byte, error) {
	doc := h.Doc
	if doc == nil {
		doc = orderedmap.New[string, []any]()
	}
	expl := h.Explanation
	if len(expl) == 0 {
		expl = json.RawMessage("null")
	}
	return json.Marshal([]any{h.Score, doc, expl})
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Hit) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return errors.InvalidArgument("hit must be a [score, document, explanation] triple, got %d elements", len(parts))
	}
	if err := json.Unmarshal(parts[0], &h.Score); err != nil {
		return err
	}
	h.Doc = orderedmap.New[string, []any]()
	if err := json.Unmarshal(parts[1], h.Doc); err != nil {
		return err
	}
	h.Explanation = nil
	if string(parts[2]) != "null" {
		h.Explanation = parts[2]
	}
	return nil
}

func toHit(h engine.Hit) (Hit, error) {
	doc := orderedmap.New[string, []any]()
	if h.Doc != nil {
		for _, fv := range h.Doc.Fields {
			doc.Set(fv.Field.Name, fv.Values)
		}
	}
	out := Hit{Score: h.Score, Doc: doc}
	if h.Explanation != nil {
		raw, err := json.Marshal(h.Explanation)
		if err != nil {
			return Hit{}, errors.InternalError("failed to encode explanation", err)
		}
		out.Explanation = raw
	}
	return out, nil
}
