package recommend

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"shop-assistant/internal/models"
	"shop-assistant/internal/prompt"
)

const DefaultMaxItems = 3

// Lookup resolves a derived product id to its client shape.
type Lookup interface {
	ClientProduct(id string) (models.ClientProduct, bool)
}

type Result struct {
	Clean     string
	Items     []models.ClientProduct
	Malformed bool
	// Err is set when a marker was present but its payload did not parse.
	Err error
}

type Extractor struct {
	lookup   Lookup
	maxItems int
}

func NewExtractor(lookup Lookup, maxItems int) *Extractor {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Extractor{lookup: lookup, maxItems: maxItems}
}

type markerEntry struct {
	ID interface{} `json:"id"`
	// Note is free text for the model's own use; any JSON value is accepted.
	Note json.RawMessage `json:"note"`
}

// Extract strips a trailing PRODUCTS_JSON= marker and resolves its ids.
// The marker is the last one whose payload runs to the end of the text as
// a bracketed array, so it may span several lines. Failing that, a marker on
// the last non-blank line is stripped as malformed. Text without a marker is
// returned unchanged.
func (e *Extractor) Extract(raw string) Result {
	body := strings.TrimRightFunc(raw, unicode.IsSpace)

	idx := anchoredMarker(body)
	if idx < 0 {
		lineStart := strings.LastIndexByte(body, '\n') + 1
		if i := strings.LastIndex(body[lineStart:], prompt.MarkerPrefix); i >= 0 {
			idx = lineStart + i
		}
	}
	if idx < 0 {
		return Result{Clean: raw, Items: []models.ClientProduct{}}
	}

	res := Result{
		Clean: strings.TrimSpace(body[:idx]),
		Items: []models.ClientProduct{},
	}

	entries, err := parseMarker(body[idx+len(prompt.MarkerPrefix):])
	if err != nil {
		res.Malformed = true
		res.Err = err
		return res
	}

	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if len(res.Items) == e.maxItems {
			break
		}
		id := entryID(entry.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if e.lookup == nil {
			continue
		}
		if product, ok := e.lookup.ClientProduct(id); ok {
			res.Items = append(res.Items, product)
		}
	}
	return res
}

// anchoredMarker returns the offset of the last marker whose payload starts
// with '[' and ends the text with ']', or -1.
func anchoredMarker(body string) int {
	end := len(body)
	for end > 0 {
		idx := strings.LastIndex(body[:end], prompt.MarkerPrefix)
		if idx < 0 {
			return -1
		}
		payload := strings.TrimSpace(body[idx+len(prompt.MarkerPrefix):])
		if strings.HasPrefix(payload, "[") && strings.HasSuffix(payload, "]") {
			return idx
		}
		end = idx
	}
	return -1
}

// parseMarker makes exactly one decode attempt over the whole payload.
func parseMarker(payload string) ([]markerEntry, error) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "[") {
		return nil, fmt.Errorf("marker payload is not a JSON array")
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()

	var entries []markerEntry
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode marker payload: %w", err)
	}
	if dec.InputOffset() != int64(len(payload)) {
		return nil, fmt.Errorf("decode marker payload: trailing data at offset %d", dec.InputOffset())
	}
	return entries, nil
}

func entryID(v interface{}) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	}
	return ""
}
