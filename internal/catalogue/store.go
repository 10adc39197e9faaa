package catalogue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"shop-assistant/internal/models"
)

var ErrUnsupportedShape = errors.New("catalogue must be an array or an object with a products array")

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type entry struct {
	raw     models.RawProduct
	client  models.ClientProduct
	summary models.CatalogueSummaryEntry
}

// Store is the read-only catalogue for one process lifetime. It is never
// mutated after Load returns, so concurrent readers need no locking.
type Store struct {
	entries []entry
	index   map[string]int
}

// Load reads and parses the source. It never fails: any error is logged and
// an empty store is returned.
func Load(ctx context.Context, src Source, log Logger) *Store {
	log = log.With(map[string]interface{}{"source": src.String()})

	data, err := src.Read(ctx)
	if err != nil {
		log.Warn("catalogue unavailable, serving empty catalogue", map[string]interface{}{"error": err.Error()})
		return NewStore(nil)
	}

	raws, err := Parse(data)
	if err != nil {
		log.Warn("catalogue unreadable, serving empty catalogue", map[string]interface{}{"error": err.Error()})
		return NewStore(nil)
	}

	store := NewStore(raws)
	log.Info("catalogue loaded", map[string]interface{}{"products": store.Len()})
	return store
}

// Parse decodes a catalogue document. Numbers are kept as json.Number so
// numeric ids round-trip exactly. Non-object elements are skipped.
func Parse(data []byte) ([]models.RawProduct, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalogue: trailing data after document")
	}

	var items []interface{}
	switch v := doc.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		list, ok := v["products"].([]interface{})
		if !ok {
			return nil, ErrUnsupportedShape
		}
		items = list
	default:
		return nil, ErrUnsupportedShape
	}

	out := make([]models.RawProduct, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, models.RawProduct(obj))
		}
	}
	return out, nil
}

// NewStore derives ids once. A repeated id gets a ~n suffix in load order.
func NewStore(raws []models.RawProduct) *Store {
	s := &Store{
		entries: make([]entry, 0, len(raws)),
		index:   make(map[string]int, len(raws)),
	}
	for _, raw := range raws {
		client := ToClientShape(raw)
		summary := ToSummary(raw)

		id := client.ID
		for n := 2; ; n++ {
			if _, taken := s.index[id]; !taken {
				break
			}
			id = client.ID + "~" + strconv.Itoa(n)
		}
		client.ID = id
		summary.ID = id

		s.index[id] = len(s.entries)
		s.entries = append(s.entries, entry{raw: raw, client: client, summary: summary})
	}
	return s
}

func (s *Store) Len() int {
	return len(s.entries)
}

func (s *Store) Products() []models.ClientProduct {
	out := make([]models.ClientProduct, len(s.entries))
	for i, e := range s.entries {
		out[i] = cloneClient(e.client)
	}
	return out
}

func (s *Store) Summaries() []models.CatalogueSummaryEntry {
	out := make([]models.CatalogueSummaryEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.summary
		out[i].Tags = append([]string{}, e.summary.Tags...)
	}
	return out
}

func (s *Store) Lookup(id string) (models.RawProduct, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.entries[i].raw, true
}

// ClientProduct returns the client shape for a derived id.
func (s *Store) ClientProduct(id string) (models.ClientProduct, bool) {
	i, ok := s.index[id]
	if !ok {
		return models.ClientProduct{}, false
	}
	return cloneClient(s.entries[i].client), true
}

func cloneClient(p models.ClientProduct) models.ClientProduct {
	p.Tags = append([]string{}, p.Tags...)
	if p.Price != nil {
		v := *p.Price
		p.Price = &v
	}
	return p
}
