package catalogue

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"shop-assistant/internal/models"
)

const (
	DefaultCurrency = "GBP"
	unresolvedURL   = "#"
)

var (
	idKeys    = []string{"id", "handle", "sku", "slug", "title"}
	titleKeys = []string{"title", "name"}
	urlKeys   = []string{"url", "link", "href"}
	pitchKeys = []string{"pitch", "subtitle", "tagline"}

	// Flat image fields, scanned before the nested images object.
	imageKeys = []string{"thumb", "image", "image_url", "img"}

	// Namespace for ids generated from a product's content.
	productNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("shop-assistant/catalogue/product"))
)

// DeriveID returns the product id: the first non-empty of id, handle, sku,
// slug, title. Records with none get an opaque token hashed from their
// content, so the result depends only on the record.
func DeriveID(raw models.RawProduct) string {
	if id := firstString(raw, idKeys...); id != "" {
		return id
	}
	canonical, err := json.Marshal(raw)
	if err != nil {
		canonical = []byte{}
	}
	token := uuid.NewSHA1(productNamespace, canonical).String()
	return "p_" + strings.ReplaceAll(token, "-", "")[:12]
}

// HasSourceID reports whether the record carries one of the id fields, as
// opposed to relying on a generated token.
func HasSourceID(raw models.RawProduct) bool {
	return firstString(raw, idKeys...) != ""
}

// ToClientShape maps a raw record to the client-facing product.
func ToClientShape(raw models.RawProduct) models.ClientProduct {
	link := NormalizeURL(firstString(raw, urlKeys...))
	if link == "" {
		link = unresolvedURL
	}
	return models.ClientProduct{
		ID:       DeriveID(raw),
		Title:    firstString(raw, titleKeys...),
		URL:      link,
		Price:    price(raw["price"]),
		Currency: currency(raw),
		Unit:     firstString(raw, "unit"),
		Pitch:    firstString(raw, pitchKeys...),
		Tags:     tags(raw["tags"]),
		Thumb:    FirstImage(raw),
	}
}

// ToSummary maps a raw record to the prompt-facing entry.
func ToSummary(raw models.RawProduct) models.CatalogueSummaryEntry {
	return models.CatalogueSummaryEntry{
		ID:       DeriveID(raw),
		Title:    firstString(raw, titleKeys...),
		Price:    price(raw["price"]),
		Currency: currency(raw),
		Tags:     tags(raw["tags"]),
		Pitch:    firstString(raw, pitchKeys...),
	}
}

// NormalizeURL rewrites a link into absolute, protocol-relative, data or
// site-rooted form.
func NormalizeURL(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "//"):
		return "https:" + s
	case hasScheme(s) || strings.HasPrefix(s, "/"):
		return s
	default:
		return "/" + strings.TrimLeft(s, "/")
	}
}

func hasScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http:") ||
		strings.HasPrefix(lower, "https:") ||
		strings.HasPrefix(lower, "data:")
}

// FirstImage picks the first usable image in priority order: thumb, image,
// image_url, img, images.card, images.thumb, images[0].
func FirstImage(raw models.RawProduct) string {
	for _, key := range imageKeys {
		if src := imageSource(raw[key]); src != "" {
			return NormalizeURL(src)
		}
	}
	switch images := raw["images"].(type) {
	case map[string]interface{}:
		for _, key := range []string{"card", "thumb"} {
			if src := imageSource(images[key]); src != "" {
				return NormalizeURL(src)
			}
		}
	case []interface{}:
		if len(images) > 0 {
			return NormalizeURL(imageSource(images[0]))
		}
	}
	return ""
}

// imageSource accepts a plain string or an object carrying src or url.
func imageSource(v interface{}) string {
	switch img := v.(type) {
	case string:
		return strings.TrimSpace(img)
	case map[string]interface{}:
		if src := scalarString(img["src"]); src != "" {
			return src
		}
		return scalarString(img["url"])
	}
	return ""
}

func firstString(raw models.RawProduct, keys ...string) string {
	for _, key := range keys {
		if s := scalarString(raw[key]); s != "" {
			return s
		}
	}
	return ""
}

// scalarString stringifies strings and numbers. Other values yield "".
func scalarString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	}
	return ""
}

func price(v interface{}) *float64 {
	var (
		f   float64
		err error
	)
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		f, err = val.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return nil
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func currency(raw models.RawProduct) string {
	if c := firstString(raw, "currency"); c != "" {
		return c
	}
	return DefaultCurrency
}

// tags accepts a list of strings or a comma-separated string.
func tags(v interface{}) []string {
	out := []string{}
	switch val := v.(type) {
	case []interface{}:
		for _, item := range val {
			if s := scalarString(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range val {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(val, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
