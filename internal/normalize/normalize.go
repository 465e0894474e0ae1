// Package normalize maps heterogeneous upstream scrape records into the
// canonical restaurant/category/item shape. The upstream provider has
// emitted two incompatible schemas over time: a keyed map of named
// item-list blocks with explicit sort order, and a flat item array with ad
// hoc category strings. Both converge here; nothing downstream sees a
// provider-specific shape.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultCategory is the bucket for items with no grouping information.
const DefaultCategory = "Uncategorized"

// Item is one normalized menu item. PriceCents is nil when the upstream
// price was absent or unparseable, never zero. Raw keeps the original price
// representation and option/variant data for later reconciliation.
type Item struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	PriceCents  *int64         `json:"price_cents,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
	Raw         map[string]any `json:"raw,omitempty"`
}

// Category is one ordered group of items.
type Category struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Store is the canonical form of one upstream restaurant record.
type Store struct {
	Name       string     `json:"name"`
	Street     string     `json:"street,omitempty"`
	City       string     `json:"city,omitempty"`
	State      string     `json:"state,omitempty"`
	ZipCode    string     `json:"zip_code,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Website    string     `json:"website,omitempty"`
	SourceURL  string     `json:"source_url,omitempty"`
	ExternalID string     `json:"external_id,omitempty"`
	Categories []Category `json:"categories"`
}

// ItemCount returns the total items across all categories.
func (s *Store) ItemCount() int {
	n := 0
	for _, c := range s.Categories {
		n += len(c.Items)
	}
	return n
}

var titleCaser = cases.Title(language.English)

var separatorReplacer = strings.NewReplacer("_", " ", "-", " ")

// promotedMarkers are leading characters upstream prepends to flag promoted
// items; they are stripped from names.
var promotedMarkers = []string{"★", "*"}

// reviewKeys are high-volume, privacy-sensitive upstream fields dropped
// before a record reaches normalized storage. They remain retrievable only
// from the raw archived payload.
var reviewKeys = []string{"reviews", "reviewsDistribution", "reviewsTags", "userReviews"}

// StripReviews removes review payloads from an upstream record in place and
// returns it for chaining.
func StripReviews(record map[string]any) map[string]any {
	for _, k := range reviewKeys {
		delete(record, k)
	}
	return record
}

// Normalize converts one upstream store record into canonical form. A
// failure is scoped to this record only; callers process sibling records
// independently.
func Normalize(record map[string]any) (*Store, error) {
	if record == nil {
		return nil, eris.New("normalize: nil record")
	}

	name := strings.TrimSpace(stringField(record, "title", "name"))
	if name == "" {
		return nil, eris.New("normalize: record has no name")
	}

	s := &Store{
		Name:       name,
		Street:     stringField(record, "street", "address"),
		City:       stringField(record, "city"),
		State:      stringField(record, "state"),
		ZipCode:    stringField(record, "postalCode", "zip"),
		Phone:      stringField(record, "phone", "phoneUnformatted"),
		Website:    stringField(record, "website", "webUrl"),
		SourceURL:  stringField(record, "url", "sourceUrl"),
		ExternalID: stringField(record, "placeId", "id", "externalId"),
	}

	cats, err := extractCategories(record)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: %s", name)
	}
	s.Categories = cats
	return s, nil
}

// extractCategories dispatches on the upstream shape: named list blocks win,
// then flat-array grouping, then a single default bucket.
func extractCategories(record map[string]any) ([]Category, error) {
	if blocks, ok := record["menu"].(map[string]any); ok && len(blocks) > 0 {
		return categoriesFromBlocks(blocks)
	}

	items := arrayField(record, "items", "menuItems")
	if items == nil {
		// No menu content at all is a valid (empty) record.
		return nil, nil
	}
	return categoriesFromFlatList(items)
}

// namedBlock is one entry of the keyed-map schema.
type namedBlock struct {
	key   string
	sort  float64
	items []any
}

func categoriesFromBlocks(blocks map[string]any) ([]Category, error) {
	parsed := make([]namedBlock, 0, len(blocks))
	for key, raw := range blocks {
		block, ok := raw.(map[string]any)
		if !ok {
			return nil, eris.Errorf("menu block %q is not an object", key)
		}
		nb := namedBlock{key: key}
		if v, ok := numberField(block, "sort", "order", "position"); ok {
			nb.sort = v
		}
		if items, ok := block["items"].([]any); ok {
			nb.items = items
		}
		parsed = append(parsed, nb)
	}

	// Declared order first, key name as the tiebreak so output is stable.
	sort.Slice(parsed, func(i, j int) bool {
		if parsed[i].sort != parsed[j].sort {
			return parsed[i].sort < parsed[j].sort
		}
		return parsed[i].key < parsed[j].key
	})

	cats := make([]Category, 0, len(parsed))
	for _, nb := range parsed {
		cat := Category{Name: displayName(nb.key)}
		for _, raw := range nb.items {
			item, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			cat.Items = append(cat.Items, normalizeItem(item))
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

func categoriesFromFlatList(items []any) ([]Category, error) {
	var order []string
	grouped := map[string][]Item{}

	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		cat := strings.TrimSpace(stringField(item, "category", "section"))
		if cat == "" {
			cat = DefaultCategory
		} else {
			cat = displayName(cat)
		}
		if _, seen := grouped[cat]; !seen {
			order = append(order, cat)
		}
		grouped[cat] = append(grouped[cat], normalizeItem(item))
	}

	cats := make([]Category, 0, len(order))
	for _, name := range order {
		cats = append(cats, Category{Name: name, Items: grouped[name]})
	}
	return cats, nil
}

func normalizeItem(raw map[string]any) Item {
	item := Item{
		Name:        sanitizeName(stringField(raw, "name", "title")),
		Description: stringField(raw, "description"),
		ImageURL:    stringField(raw, "image", "imageUrl", "imageURL"),
		Raw:         raw,
	}
	if price, ok := raw["price"]; ok {
		item.PriceCents = ParsePrice(price)
	}
	return item
}

// sanitizeName strips the upstream promoted-item marker from the front of a
// name.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	for _, m := range promotedMarkers {
		if strings.HasPrefix(name, m) {
			return strings.TrimSpace(strings.TrimPrefix(name, m))
		}
	}
	return name
}

// displayName derives a human-readable category name from a raw key:
// separators become spaces, words are title-cased.
func displayName(key string) string {
	return titleCaser.String(strings.ToLower(separatorReplacer.Replace(strings.TrimSpace(key))))
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch s := v.(type) {
			case string:
				if s != "" {
					return s
				}
			case fmt.Stringer:
				return s.String()
			}
		}
	}
	return ""
}

func arrayField(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		if v, ok := m[k].([]any); ok {
			return v
		}
	}
	return nil
}

func numberField(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		}
	}
	return 0, false
}
