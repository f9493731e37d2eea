// internal/catalog/catalog.go
//
// Food catalog for the game engine.
//
// Responsibilities:
//   - Decode the catalog (JSON array of food records) from a file or the embedded default.
//   - Validate it once at startup; downstream code never re-validates.
//   - Offer read-only access: Items, Lookup by name, positive/negative subsets.
//
// Catalog source (FromEnv):
//   1. If CATALOG_FILE is set, load that file.
//   2. Otherwise fall back to assets/catalog.json embedded in the binary.
//
// Constraints:
//   • Every item needs a name and a category; names are unique (case-insensitive).
//   • At least one item scores > 0 and one scores < 0 (pair mode needs both).
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/robalobadob/gerdgame/assets"
)

// ErrCatalog is returned for a malformed catalog or one that violates the invariants.
var ErrCatalog = errors.New("catalog error")

// FoodItem is one immutable catalog entry.
type FoodItem struct {
	Name        string `json:"name"`
	Score       int    `json:"score"`       // signed health score; > 0 is GERD-friendly
	Explanation string `json:"explanation"`
	ImageRef    string `json:"image"`       // opaque to the engine
	Category    string `json:"category"`
}

// Good reports whether the item counts as a GERD-friendly choice.
func (f FoodItem) Good() bool { return f.Score > 0 }

// Catalog holds the loaded items. It is never mutated after Load.
type Catalog struct {
	items  []FoodItem
	byName map[string]int // lowercased name -> index
}

// New validates items and builds a Catalog.
func New(items []FoodItem) (*Catalog, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrCatalog)
	}
	c := &Catalog{
		items:  make([]FoodItem, len(items)),
		byName: make(map[string]int, len(items)),
	}
	var pos, neg int
	for i, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		it.Category = strings.TrimSpace(it.Category)
		if it.Name == "" {
			return nil, fmt.Errorf("%w: item %d has no name", ErrCatalog, i)
		}
		if it.Category == "" {
			return nil, fmt.Errorf("%w: item %q has no category", ErrCatalog, it.Name)
		}
		key := strings.ToLower(it.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("%w: duplicate item %q", ErrCatalog, it.Name)
		}
		switch {
		case it.Score > 0:
			pos++
		case it.Score < 0:
			neg++
		}
		c.items[i] = it
		c.byName[key] = i
	}
	if pos == 0 || neg == 0 {
		return nil, fmt.Errorf("%w: need at least one positive and one negative item (have %d/%d)", ErrCatalog, pos, neg)
	}
	return c, nil
}

// Load decodes a JSON catalog from r.
func Load(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var items []FoodItem
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCatalog, err)
	}
	return New(items)
}

// LoadFile reads and decodes the catalog at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrCatalog, path, err)
	}
	defer f.Close()
	return Load(f)
}

// Default decodes the embedded catalog.
func Default() (*Catalog, error) {
	b, err := assets.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: embedded catalog: %v", ErrCatalog, err)
	}
	return Load(bytes.NewReader(b))
}

// FromEnv loads path if non-empty, else the embedded default.
func FromEnv(path string) (*Catalog, error) {
	if path != "" {
		return LoadFile(path)
	}
	return Default()
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Items returns a copy of all items in catalog order.
func (c *Catalog) Items() []FoodItem {
	return append([]FoodItem(nil), c.items...)
}

// Lookup finds an item by case-insensitive name.
func (c *Catalog) Lookup(name string) (FoodItem, bool) {
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return FoodItem{}, false
	}
	return c.items[i], true
}

// Positive returns items with score > 0.
func (c *Catalog) Positive() []FoodItem {
	return c.filter(FoodItem.Good)
}

// Negative returns items with score < 0.
func (c *Catalog) Negative() []FoodItem {
	return c.filter(func(f FoodItem) bool { return f.Score < 0 })
}

func (c *Catalog) filter(keep func(FoodItem) bool) []FoodItem {
	var out []FoodItem
	for _, it := range c.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
