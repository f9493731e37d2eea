// Package sampler draws the food options offered in each round.
//
// Two shapes are supported:
//   - PickPair: one GERD-friendly and one unfriendly item, in random order.
//   - PickGroceryBatch: a fixed-size draw without replacement for grocery mode.
package sampler

import (
	"errors"
	"fmt"

	"github.com/robalobadob/gerdgame/internal/catalog"
)

// DefaultBatchSize is the grocery batch size used when none is given.
const DefaultBatchSize = 50

var (
	// ErrEmptySubset is returned when the positive or negative subset is empty.
	ErrEmptySubset = errors.New("empty subset")

	// ErrInsufficientCatalog is returned when the catalog is smaller than the batch.
	ErrInsufficientCatalog = errors.New("insufficient catalog")
)

// PickPair selects one positive-score and one negative-score item uniformly
// at random and shuffles their order with a single coin flip.
func PickPair(src Source, items []catalog.FoodItem) (catalog.FoodItem, catalog.FoodItem, error) {
	var good, bad []catalog.FoodItem
	for _, it := range items {
		switch {
		case it.Good():
			good = append(good, it)
		case it.Score < 0:
			bad = append(bad, it)
		}
	}
	if len(good) == 0 {
		return catalog.FoodItem{}, catalog.FoodItem{}, fmt.Errorf("%w: no positive-score items", ErrEmptySubset)
	}
	if len(bad) == 0 {
		return catalog.FoodItem{}, catalog.FoodItem{}, fmt.Errorf("%w: no negative-score items", ErrEmptySubset)
	}

	g := good[src.IntN(len(good))]
	b := bad[src.IntN(len(bad))]
	if src.IntN(2) == 1 {
		return b, g, nil
	}
	return g, b, nil
}

// PickGroceryBatch draws batchSize distinct items uniformly at random and
// returns them in random order. A batchSize <= 0 means DefaultBatchSize.
func PickGroceryBatch(src Source, items []catalog.FoodItem, batchSize int) ([]catalog.FoodItem, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if len(items) < batchSize {
		return nil, fmt.Errorf("%w: have %d items, need %d", ErrInsufficientCatalog, len(items), batchSize)
	}

	// Partial Fisher–Yates: positions [0, batchSize) end up a uniform random sample.
	pool := append([]catalog.FoodItem(nil), items...)
	for i := 0; i < batchSize; i++ {
		j := i + src.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:batchSize:batchSize], nil
}

// Group is a run of items sharing a category.
type Group struct {
	Category string             `json:"category"`
	Items    []catalog.FoodItem `json:"items"`
}

// GroupByCategory buckets items by category. Groups appear in order of first
// occurrence and items keep their input order within a group.
func GroupByCategory(items []catalog.FoodItem) []Group {
	var out []Group
	index := make(map[string]int)
	for _, it := range items {
		i, ok := index[it.Category]
		if !ok {
			i = len(out)
			index[it.Category] = i
			out = append(out, Group{Category: it.Category})
		}
		out[i].Items = append(out[i].Items, it)
	}
	return out
}
