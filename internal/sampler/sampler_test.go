package sampler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/gerdgame/internal/catalog"
)

// scripted replays fixed draws (modulo n), then returns 0.
type scripted struct {
	vals []int
	i    int
}

func (s *scripted) IntN(n int) int {
	if s.i >= len(s.vals) {
		return 0
	}
	v := s.vals[s.i] % n
	s.i++
	return v
}

func items(scores ...int) []catalog.FoodItem {
	out := make([]catalog.FoodItem, len(scores))
	for i, sc := range scores {
		out[i] = catalog.FoodItem{Name: fmt.Sprintf("item-%d", i), Score: sc, Category: fmt.Sprintf("cat-%d", i%3)}
	}
	return out
}

func TestPickPairScripted(t *testing.T) {
	pool := items(5, -5, 10, -10, 0)

	a, b, err := PickPair(&scripted{vals: []int{1, 0, 0}}, pool)
	require.NoError(t, err)
	assert.Equal(t, "item-2", a.Name, "second positive, good first")
	assert.Equal(t, "item-1", b.Name)

	a, b, err = PickPair(&scripted{vals: []int{0, 1, 1}}, pool)
	require.NoError(t, err)
	assert.Equal(t, "item-3", a.Name, "bad first after flip")
	assert.Equal(t, "item-0", b.Name)
}

func TestPickPairEmptySubset(t *testing.T) {
	_, _, err := PickPair(NewSource(1), items(1, 2, 0))
	assert.ErrorIs(t, err, ErrEmptySubset)

	_, _, err = PickPair(NewSource(1), items(-1, 0))
	assert.ErrorIs(t, err, ErrEmptySubset)
}

func TestPickPairSignsAndOrderBalance(t *testing.T) {
	pool := items(3, -3, 7, -7, 1, -1, 0)
	src := NewSource(42)

	const draws = 10000
	goodFirst := 0
	for i := 0; i < draws; i++ {
		a, b, err := PickPair(src, pool)
		require.NoError(t, err)
		require.True(t, (a.Score > 0) != (b.Score > 0), "pair must mix signs: %v %v", a, b)
		require.NotZero(t, a.Score)
		require.NotZero(t, b.Score)
		if a.Score > 0 {
			goodFirst++
		}
	}
	// 10k fair coin flips: sd = 50, so ±300 is six sigma.
	assert.InDelta(t, draws/2, goodFirst, 300)
}

func TestPickGroceryBatch(t *testing.T) {
	t.Run("whole catalog is a permutation", func(t *testing.T) {
		pool := items(make([]int, 50)...)
		got, err := PickGroceryBatch(NewSource(7), pool, 50)
		require.NoError(t, err)
		require.Len(t, got, 50)

		seen := map[string]int{}
		for _, it := range got {
			seen[it.Name]++
		}
		assert.Len(t, seen, 50)
		for name, n := range seen {
			assert.Equal(t, 1, n, name)
		}
	})

	t.Run("subset without replacement", func(t *testing.T) {
		pool := items(make([]int, 80)...)
		got, err := PickGroceryBatch(NewSource(9), pool, 0)
		require.NoError(t, err)
		require.Len(t, got, DefaultBatchSize)

		seen := map[string]bool{}
		for _, it := range got {
			assert.False(t, seen[it.Name], "duplicate %s", it.Name)
			seen[it.Name] = true
		}
	})

	t.Run("does not reorder input", func(t *testing.T) {
		pool := items(1, 2, 3, 4)
		_, err := PickGroceryBatch(NewSource(3), pool, 4)
		require.NoError(t, err)
		assert.Equal(t, "item-0", pool[0].Name)
		assert.Equal(t, "item-3", pool[3].Name)
	})

	t.Run("scripted draw", func(t *testing.T) {
		// swaps: i=0<->j=2, i=1<->j=1
		got, err := PickGroceryBatch(&scripted{vals: []int{2, 0}}, items(1, 2, 3), 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"item-2", "item-1"}, []string{got[0].Name, got[1].Name})
	})

	t.Run("insufficient", func(t *testing.T) {
		_, err := PickGroceryBatch(NewSource(1), items(1, -1), 50)
		assert.ErrorIs(t, err, ErrInsufficientCatalog)
	})
}

func TestGroupByCategoryIsStable(t *testing.T) {
	in := []catalog.FoodItem{
		{Name: "a", Category: "Fruits"},
		{Name: "b", Category: "Dairy"},
		{Name: "c", Category: "Fruits"},
		{Name: "d", Category: "Grains"},
		{Name: "e", Category: "Dairy"},
	}
	groups := GroupByCategory(in)
	require.Len(t, groups, 3)

	names := func(g Group) []string {
		var out []string
		for _, it := range g.Items {
			out = append(out, it.Name)
		}
		return out
	}
	assert.Equal(t, "Fruits", groups[0].Category)
	assert.Equal(t, []string{"a", "c"}, names(groups[0]))
	assert.Equal(t, "Dairy", groups[1].Category)
	assert.Equal(t, []string{"b", "e"}, names(groups[1]))
	assert.Equal(t, "Grains", groups[2].Category)
	assert.Equal(t, []string{"d"}, names(groups[2]))
}

func TestNewSourceDeterministic(t *testing.T) {
	a, b := NewSource(12345), NewSource(12345)
	for i := 0; i < 20; i++ {
		require.Equal(t, a.IntN(100000), b.IntN(100000), "draw %d", i)
	}
	assert.NotEqual(t, seedWord(99, "a"), seedWord(99, "b"))

	_, err := NewSeed()
	assert.NoError(t, err)
}
